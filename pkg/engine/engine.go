// Package engine implements the dispatch core of the bot: trigger ranking,
// transition selection, state execution with bounded internal-jump chaining,
// and the register write policy, all under the conversation's exclusive lock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ardelane/parley/internal/logging"
	"github.com/ardelane/parley/pkg/domain"
	"github.com/ardelane/parley/pkg/layers"
	"github.com/ardelane/parley/pkg/register"
)

// hardErrorText is the last-resort reply when even the error entry point
// faulted.
const hardErrorText = "⚠️ Internal error"

// Engine glues the register store, the transition manager and the state
// registry into the dispatch loop.
type Engine struct {
	store    *register.Store
	manager  *Manager
	registry *Registry
	logger   *slog.Logger
	hooks    domain.Hooks
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger configures the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithHooks registers observability callbacks.
func WithHooks(hooks domain.Hooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// New assembles an engine.
func New(store *register.Store, manager *Manager, registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		manager:  manager,
		registry: registry,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Manager exposes the transition manager, mainly for validation.
func (e *Engine) Manager() *Manager { return e.manager }

// Registry exposes the state registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Dispatch runs one full cycle for an inbound message: acquire the
// conversation's register, select and run the next state, flush the
// response, persist the resulting register. The lock is released on every
// exit path.
func (e *Engine) Dispatch(ctx context.Context, msg Message, platform Platform) error {
	start := time.Now()
	result := domain.DispatchFailed
	state := ""

	err := e.store.With(ctx, msg.Conversation().ID, func(ctx context.Context, reg *domain.Register) error {
		req := NewRequest(msg, reg)
		if len(req.Stack.Layers()) == 0 {
			result = domain.DispatchDropped
			return nil
		}

		e.logger.Debug("incoming message",
			"platform", msg.Platform(),
			"conversation", msg.Conversation().ID,
			"stack", req.Stack.Describe(),
		)

		rsp := NewResponder(platform)
		result, state = e.handle(ctx, req, rsp)
		if result == domain.DispatchFailed {
			return errDispatchFailed
		}
		return nil
	})

	if e.hooks.OnDispatch != nil {
		e.hooks.OnDispatch(ctx, &domain.DispatchEvent{
			Platform:     msg.Platform(),
			Conversation: msg.Conversation().ID,
			State:        state,
			Result:       result,
			Duration:     time.Since(start),
		})
	}

	if errors.Is(err, errDispatchFailed) {
		// Already logged with full context inside handle; isolate the fault
		// to this cycle.
		return nil
	}
	return err
}

// errDispatchFailed marks a cycle that failed after the lock was acquired.
// It exists so the register store skips nothing and the lock still releases,
// while Dispatch can tell handled faults from store-level errors.
var errDispatchFailed = errors.New("dispatch cycle failed")

// handle runs selection, execution and persistence for one locked request.
func (e *Engine) handle(ctx context.Context, req *Request, rsp *Responder) (domain.DispatchResult, string) {
	upcoming, err := e.manager.BuildUpcoming(ctx, req)
	if err != nil {
		e.logger.Error("error while finding a transition",
			"origin", req.Register.State(),
			"err", err,
		)
		return domain.DispatchFailed, ""
	}

	if upcoming == nil {
		e.logger.Debug("no next step found, but message is not confusing")
		return domain.DispatchDropped, ""
	}

	result := domain.DispatchHandled
	if upcoming.Trigger == nil {
		result = domain.DispatchConfused
		e.logger.Debug("confused", "state", upcoming.State)
	} else {
		origin := upcoming.DeclaredOrigin
		if origin == "" {
			origin = "(init)"
		}
		e.logger.Debug("triggering transition",
			"origin", origin,
			"actual_origin", upcoming.ActualOrigin,
			"dest", upcoming.State,
			"score", upcoming.Score,
		)
	}

	factory, err := e.registry.Resolve(upcoming.State)
	if err != nil {
		e.logger.Error("cannot resolve upcoming state", "state", upcoming.State, "err", err)
		return domain.DispatchFailed, upcoming.State
	}

	state := factory(req, rsp, upcoming.Trigger, upcoming.Trigger)
	last, lastName, runErr := e.runState(ctx, req, rsp, upcoming, state)
	if runErr != nil {
		e.logger.Error("state execution failed", "state", lastName, "err", runErr)
		e.recover(ctx, req, rsp, last)
		return domain.DispatchFailed, lastName
	}

	if err := rsp.Flush(ctx, req); err != nil {
		e.logger.Error("could not flush responses", "state", lastName, "err", err)
		return domain.DispatchFailed, lastName
	}

	if !upcoming.DoNotRegister {
		transition, err := rsp.TransitionRegister(ctx)
		if err != nil {
			e.logger.Error("could not build transition register", "state", lastName, "err", err)
			return domain.DispatchFailed, lastName
		}
		req.Register.Replace(map[string]any{
			domain.RegisterState:      lastName,
			domain.RegisterTransition: transition,
		})
	}

	return result, lastName
}

// runState runs the selected state, then chases internal transitions from
// the state that just ran, up to the configured ceiling. The original
// user-facing trigger is carried through every jump.
func (e *Engine) runState(ctx context.Context, req *Request, rsp *Responder, upcoming *Upcoming, state State) (State, string, error) {
	var err error
	if upcoming.Trigger != nil {
		err = state.Handle(ctx)
	} else {
		err = state.Confused(ctx)
	}
	current := upcoming.State
	if err != nil {
		return state, current, fmt.Errorf("state %q: %w", current, err)
	}

	userTrigger := upcoming.Trigger

	for i := 0; ; i++ {
		if i == e.manager.Settings().MaxJumps {
			return state, current, fmt.Errorf("from state %q: %w", current, domain.ErrTooManyJumps)
		}

		rank, err := e.manager.FindTrigger(ctx, req, current, true)
		if err != nil {
			return state, current, err
		}
		if rank.Trigger == nil {
			return state, current, nil
		}

		e.logger.Debug("jumping to state", "from", current, "to", rank.Dest)
		if e.hooks.OnJump != nil {
			e.hooks.OnJump(ctx, &domain.JumpEvent{From: current, To: rank.Dest})
		}

		factory, err := e.registry.Resolve(rank.Dest)
		if err != nil {
			return state, current, err
		}

		state = factory(req, rsp, rank.Trigger, userTrigger)
		current = rank.Dest
		if err := state.Handle(ctx); err != nil {
			return state, current, fmt.Errorf("state %q: %w", current, err)
		}
	}
}

// recover clears the buffered response and asks the failed state to produce
// a graceful reply; if that faults too, a minimal hard-coded message goes
// out instead.
func (e *Engine) recover(ctx context.Context, req *Request, rsp *Responder, state State) {
	rsp.Clear()

	if err := state.Error(ctx); err != nil {
		e.logger.Error("error while handling the error", "err", err)
	} else if err := rsp.Flush(ctx, req); err == nil {
		return
	} else {
		e.logger.Error("could not flush error reply", "err", err)
	}

	rsp.Clear()
	if err := rsp.Send(layers.RawText{Text: hardErrorText}); err == nil {
		if err := rsp.Flush(ctx, req); err != nil {
			e.logger.Error("could not flush hard error reply", "err", err)
		}
	}
}
