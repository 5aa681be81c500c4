package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ardelane/parley/pkg/adapters/memory"
	"github.com/ardelane/parley/pkg/domain"
	"github.com/ardelane/parley/pkg/layers"
	"github.com/ardelane/parley/pkg/register"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend  *memory.Backend
	store    *register.Store
	registry *Registry
	platform *testPlatform
}

func newFixture() *fixture {
	backend := memory.NewBackend()
	return &fixture{
		backend:  backend,
		store:    register.New(backend, register.WithPollInterval(time.Millisecond)),
		registry: NewRegistry(),
		platform: &testPlatform{},
	}
}

func (f *fixture) engine(transitions []Transition, defaultState string, opts ...Option) *Engine {
	return New(f.store, NewManager(transitions, defaultState), f.registry, opts...)
}

// sayState registers a state that replies with a fixed text on Handle and
// distinct texts on Confused/Error.
func (f *fixture) sayState(name, reply string) {
	f.registry.Register(name, func(req *Request, rsp *Responder, trigger, userTrigger Trigger) State {
		return &scriptedState{
			handle: func(ctx context.Context) error {
				return rsp.Send(layers.RawText{Text: reply})
			},
			confused: func(ctx context.Context) error {
				return rsp.Send(layers.RawText{Text: "confused:" + name})
			},
			onError: func(ctx context.Context) error {
				return rsp.Send(layers.RawText{Text: "error:" + name})
			},
		}
	})
}

func (f *fixture) registerData(t *testing.T, conv string) map[string]any {
	t.Helper()
	data, err := f.backend.Get(context.Background(), conv)
	require.NoError(t, err)
	return data
}

func TestEngine_DispatchWritesRegister(t *testing.T) {
	f := newFixture()
	f.sayState("Hello", "hi!")

	eng := f.engine([]Transition{
		{Dest: "Hello", Factory: Text(NewIntent("HELLO", altOf("hello")))},
	}, "Hello")

	err := eng.Dispatch(context.Background(), newTestMessage("conv", true, layers.RawText{Text: "hello"}), f.platform)
	require.NoError(t, err)

	assert.Equal(t, []string{"hi!"}, f.platform.texts())

	data := f.registerData(t, "conv")
	assert.Equal(t, "Hello", data[domain.RegisterState])
	assert.NotNil(t, data[domain.RegisterTransition])
}

func TestEngine_ChoicesFlowAcrossTurns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Hello offers a quick-reply choice; Great consumes it.
	f.registry.Register("Hello", func(req *Request, rsp *Responder, trigger, userTrigger Trigger) State {
		return &scriptedState{handle: func(ctx context.Context) error {
			return rsp.Send(
				layers.RawText{Text: "having a good day?"},
				layers.QuickRepliesList{Options: []layers.ChoiceOption{
					{Slug: "yes", Text: "Yes"},
					{Slug: "no", Text: "No"},
				}},
			)
		}}
	})

	var chosen string
	f.registry.Register("Great", func(req *Request, rsp *Responder, trigger, userTrigger Trigger) State {
		return &scriptedState{handle: func(ctx context.Context) error {
			if ct, ok := trigger.(*ChoiceTrigger); ok {
				chosen = ct.Slug
			}
			return rsp.Send(layers.RawText{Text: "great!"})
		}}
	})

	eng := f.engine([]Transition{
		{Dest: "Hello", Factory: Anything()},
		{Dest: "Great", Origin: "Hello", Factory: Choice("yes", nil)},
	}, "Hello")

	require.NoError(t, eng.Dispatch(ctx, newTestMessage("conv", true, layers.RawText{Text: "hey"}), f.platform))

	data := f.registerData(t, "conv")
	assert.Equal(t, "Hello", data[domain.RegisterState])

	require.NoError(t, eng.Dispatch(ctx, newTestMessage("conv", true, layers.QuickReply{Slug: "yes"}), f.platform))

	assert.Equal(t, "yes", chosen)
	data = f.registerData(t, "conv")
	assert.Equal(t, "Great", data[domain.RegisterState])
}

func TestEngine_DoNotRegister(t *testing.T) {
	f := newFixture()
	f.sayState("Ephemeral", "done")

	eng := f.engine([]Transition{
		{Dest: "Ephemeral", Factory: Anything(), DoNotRegister: true},
	}, "Ephemeral")

	require.NoError(t, eng.Dispatch(context.Background(), newTestMessage("conv", true, layers.RawText{Text: "x"}), f.platform))

	assert.Equal(t, []string{"done"}, f.platform.texts(), "the state still runs and replies")
	assert.Empty(t, f.registerData(t, "conv"), "the resulting state is not persisted")
}

func TestEngine_InternalJumpChain(t *testing.T) {
	f := newFixture()
	f.sayState("Ask", "asking")
	f.sayState("Remind", "by the way...")

	eng := f.engine([]Transition{
		{Dest: "Ask", Factory: Anything()},
		{Dest: "Remind", Origin: "Ask", Internal: true, Factory: Anything()},
	}, "Ask")

	require.NoError(t, eng.Dispatch(context.Background(), newTestMessage("conv", true, layers.RawText{Text: "x"}), f.platform))

	assert.Equal(t, []string{"asking", "by the way..."}, f.platform.texts())

	data := f.registerData(t, "conv")
	assert.Equal(t, "Remind", data[domain.RegisterState], "the last-run state is the one persisted")
}

func TestEngine_InternalJumpCeiling(t *testing.T) {
	f := newFixture()
	f.sayState("Ping", "ping")
	f.sayState("Pong", "pong")

	var jumps int
	eng := f.engine([]Transition{
		{Dest: "Ping", Factory: Anything()},
		{Dest: "Pong", Origin: "Ping", Internal: true, Factory: Anything()},
		{Dest: "Ping", Origin: "Pong", Internal: true, Factory: Anything()},
	}, "Ping", WithHooks(domain.Hooks{
		OnJump: func(ctx context.Context, e *domain.JumpEvent) { jumps++ },
	}))

	err := eng.Dispatch(context.Background(), newTestMessage("conv", true, layers.RawText{Text: "x"}), f.platform)
	require.NoError(t, err, "the fault is isolated to the cycle")

	assert.Equal(t, DefaultSettings().MaxJumps, jumps, "chaining stops exactly at the ceiling")
	assert.Empty(t, f.registerData(t, "conv"), "no register write after a runaway cycle")
	assert.Contains(t, f.platform.texts(), "error:Ping", "the error entry point voiced the failure")
}

func TestEngine_SilentDrop(t *testing.T) {
	f := newFixture()
	f.sayState("Hello", "hi!")

	eng := f.engine([]Transition{
		{Dest: "Hello", Origin: "Elsewhere", Factory: Anything()},
	}, "Hello")

	require.NoError(t, eng.Dispatch(context.Background(), newTestMessage("conv", false, layers.RawText{Text: "x"}), f.platform))

	assert.Empty(t, f.platform.texts(), "no state executes")
	assert.Empty(t, f.registerData(t, "conv"), "no register write")
}

func TestEngine_ConfusedFallback(t *testing.T) {
	f := newFixture()
	f.sayState("Fallback", "hello!")

	eng := f.engine([]Transition{
		{Dest: "Fallback", Origin: "Elsewhere", Factory: Anything()},
	}, "Fallback")

	require.NoError(t, eng.Dispatch(context.Background(), newTestMessage("conv", true, layers.RawText{Text: "???"}), f.platform))

	assert.Equal(t, []string{"confused:Fallback"}, f.platform.texts())
	data := f.registerData(t, "conv")
	assert.Equal(t, "Fallback", data[domain.RegisterState], "confusion is persisted like any run")
}

func TestEngine_ErrorLadder(t *testing.T) {
	ctx := context.Background()

	t.Run("GracefulErrorReply", func(t *testing.T) {
		f := newFixture()
		f.registry.Register("Broken", func(req *Request, rsp *Responder, trigger, userTrigger Trigger) State {
			return &scriptedState{
				handle: func(ctx context.Context) error {
					_ = rsp.Send(layers.RawText{Text: "half-done"})
					return errors.New("handler exploded")
				},
				onError: func(ctx context.Context) error {
					return rsp.Send(layers.RawText{Text: "sorry, something went wrong"})
				},
			}
		})

		eng := f.engine([]Transition{{Dest: "Broken", Factory: Anything()}}, "Broken")
		require.NoError(t, eng.Dispatch(ctx, newTestMessage("conv", true, layers.RawText{Text: "x"}), f.platform))

		assert.Equal(t, []string{"sorry, something went wrong"}, f.platform.texts(),
			"the half-built response was cleared before the graceful reply")
		assert.Empty(t, f.registerData(t, "conv"))
	})

	t.Run("DoubleFaultHardcodedReply", func(t *testing.T) {
		f := newFixture()
		f.registry.Register("Broken", func(req *Request, rsp *Responder, trigger, userTrigger Trigger) State {
			return &scriptedState{
				handle:  func(ctx context.Context) error { return errors.New("first") },
				onError: func(ctx context.Context) error { return errors.New("second") },
			}
		})

		eng := f.engine([]Transition{{Dest: "Broken", Factory: Anything()}}, "Broken")
		require.NoError(t, eng.Dispatch(ctx, newTestMessage("conv", true, layers.RawText{Text: "x"}), f.platform))

		assert.Equal(t, []string{"⚠️ Internal error"}, f.platform.texts())
	})

	t.Run("GracefulReplyFlushFailure", func(t *testing.T) {
		f := newFixture()
		f.registry.Register("Broken", func(req *Request, rsp *Responder, trigger, userTrigger Trigger) State {
			return &scriptedState{
				handle: func(ctx context.Context) error { return errors.New("handler exploded") },
				onError: func(ctx context.Context) error {
					return rsp.Send(layers.RawText{Text: "sorry, something went wrong"})
				},
			}
		})

		var logs bytes.Buffer
		platform := &flakyPlatform{failures: 1}
		eng := f.engine([]Transition{{Dest: "Broken", Factory: Anything()}}, "Broken",
			WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

		require.NoError(t, eng.Dispatch(ctx, newTestMessage("conv", true, layers.RawText{Text: "x"}), platform))

		assert.Equal(t, []string{"⚠️ Internal error"}, platform.texts(),
			"the graceful reply never made it out, the hard-coded one did")
		assert.Contains(t, logs.String(), "could not flush error reply")
		assert.Contains(t, logs.String(), "pipe broke")
	})
}

func TestEngine_EmptyStackIgnored(t *testing.T) {
	f := newFixture()
	f.sayState("Hello", "hi!")

	eng := f.engine([]Transition{{Dest: "Hello", Factory: Anything()}}, "Hello")
	require.NoError(t, eng.Dispatch(context.Background(), newTestMessage("conv", true), f.platform))

	assert.Empty(t, f.platform.texts())
}

func TestEngine_DispatchHook(t *testing.T) {
	f := newFixture()
	f.sayState("Hello", "hi!")

	var event *domain.DispatchEvent
	eng := f.engine([]Transition{{Dest: "Hello", Factory: Anything()}}, "Hello",
		WithHooks(domain.Hooks{
			OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) { event = e },
		}))

	require.NoError(t, eng.Dispatch(context.Background(), newTestMessage("conv", true, layers.RawText{Text: "x"}), f.platform))

	require.NotNil(t, event)
	assert.Equal(t, domain.DispatchHandled, event.Result)
	assert.Equal(t, "Hello", event.State)
	assert.Equal(t, "conv", event.Conversation)
}
