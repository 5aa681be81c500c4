package engine

import (
	"context"
	"fmt"

	"github.com/ardelane/parley/pkg/domain"
	"github.com/ardelane/parley/pkg/layers"
)

// Platform is the outbound boundary: whatever can carry a response burst back
// to the conversation.
type Platform interface {
	// Name returns a static platform name.
	Name() string

	// Accept reports whether the platform can carry the given stack.
	Accept(stack *layers.Stack) bool

	// Send delivers one stack to the conversation.
	Send(ctx context.Context, req *Request, stack *layers.Stack) error
}

// Responder buffers outbound response bursts for one dispatch cycle. Nothing
// reaches the platform until Flush.
type Responder struct {
	platform Platform
	stacks   []*layers.Stack
}

// NewResponder creates a responder bound to a platform.
func NewResponder(platform Platform) *Responder {
	return &Responder{platform: platform}
}

// Send queues one burst of layers.
func (r *Responder) Send(ls ...layers.Layer) error {
	stack := layers.NewStack(ls...)
	if !r.platform.Accept(stack) {
		return fmt.Errorf("%w: %s", domain.ErrUnacceptableStack, stack.Describe())
	}
	r.stacks = append(r.stacks, stack)
	return nil
}

// Clear resets the send list. Used when a handler failed mid-way and the
// error entry point starts over.
func (r *Responder) Clear() {
	r.stacks = nil
}

// Flush delivers all queued bursts in order.
func (r *Responder) Flush(ctx context.Context, req *Request) error {
	for _, stack := range r.stacks {
		if err := r.platform.Send(ctx, req, stack); err != nil {
			return fmt.Errorf("sending %s: %w", stack.Describe(), err)
		}
	}
	return nil
}

// TransitionRegister folds all queued stacks into the side-channel map that
// the next register will carry, e.g. the choices offered to the user.
func (r *Responder) TransitionRegister(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any)
	var err error
	for _, stack := range r.stacks {
		out, err = stack.PatchRegister(ctx, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
