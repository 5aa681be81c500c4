package engine

import (
	"github.com/ardelane/parley/pkg/domain"
	"github.com/ardelane/parley/pkg/layers"
)

// Conversation is the unit of continuity between a user and the bot. It owns
// exactly one register.
type Conversation struct {
	ID string
}

// User identifies the person talking to the bot on a given platform.
type User struct {
	ID string
}

// Message is what platform adapters deliver to the dispatch loop. Adapters
// own the wire protocol; the engine only sees this contract.
type Message interface {
	// Platform returns a static name for the platform the message comes from.
	Platform() string

	// Conversation returns the conversation the message belongs to.
	Conversation() Conversation

	// User returns the author of the message.
	User() User

	// Layers returns the ordered, typed parts of the message.
	Layers() []layers.Layer

	// ShouldConfuse reports whether a failure to match this message should
	// provoke a confused reply. Events like delivery receipts return false
	// and are silently dropped instead.
	ShouldConfuse() bool
}

// Request gives transitions and handlers comprehensive access to the
// received message and its context. It is request-scoped and discarded after
// the dispatch cycle.
type Request struct {
	Message  Message
	Stack    *layers.Stack
	Register *domain.Register

	shared *SharedCache
}

// NewRequest builds a request from a message and the conversation's register.
func NewRequest(msg Message, reg *domain.Register) *Request {
	return &Request{
		Message:  msg,
		Stack:    layers.NewStack(msg.Layers()...),
		Register: reg,
		shared:   NewSharedCache(),
	}
}

// TransitionValue returns one entry of the transition register written by the
// previous response, such as the offered choices.
func (r *Request) TransitionValue(name string) any {
	tr := r.Register.Transition()
	if tr == nil {
		return nil
	}
	return tr[name]
}

// Shared returns the request-scoped memo cache. Its lifetime is exactly one
// dispatch cycle.
func (r *Request) Shared() *SharedCache {
	return r.shared
}
