package domain

import (
	"context"
	"time"
)

// DispatchResult classifies how a dispatch cycle ended.
type DispatchResult string

const (
	DispatchHandled  DispatchResult = "handled"  // A transition matched and the state ran.
	DispatchConfused DispatchResult = "confused" // Nothing matched, confused fallback ran.
	DispatchDropped  DispatchResult = "dropped"  // Nothing matched and the message opted out of confusion.
	DispatchFailed   DispatchResult = "failed"   // The cycle aborted on an error.
)

// DispatchEvent describes one completed dispatch cycle.
type DispatchEvent struct {
	Platform     string
	Conversation string
	State        string
	Result       DispatchResult
	Score        float64
	Jumps        int
	Duration     time.Duration
}

// JumpEvent describes one internal transition taken after a state ran.
type JumpEvent struct {
	From string
	To   string
}

// Hooks are optional callbacks fired by the engine. Hosts use them to feed
// metrics or tracing without the engine depending on either.
type Hooks struct {
	OnDispatch func(context.Context, *DispatchEvent)
	OnJump     func(context.Context, *JumpEvent)
	OnLockWait func(ctx context.Context, conversation string, wait time.Duration)
}
