package domain

import "errors"

// ErrLockTimeout is returned when a conversation lock cannot be acquired
// within the configured attempt budget.
var ErrLockTimeout = errors.New("timed out acquiring conversation lock")

// ErrTooManyJumps is returned when chained internal transitions exceed the
// configured ceiling. It signals a misconfigured transition cycle, not bad
// user input.
var ErrTooManyJumps = errors.New("too many internal state jumps")

// ErrUnknownState is returned when a transition references a state name that
// was never registered.
var ErrUnknownState = errors.New("unknown state")

// ErrUnacceptableStack is returned when a platform refuses a response stack.
var ErrUnacceptableStack = errors.New("platform does not accept stack")
