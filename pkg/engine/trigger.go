package engine

import (
	"context"

	"github.com/ardelane/parley/pkg/trigram"
)

// Trigger is a runtime-evaluated match condition bound to one request. Rank
// scores how likely it is that the trigger matches, from 0 to 1. A trigger
// instance may hold mutable match state (such as which choice slug matched)
// that the eventual state handler consumes.
type Trigger interface {
	Rank(ctx context.Context) (float64, error)
}

// TriggerFactory instantiates a trigger for a request. Factories are bound to
// transitions at configuration time; instances are request-scoped.
type TriggerFactory func(req *Request) Trigger

// Intent is a named set of phrasings the bot recognizes, compiled to a
// trigram matcher.
type Intent struct {
	Key     string
	Matcher trigram.Matcher
}

// NewIntent compiles an intent from alternatives.
func NewIntent(key string, alternatives ...trigram.Alternative) Intent {
	return Intent{Key: key, Matcher: trigram.NewMatcher(alternatives...)}
}

// IntentCatalog resolves intents by name. The Choice trigger uses it to match
// free-typed text against the intents attached to offered choices.
type IntentCatalog map[string]Intent
