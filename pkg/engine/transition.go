package engine

import (
	"context"
	"fmt"
)

// Transition describes one weighted edge of the conversation graph: from an
// optional origin state to a destination state, guarded by a trigger factory.
type Transition struct {
	// Dest is the destination state name.
	Dest string

	// Factory instantiates the guarding trigger per request.
	Factory TriggerFactory

	// Origin scopes the transition to one current state. When empty the
	// transition is reachable from any state, at the price of the jumping
	// penalty.
	Origin string

	// Weight scales the final score. Zero means the default of 1.0.
	Weight float64

	// Internal transitions are only evaluated right after a state handled a
	// request, never from raw input.
	Internal bool

	// DoNotRegister suppresses persisting the resulting state, for
	// transitions with ephemeral side effects.
	DoNotRegister bool

	// Desc is a textual description for documentation and logs.
	Desc string
}

func (t Transition) String() string {
	origin := t.Origin
	if origin == "" {
		origin = "(init)"
	}
	return fmt.Sprintf("%s -> %s", origin, t.Dest)
}

// Rank is the transient result of testing one transition against one request.
type Rank struct {
	Score          float64
	Trigger        Trigger
	Dest           string
	DoNotRegister  bool
	DeclaredOrigin string
	ActualOrigin   string
}

// rank scores the transition for a request arriving at origin. When the
// declared origin mismatches, the transition scores exactly 0 and its trigger
// is never instantiated, so no trigger side effect can run.
func (t Transition) rank(ctx context.Context, req *Request, origin string, jumpPenalty float64) (Rank, error) {
	var base float64
	switch {
	case t.Origin == origin:
		base = 1.0
	case t.Origin == "":
		base = jumpPenalty
	default:
		return Rank{DeclaredOrigin: t.Origin, ActualOrigin: origin}, nil
	}

	weight := t.Weight
	if weight == 0 {
		weight = 1.0
	}

	trigger := t.Factory(req)
	score, err := trigger.Rank(ctx)
	if err != nil {
		return Rank{}, fmt.Errorf("ranking %s: %w", t, err)
	}

	return Rank{
		Score:          base * weight * score,
		Trigger:        trigger,
		Dest:           t.Dest,
		DoNotRegister:  t.DoNotRegister,
		DeclaredOrigin: t.Origin,
		ActualOrigin:   origin,
	}, nil
}
