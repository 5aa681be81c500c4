package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ardelane/parley/pkg/domain"
)

// State is one handler of the conversation graph. The engine calls exactly
// one of the three entry points per run: Handle when a trigger matched,
// Confused when nothing did, Error as a last resort after a fault.
type State interface {
	Handle(ctx context.Context) error
	Confused(ctx context.Context) error
	Error(ctx context.Context) error
}

// StateFactory instantiates a state for one run. trigger is the trigger that
// matched for this run (nil when confused); userTrigger is the original
// user-facing trigger, carried through internal jumps for provenance.
type StateFactory func(req *Request, rsp *Responder, trigger, userTrigger Trigger) State

// Registry maps stable state names to compiled handler implementations. It is
// populated at startup and read-only afterwards; unknown names are rejected
// by the validation pass at load time, not at request time.
type Registry struct {
	mu     sync.RWMutex
	states map[string]StateFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{states: make(map[string]StateFactory)}
}

// Register adds a state under a name. An existing name is overwritten.
func (r *Registry) Register(name string, factory StateFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[name] = factory
}

// Resolve returns the factory for a state name.
func (r *Registry) Resolve(name string) (StateFactory, error) {
	r.mu.RLock()
	factory, ok := r.states[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownState, name)
	}
	return factory, nil
}

// Has reports whether a state name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.states[name]
	return ok
}

// Names returns all registered state names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.states))
	for name := range r.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
