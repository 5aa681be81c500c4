package layers

import (
	"context"
	"fmt"
	"strings"
)

// Stack holds the ordered layers of one message or one response burst, with
// an index by concrete type for quick trigger checks. The layer list is set
// at construction and never mutated, so the index stays consistent.
type Stack struct {
	layers []Layer
	index  map[string][]Layer
}

// NewStack builds a stack from layers, keeping their order.
func NewStack(ls ...Layer) *Stack {
	s := &Stack{
		layers: ls,
		index:  make(map[string][]Layer),
	}
	for _, l := range ls {
		s.index[l.Kind()] = append(s.index[l.Kind()], l)
	}
	return s
}

// Layers returns the ordered layer list. Callers must not mutate it.
func (s *Stack) Layers() []Layer {
	return s.layers
}

// Describe returns a compact representation of the stack's layer kinds,
// used for logs and capability errors.
func (s *Stack) Describe() string {
	kinds := make([]string, len(s.layers))
	for i, l := range s.layers {
		kinds[i] = l.Kind()
	}
	return fmt.Sprintf("(%s)", strings.Join(kinds, "+"))
}

// PatchRegister folds every Patchable layer of the stack into the transition
// register, in order.
func (s *Stack) PatchRegister(ctx context.Context, register map[string]any) (map[string]any, error) {
	var err error
	for _, l := range s.layers {
		p, ok := l.(Patchable)
		if !ok {
			continue
		}
		register, err = p.PatchRegister(ctx, register)
		if err != nil {
			return nil, fmt.Errorf("patching register with %s layer: %w", l.Kind(), err)
		}
	}
	return register, nil
}

// Has reports whether the stack contains at least one layer of type T.
func Has[T Layer](s *Stack) bool {
	_, ok := First[T](s)
	return ok
}

// First returns the first layer of type T in the stack.
func First[T Layer](s *Stack) (T, bool) {
	for _, l := range s.layers {
		if t, ok := l.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// All returns every layer of type T in the stack, in order.
func All[T Layer](s *Stack) []T {
	var out []T
	for _, l := range s.layers {
		if t, ok := l.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
