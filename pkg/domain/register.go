package domain

// Register keys. The register maps one conversation to its current state
// name and the side-channel data collected from the last response.
const (
	RegisterState      = "state"
	RegisterTransition = "transition"
)

// Register is the read view over one conversation's persisted state. It is
// never mutated in place: handlers compute a full replacement that the store
// commits at the end of the dispatch cycle, under the conversation lock.
type Register struct {
	data        map[string]any
	replacement map[string]any
}

// NewRegister wraps raw register contents. A nil map is treated as an empty
// register, which is what a conversation looks like on its first message.
func NewRegister(data map[string]any) *Register {
	if data == nil {
		data = make(map[string]any)
	}
	return &Register{data: data}
}

// Get returns the raw value stored under key, or nil.
func (r *Register) Get(key string) any {
	return r.data[key]
}

// State returns the current state name, or "" when the conversation is idle.
func (r *Register) State() string {
	s, _ := r.data[RegisterState].(string)
	return s
}

// Transition returns the side-channel map written by the previous response's
// layers, such as the choices offered to the user.
func (r *Register) Transition() map[string]any {
	m, _ := r.data[RegisterTransition].(map[string]any)
	return m
}

// Replace stages a full replacement value. Only the last staged value is
// committed, once, when the dispatch cycle ends.
func (r *Register) Replace(data map[string]any) {
	r.replacement = data
}

// Replacement returns the staged replacement, if any.
func (r *Register) Replacement() (map[string]any, bool) {
	return r.replacement, r.replacement != nil
}
