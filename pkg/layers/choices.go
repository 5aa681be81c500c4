package layers

import "context"

// ChoicesKey is the transition-register key under which offered choices are
// stored for the next turn.
const ChoicesKey = "choices"

// ChoiceOption is one selectable entry of a QuickRepliesList. Text is the
// rendered label shown to the user; Intent optionally names an intent whose
// phrasings also count as picking this option.
type ChoiceOption struct {
	Slug   string
	Text   string
	Intent string
}

// QuickRepliesList offers the user a set of quick choices. When flushed, it
// patches the register so the Choice trigger can recognize both a tap on the
// option and the user typing something close to its label.
type QuickRepliesList struct {
	Options []ChoiceOption
}

func (QuickRepliesList) Kind() string { return "quick_replies" }

// PatchRegister stores all options in the "choices" sub-register. Both the
// text and the intent are kept so the next message can match either the
// quick-reply slug or free-typed text.
func (l QuickRepliesList) PatchRegister(_ context.Context, register map[string]any) (map[string]any, error) {
	choices := make(map[string]any, len(l.Options))
	for _, o := range l.Options {
		choices[o.Slug] = map[string]any{
			"intent": o.Intent,
			"text":   o.Text,
		}
	}

	register[ChoicesKey] = choices
	return register, nil
}
