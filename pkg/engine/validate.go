package engine

import "fmt"

// Finding is one problem discovered by the startup validation pass.
type Finding struct {
	Code    string
	Message string
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s", f.Code, f.Message)
}

// Validate checks the transition graph against the registry and returns all
// findings at once. It runs once at startup; a non-empty result should abort
// the boot rather than surface at request time.
func Validate(m *Manager, reg *Registry) []Finding {
	var findings []Finding

	if m.DefaultState() == "" {
		findings = append(findings, Finding{
			Code:    "00001",
			Message: "no default state configured; confusion has nowhere to fall back to",
		})
	} else if !reg.Has(m.DefaultState()) {
		findings = append(findings, Finding{
			Code:    "00002",
			Message: fmt.Sprintf("default state %q is not registered", m.DefaultState()),
		})
	}

	if len(m.Transitions()) == 0 {
		findings = append(findings, Finding{
			Code:    "00003",
			Message: "no transitions configured; the bot cannot react to anything",
		})
	}

	for _, t := range m.Transitions() {
		if t.Dest == "" {
			findings = append(findings, Finding{
				Code:    "00004",
				Message: fmt.Sprintf("transition %s has no destination", t),
			})
		} else if !reg.Has(t.Dest) {
			findings = append(findings, Finding{
				Code:    "00005",
				Message: fmt.Sprintf("transition %s: destination %q is not registered", t, t.Dest),
			})
		}

		if t.Origin != "" && !reg.Has(t.Origin) {
			findings = append(findings, Finding{
				Code:    "00005",
				Message: fmt.Sprintf("transition %s: origin %q is not registered", t, t.Origin),
			})
		}

		if t.Factory == nil {
			findings = append(findings, Finding{
				Code:    "00006",
				Message: fmt.Sprintf("transition %s has no trigger factory", t),
			})
		}

		if t.Weight < 0 || t.Weight > 1 {
			findings = append(findings, Finding{
				Code:    "00007",
				Message: fmt.Sprintf("transition %s: weight %v is outside [0, 1]", t, t.Weight),
			})
		}
	}

	return findings
}
