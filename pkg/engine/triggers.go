package engine

import (
	"context"

	"github.com/ardelane/parley/pkg/layers"
	"github.com/ardelane/parley/pkg/trigram"
)

// Anything always matches. Combined with an unset origin it makes a state
// reachable from everywhere, typically the entry point of a story.
func Anything() TriggerFactory {
	return func(req *Request) Trigger {
		return rankFunc(func(ctx context.Context) (float64, error) {
			return 1.0, nil
		})
	}
}

type rankFunc func(ctx context.Context) (float64, error)

func (f rankFunc) Rank(ctx context.Context) (float64, error) { return f(ctx) }

// Text matches an intent against the text of the message, with trigram
// fuzziness absorbing typos and phrasing variance.
func Text(intent Intent) TriggerFactory {
	return func(req *Request) Trigger {
		return rankFunc(func(ctx context.Context) (float64, error) {
			tl, ok := layers.First[layers.RawText](req.Stack)
			if !ok {
				return 0, nil
			}
			return intent.Matcher.Similarity(trigram.New(tl.Text)), nil
		})
	}
}

// HasLayer matches the presence of a given message-part type, whatever its
// content. Useful to react to any image or any location.
func HasLayer[T layers.Layer]() TriggerFactory {
	return func(req *Request) Trigger {
		return rankFunc(func(ctx context.Context) (float64, error) {
			if layers.Has[T](req.Stack) {
				return 1.0, nil
			}
			return 0, nil
		})
	}
}

// Action matches a postback whose payload carries the given "action" field.
// Buttons programmed by the bot come back this way.
func Action(action string) TriggerFactory {
	return func(req *Request) Trigger {
		return rankFunc(func(ctx context.Context) (float64, error) {
			pb, ok := layers.First[layers.Postback](req.Stack)
			if !ok {
				return 0, nil
			}
			if got, _ := pb.Payload["action"].(string); got == action {
				return 1.0, nil
			}
			return 0, nil
		})
	}
}

// ChoiceTrigger matches a choice the user made among the options offered by
// the previous response. After a successful rank, Slug and Chosen expose
// which option matched for the state handler to consume.
type ChoiceTrigger struct {
	req     *Request
	when    string
	catalog IntentCatalog

	Slug   string
	Chosen map[string]any
}

// Choice builds a choice trigger. A non-empty when limits matching to that
// single slug; the catalog resolves intents referenced by the offered
// choices and may be nil.
func Choice(when string, catalog IntentCatalog) TriggerFactory {
	return func(req *Request) Trigger {
		return &ChoiceTrigger{req: req, when: when, catalog: catalog}
	}
}

// Rank looks for a choice in what the user did: a quick-reply tap matches by
// slug, free text is fuzzy-matched against each option's label and intent.
func (t *ChoiceTrigger) Rank(ctx context.Context) (float64, error) {
	choices, _ := t.req.TransitionValue(layers.ChoicesKey).(map[string]any)
	if len(choices) == 0 {
		return 0, nil
	}

	if qr, ok := layers.First[layers.QuickReply](t.req.Stack); ok {
		return t.rankQuickReply(qr, choices), nil
	}
	if tl, ok := layers.First[layers.RawText](t.req.Stack); ok {
		return t.rankText(tl, choices), nil
	}
	return 0, nil
}

func (t *ChoiceTrigger) rankQuickReply(qr layers.QuickReply, choices map[string]any) float64 {
	chosen, ok := choices[qr.Slug].(map[string]any)
	if !ok {
		return 0
	}

	t.Slug = qr.Slug
	t.Chosen = chosen

	if t.when == "" || t.when == qr.Slug {
		return 1.0
	}
	return 0
}

func (t *ChoiceTrigger) rankText(tl layers.RawText, choices map[string]any) float64 {
	candidate := trigram.New(tl.Text)

	var best float64
	for slug, raw := range choices {
		params, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		var alts []trigram.Alternative
		if key, _ := params["intent"].(string); key != "" {
			if intent, ok := t.catalog[key]; ok {
				score := intent.Matcher.Similarity(candidate)
				if score > best {
					t.Slug, t.Chosen = slug, params
					best = score
				}
			}
		}
		if text, _ := params["text"].(string); text != "" {
			alts = append(alts, trigram.Alternative{Positive: trigram.New(text)})
		}

		if score := trigram.NewMatcher(alts...).Similarity(candidate); score > best {
			t.Slug, t.Chosen = slug, params
			best = score
		}
	}

	if t.when != "" && t.Slug != t.when {
		return 0
	}
	return best
}

// Worst chains sub-triggers AND-like: evaluation is sequential and
// short-circuits at the first zero (or error); otherwise the lowest score
// observed wins. Cheap disqualifying checks go first.
func Worst(factories ...TriggerFactory) TriggerFactory {
	return func(req *Request) Trigger {
		triggers := make([]Trigger, len(factories))
		for i, f := range factories {
			triggers[i] = f(req)
		}
		return rankFunc(func(ctx context.Context) (float64, error) {
			worst := 1.0
			if len(triggers) == 0 {
				return 0, nil
			}
			for _, tr := range triggers {
				score, err := tr.Rank(ctx)
				if err != nil {
					return 0, err
				}
				if score == 0 {
					return 0, nil
				}
				if score < worst {
					worst = score
				}
			}
			return worst, nil
		})
	}
}
