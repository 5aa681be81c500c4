package config

import (
	"context"

	"github.com/ardelane/parley/pkg/engine"
	"github.com/ardelane/parley/pkg/layers"
)

// ChoiceDef is one quick reply a declarative state offers.
type ChoiceDef struct {
	Slug   string `yaml:"slug" mapstructure:"slug"`
	Text   string `yaml:"text" mapstructure:"text"`
	Intent string `yaml:"intent" mapstructure:"intent"`
}

// StateDef is a declarative state: a scripted reply instead of code. Bots
// with real side effects register their states in code; these cover the
// large share of states that only talk.
type StateDef struct {
	Say      string      `yaml:"say" mapstructure:"say"`
	Choices  []ChoiceDef `yaml:"choices" mapstructure:"choices"`
	Confused string      `yaml:"confused" mapstructure:"confused"`
}

const (
	defaultConfusedText = "Sorry, I did not get that."
	defaultErrorText    = "Sorry, something went wrong on my side."
)

// RegisterStates adds all declarative states of the bot file to a registry.
// Code-registered states with the same name win: nothing is overwritten.
func (b *Bot) RegisterStates(registry *engine.Registry) {
	for name, def := range b.States {
		if registry.Has(name) {
			continue
		}
		registry.Register(name, scriptedFactory(def))
	}
}

func scriptedFactory(def StateDef) engine.StateFactory {
	return func(req *engine.Request, rsp *engine.Responder, trigger, userTrigger engine.Trigger) engine.State {
		return &scriptedState{def: def, rsp: rsp}
	}
}

type scriptedState struct {
	def StateDef
	rsp *engine.Responder
}

func (s *scriptedState) Handle(ctx context.Context) error {
	ls := []layers.Layer{layers.RawText{Text: s.def.Say}}
	if len(s.def.Choices) > 0 {
		options := make([]layers.ChoiceOption, 0, len(s.def.Choices))
		for _, c := range s.def.Choices {
			options = append(options, layers.ChoiceOption{
				Slug:   c.Slug,
				Text:   c.Text,
				Intent: c.Intent,
			})
		}
		ls = append(ls, layers.QuickRepliesList{Options: options})
	}
	return s.rsp.Send(ls...)
}

func (s *scriptedState) Confused(ctx context.Context) error {
	text := s.def.Confused
	if text == "" {
		text = defaultConfusedText
	}
	if err := s.rsp.Send(layers.RawText{Text: text}); err != nil {
		return err
	}
	// Repeat the scripted line so the user knows where the conversation
	// stands.
	return s.Handle(ctx)
}

func (s *scriptedState) Error(ctx context.Context) error {
	return s.rsp.Send(layers.RawText{Text: defaultErrorText})
}
