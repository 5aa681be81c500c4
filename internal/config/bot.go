package config

import (
	"fmt"
	"os"

	"github.com/ardelane/parley/pkg/engine"
	"github.com/ardelane/parley/pkg/layers"
	"github.com/ardelane/parley/pkg/trigram"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// AlternativeDef is one way of phrasing an intent. Unless lists phrasings
// that look close but must not match.
type AlternativeDef struct {
	Text   string   `yaml:"text" mapstructure:"text"`
	Unless []string `yaml:"unless" mapstructure:"unless"`
}

// FlowDef is one transition of the conversation graph, as written in the bot
// file. The trigger is polymorphic: its kind selects which other fields apply.
type FlowDef struct {
	Dest          string         `yaml:"dest" mapstructure:"dest"`
	Origin        string         `yaml:"origin" mapstructure:"origin"`
	Weight        float64        `yaml:"weight" mapstructure:"weight"`
	Internal      bool           `yaml:"internal" mapstructure:"internal"`
	DoNotRegister bool           `yaml:"do_not_register" mapstructure:"do_not_register"`
	Desc          string         `yaml:"desc" mapstructure:"desc"`
	Trigger       map[string]any `yaml:"trigger" mapstructure:"trigger"`
}

// BotFile is the declarative bot definition: named intents plus the flow
// graph between states. State handlers themselves stay in code; the file
// only wires them together.
type BotFile struct {
	DefaultState string                      `yaml:"default_state"`
	Intents      map[string][]AlternativeDef `yaml:"intents"`
	States       map[string]StateDef         `yaml:"states"`
	Flows        []FlowDef                   `yaml:"flows"`
}

// triggerDef is the decoded form of a flow's trigger map.
type triggerDef struct {
	Kind   string           `mapstructure:"kind"`
	Intent string           `mapstructure:"intent"`
	When   string           `mapstructure:"when"`
	Action string           `mapstructure:"action"`
	Layer  string           `mapstructure:"layer"`
	Of     []map[string]any `mapstructure:"of"`
}

// LoadBot reads and compiles a bot definition file.
func LoadBot(path string) (*Bot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot definition: %w", err)
	}

	var file BotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return CompileBot(file)
}

// Bot is a compiled bot definition, ready to hand to the engine.
type Bot struct {
	DefaultState string
	Intents      engine.IntentCatalog
	States       map[string]StateDef
	Transitions  []engine.Transition
}

// CompileBot turns a parsed bot file into a transition graph and an intent
// catalog. Unknown trigger kinds and dangling intent references are rejected
// here, before anything reaches the engine.
func CompileBot(file BotFile) (*Bot, error) {
	catalog := make(engine.IntentCatalog, len(file.Intents))
	for name, defs := range file.Intents {
		if len(defs) == 0 {
			return nil, fmt.Errorf("intent %q has no alternatives", name)
		}
		alts := make([]trigram.Alternative, 0, len(defs))
		for _, def := range defs {
			if def.Text == "" {
				return nil, fmt.Errorf("intent %q has an alternative without text", name)
			}
			alts = append(alts, trigram.Alt(def.Text, def.Unless...))
		}
		catalog[name] = engine.NewIntent(name, alts...)
	}

	for name, def := range file.States {
		if def.Say == "" {
			return nil, fmt.Errorf("state %q has nothing to say", name)
		}
	}

	transitions := make([]engine.Transition, 0, len(file.Flows))
	for i, flow := range file.Flows {
		factory, err := compileTrigger(flow.Trigger, catalog)
		if err != nil {
			return nil, fmt.Errorf("flow %d (-> %s): %w", i, flow.Dest, err)
		}
		transitions = append(transitions, engine.Transition{
			Dest:          flow.Dest,
			Origin:        flow.Origin,
			Weight:        flow.Weight,
			Internal:      flow.Internal,
			DoNotRegister: flow.DoNotRegister,
			Desc:          flow.Desc,
			Factory:       factory,
		})
	}

	return &Bot{
		DefaultState: file.DefaultState,
		Intents:      catalog,
		States:       file.States,
		Transitions:  transitions,
	}, nil
}

func compileTrigger(raw map[string]any, catalog engine.IntentCatalog) (engine.TriggerFactory, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing trigger")
	}

	var def triggerDef
	if err := mapstructure.Decode(raw, &def); err != nil {
		return nil, fmt.Errorf("failed to decode trigger: %w", err)
	}

	switch def.Kind {
	case "anything":
		return engine.Anything(), nil

	case "text":
		intent, ok := catalog[def.Intent]
		if !ok {
			return nil, fmt.Errorf("unknown intent %q", def.Intent)
		}
		return engine.Text(intent), nil

	case "choice":
		return engine.Choice(def.When, catalog), nil

	case "action":
		if def.Action == "" {
			return nil, fmt.Errorf("action trigger needs an action")
		}
		return engine.Action(def.Action), nil

	case "layer":
		return compileLayerTrigger(def.Layer)

	case "all":
		if len(def.Of) == 0 {
			return nil, fmt.Errorf("all trigger needs sub-triggers in of")
		}
		subs := make([]engine.TriggerFactory, 0, len(def.Of))
		for _, sub := range def.Of {
			factory, err := compileTrigger(sub, catalog)
			if err != nil {
				return nil, err
			}
			subs = append(subs, factory)
		}
		return engine.Worst(subs...), nil

	default:
		return nil, fmt.Errorf("unknown trigger kind %q", def.Kind)
	}
}

func compileLayerTrigger(kind string) (engine.TriggerFactory, error) {
	switch kind {
	case "raw_text":
		return engine.HasLayer[layers.RawText](), nil
	case "quick_reply":
		return engine.HasLayer[layers.QuickReply](), nil
	case "postback":
		return engine.HasLayer[layers.Postback](), nil
	case "image":
		return engine.HasLayer[layers.Image](), nil
	case "sticker":
		return engine.HasLayer[layers.Sticker](), nil
	default:
		return nil, fmt.Errorf("unknown layer kind %q", kind)
	}
}
