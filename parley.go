package parley

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ardelane/parley/internal/logging"
	"github.com/ardelane/parley/pkg/adapters/memory"
	"github.com/ardelane/parley/pkg/domain"
	"github.com/ardelane/parley/pkg/engine"
	"github.com/ardelane/parley/pkg/ports"
	"github.com/ardelane/parley/pkg/register"
)

// Version is the library version reported by the CLI.
const Version = "0.1.0"

// Bot wraps the engine with a simplified assembly API: hand it a transition
// graph, a state registry and options, get back something that dispatches.
type Bot struct {
	engine   *engine.Engine
	manager  *engine.Manager
	registry *engine.Registry

	backend   ports.RegisterBackend
	storeOpts []register.Option
	settings  engine.Settings
	hooks     domain.Hooks
	logger    *slog.Logger
}

// Option configures the assembly.
type Option func(*Bot)

// WithBackend injects a register backend. The default keeps registers in
// memory, which is fine for one process and tests but forgets on restart.
func WithBackend(b ports.RegisterBackend) Option {
	return func(bot *Bot) { bot.backend = b }
}

// WithStoreOptions forwards options to the register store.
func WithStoreOptions(opts ...register.Option) Option {
	return func(bot *Bot) { bot.storeOpts = append(bot.storeOpts, opts...) }
}

// WithSettings overrides the transition-selection settings.
func WithSettings(s engine.Settings) Option {
	return func(bot *Bot) { bot.settings = s }
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(bot *Bot) { bot.hooks = hooks }
}

// WithLogger sets a structured logger for the whole assembly.
func WithLogger(logger *slog.Logger) Option {
	return func(bot *Bot) { bot.logger = logger }
}

// New assembles a bot and validates its graph. A graph with findings does
// not boot; the error lists all of them at once.
func New(transitions []engine.Transition, defaultState string, registry *engine.Registry, opts ...Option) (*Bot, error) {
	bot := &Bot{
		registry: registry,
		settings: engine.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(bot)
	}

	if bot.logger == nil {
		bot.logger = logging.NewNop()
	}
	if bot.backend == nil {
		bot.backend = memory.NewBackend()
	}

	bot.manager = engine.NewManager(transitions, defaultState,
		engine.WithSettings(bot.settings),
		engine.WithManagerLogger(bot.logger),
	)

	if findings := engine.Validate(bot.manager, bot.registry); len(findings) > 0 {
		lines := make([]string, 0, len(findings))
		for _, f := range findings {
			lines = append(lines, f.String())
		}
		return nil, fmt.Errorf("invalid bot graph:\n%s", strings.Join(lines, "\n"))
	}

	storeOpts := append([]register.Option{
		register.WithLogger(bot.logger),
		register.WithLockWaitHook(bot.hooks.OnLockWait),
	}, bot.storeOpts...)
	store := register.New(bot.backend, storeOpts...)

	bot.engine = engine.New(store, bot.manager, bot.registry,
		engine.WithLogger(bot.logger),
		engine.WithHooks(bot.hooks),
	)
	return bot, nil
}

// Dispatch runs one full cycle for an inbound message.
func (b *Bot) Dispatch(ctx context.Context, msg engine.Message, platform engine.Platform) error {
	return b.engine.Dispatch(ctx, msg, platform)
}

// Validate re-runs the startup validation pass, e.g. for health checks.
func (b *Bot) Validate() []engine.Finding {
	return engine.Validate(b.manager, b.registry)
}

// Engine exposes the underlying engine for hosts that need direct access.
func (b *Bot) Engine() *engine.Engine { return b.engine }

// Registry exposes the state registry.
func (b *Bot) Registry() *engine.Registry { return b.registry }
