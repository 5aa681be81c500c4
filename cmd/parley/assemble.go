package main

import (
	"fmt"
	"log/slog"

	"github.com/ardelane/parley"
	"github.com/ardelane/parley/internal/config"
	"github.com/ardelane/parley/internal/logging"
	"github.com/ardelane/parley/pkg/adapters/redis"
	"github.com/ardelane/parley/pkg/domain"
	"github.com/ardelane/parley/pkg/engine"
	"github.com/ardelane/parley/pkg/ports"
	"github.com/ardelane/parley/pkg/register"
	"github.com/spf13/cobra"
)

// loadConfig reads the configuration honoring the CLI flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if botPath, _ := cmd.Flags().GetString("bot"); botPath != "" {
		cfg.Bot = botPath
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return logging.New(level), nil
}

func newBackend(cfg config.Config) (ports.RegisterBackend, error) {
	switch cfg.Register.Backend {
	case "redis":
		opts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix)}
		if ttl := cfg.Redis.ContentTTL.Std(); ttl > 0 {
			opts = append(opts, redis.WithContentTTL(ttl))
		}
		return redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...), nil
	case "memory":
		return nil, nil // parley.New falls back to the in-memory backend
	default:
		return nil, fmt.Errorf("unknown register backend %q", cfg.Register.Backend)
	}
}

// buildBot loads the bot definition and assembles a validated engine.
func buildBot(cfg config.Config, logger *slog.Logger, hooks domain.Hooks) (*parley.Bot, error) {
	def, err := config.LoadBot(cfg.Bot)
	if err != nil {
		return nil, err
	}

	registry := engine.NewRegistry()
	def.RegisterStates(registry)

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	opts := []parley.Option{
		parley.WithLogger(logger),
		parley.WithHooks(hooks),
		parley.WithSettings(engine.Settings{
			MinScore:    cfg.Engine.MinScore,
			JumpPenalty: cfg.Engine.JumpPenalty,
			MaxJumps:    cfg.Engine.MaxJumps,
		}),
		parley.WithStoreOptions(
			register.WithLockTTL(cfg.Register.LockTTL.Std()),
			register.WithPollInterval(cfg.Register.PollInterval.Std()),
			register.WithMaxAttempts(cfg.Register.MaxAttempts),
		),
	}
	if backend != nil {
		opts = append(opts, parley.WithBackend(backend))
	}

	return parley.New(def.Transitions, def.DefaultState, registry, opts...)
}
