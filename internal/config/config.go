package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry values like "60s" or "1500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// EngineConfig tunes transition selection and internal-jump chasing.
type EngineConfig struct {
	MinScore    float64 `yaml:"min_score" json:"min_score"`
	JumpPenalty float64 `yaml:"jump_penalty" json:"jump_penalty"`
	MaxJumps    int     `yaml:"max_jumps" json:"max_jumps"`
}

// RegisterConfig tunes the per-conversation register store.
type RegisterConfig struct {
	Backend      string   `yaml:"backend" json:"backend"`
	LockTTL      Duration `yaml:"lock_ttl" json:"lock_ttl"`
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`
	MaxAttempts  int      `yaml:"max_attempts" json:"max_attempts"`
}

// RedisConfig locates the Redis behind the register store.
type RedisConfig struct {
	Addr       string   `yaml:"addr" json:"addr"`
	Password   string   `yaml:"password" json:"password"`
	DB         int      `yaml:"db" json:"db"`
	Prefix     string   `yaml:"prefix" json:"prefix"`
	ContentTTL Duration `yaml:"content_ttl" json:"content_ttl"`
}

// HTTPConfig tunes the webhook server.
type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Config is the full runtime configuration.
type Config struct {
	LogLevel string         `yaml:"log_level" json:"log_level"`
	Bot      string         `yaml:"bot" json:"bot"`
	Engine   EngineConfig   `yaml:"engine" json:"engine"`
	Register RegisterConfig `yaml:"register" json:"register"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		LogLevel: "info",
		Bot:      "bot.yaml",
		Engine: EngineConfig{
			MinScore:    0.3,
			JumpPenalty: 0.8,
			MaxJumps:    10,
		},
		Register: RegisterConfig{
			Backend:      "memory",
			LockTTL:      Duration(60 * time.Second),
			PollInterval: Duration(time.Second),
			MaxAttempts:  1000,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "register::",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a YAML configuration file on top of the defaults. A missing file
// is not an error; the defaults apply as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Register.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown register backend %q (want memory or redis)", c.Register.Backend)
	}
	if c.Engine.MinScore < 0 || c.Engine.MinScore > 1 {
		return fmt.Errorf("engine.min_score %v is outside [0, 1]", c.Engine.MinScore)
	}
	if c.Engine.JumpPenalty < 0 || c.Engine.JumpPenalty > 1 {
		return fmt.Errorf("engine.jump_penalty %v is outside [0, 1]", c.Engine.JumpPenalty)
	}
	if c.Engine.MaxJumps < 1 {
		return fmt.Errorf("engine.max_jumps must be at least 1, got %d", c.Engine.MaxJumps)
	}
	return nil
}
