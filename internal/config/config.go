// Package config loads the settings of the secagg command-line harness from
// a YAML file, SECAGG_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/f3rmion/secagg/session"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "SECAGG"

// Config holds the parameters of a simulated round and the logging setup.
type Config struct {
	// Clients is the number of participants.
	Clients int `mapstructure:"clients"`

	// Threshold is the number of shares needed to recover a seed.
	Threshold int `mapstructure:"threshold"`

	// Dropouts lists the participants that vanish after submitting their
	// masked input.
	Dropouts []int `mapstructure:"dropouts"`

	// UpdateSize is the number of model weights per participant.
	UpdateSize int `mapstructure:"update-size"`

	KeyLength     int     `mapstructure:"key-length"`
	PrivacyBudget float64 `mapstructure:"privacy-budget"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `mapstructure:"log-level"`

	// LogFormat is text or json.
	LogFormat string `mapstructure:"log-format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Clients:       5,
		Threshold:     3,
		UpdateSize:    16,
		KeyLength:     session.DefaultKeyLength,
		PrivacyBudget: session.DefaultPrivacyBudget,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// SetDefaults registers the defaults on v so that every key is known to
// viper's environment lookup.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("clients", d.Clients)
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("dropouts", []int{})
	v.SetDefault("update-size", d.UpdateSize)
	v.SetDefault("key-length", d.KeyLength)
	v.SetDefault("privacy-budget", d.PrivacyBudget)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
}

// Load reads the configuration. file may be empty. flags, when non-nil, are
// bound by name and win over the file and the environment.
func Load(v *viper.Viper, file string, flags *pflag.FlagSet) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Session returns the round configuration handed to each session.
func (c *Config) Session() session.Config {
	return session.Config{
		Threshold:     c.Threshold,
		TotalClients:  c.Clients,
		PrivacyBudget: c.PrivacyBudget,
		KeyLength:     c.KeyLength,
	}
}

// Validate checks the round parameters with the session rules and makes
// sure enough participants survive to recover every dropped seed.
func (c *Config) Validate() error {
	if err := c.Session().Validate(); err != nil {
		return err
	}

	seen := make(map[int]bool, len(c.Dropouts))
	for _, d := range c.Dropouts {
		if d < 1 || d > c.Clients {
			return fmt.Errorf("dropout %d outside [1, %d]", d, c.Clients)
		}
		if seen[d] {
			return fmt.Errorf("dropout %d listed twice", d)
		}
		seen[d] = true
	}
	if survivors := c.Clients - len(c.Dropouts); survivors < c.Threshold {
		return fmt.Errorf("%d survivors cannot reach threshold %d", survivors, c.Threshold)
	}

	if c.UpdateSize < 0 {
		return errors.New("update size cannot be negative")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Logger builds the logger described by the configuration.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
