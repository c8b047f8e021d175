package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/pagecue/internal/domain/trigger"
)

const (
	envPrefix  = "PAGECUE_"
	envFileVar = "PAGECUE_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if PAGECUE_CONFIG is set
//  3. env (prefix PAGECUE_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PAGECUE_TICK_INTERVAL_MS -> tick_interval_ms. Keys are flat, so
	// underscores are kept to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envFileVar {
			return ""
		}
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TickIntervalMS <= 0:
		return fmt.Errorf("%w: tick_interval_ms must be positive, got %d", ErrInvalidConfig, c.TickIntervalMS)
	case c.ViewportWidth <= 0 || c.ViewportHeight <= 0:
		return fmt.Errorf("%w: viewport must be positive, got %dx%d", ErrInvalidConfig, c.ViewportWidth, c.ViewportHeight)
	case c.PreviewWidth <= 0 || c.PreviewHeight <= 0:
		return fmt.Errorf("%w: preview must be positive, got %dx%d", ErrInvalidConfig, c.PreviewWidth, c.PreviewHeight)
	case c.BaseDPI <= 0:
		return fmt.Errorf("%w: base_dpi must be positive, got %g", ErrInvalidConfig, c.BaseDPI)
	case c.SourceDPI <= 0:
		return fmt.Errorf("%w: source_dpi must be positive, got %g", ErrInvalidConfig, c.SourceDPI)
	case c.TrackLength < 0:
		return fmt.Errorf("%w: track_length must not be negative, got %g", ErrInvalidConfig, c.TrackLength)
	}
	if _, ok := trigger.ParsePolicy(c.SimultaneousPolicy); !ok {
		return fmt.Errorf("%w: unknown simultaneous_policy %q", ErrInvalidConfig, c.SimultaneousPolicy)
	}
	return nil
}

// Policy returns the parsed simultaneous-trigger policy.
func (c *Config) Policy() trigger.Policy {
	p, _ := trigger.ParsePolicy(c.SimultaneousPolicy)
	return p
}
