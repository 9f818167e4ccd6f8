package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env
// vars. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if JORNET_CONFIG is set
//  3. env (prefix JORNET_)
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("JORNET_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: JORNET_ADDR, JORNET_REBUILD_WORKERS, ...
	// Map env keys like JORNET_REBUILD_WORKERS -> rebuild_workers to match
	// the koanf tags on the struct.
	envProvider := env.Provider("JORNET_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "jornet_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.MaxTopLimit < 1 {
		return fmt.Errorf("%w: max_top_limit must be positive", ErrInvalidConfig)
	}
	if c.MaxAroundWindow < 0 {
		return fmt.Errorf("%w: max_around_window must not be negative", ErrInvalidConfig)
	}
	if c.SubmitRetryAttempts < 1 {
		return fmt.Errorf("%w: submit_retry_attempts must be positive", ErrInvalidConfig)
	}
	return nil
}
