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
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PASSPORT_CONFIG is set
//  3. env (prefix PASSPORT_; double underscore separates nested keys, e.g.
//     PASSPORT_AI__BASE_URL -> ai.base_url)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("PASSPORT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	envProvider := env.Provider("PASSPORT_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "PASSPORT_"))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MinGames < 1:
		return fmt.Errorf("%w: min_games must be at least 1", ErrInvalidConfig)
	case c.MaxGames < c.MinGames:
		return fmt.Errorf("%w: max_games must be >= min_games", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.CacheBackend != "memory" && c.CacheBackend != "redis":
		return fmt.Errorf("%w: cache_backend must be memory or redis", ErrInvalidConfig)
	case c.CacheBackend == "redis" && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr required for redis cache backend", ErrInvalidConfig)
	case c.AI.TimeoutSeconds < 1:
		return fmt.Errorf("%w: ai.timeout_seconds must be positive", ErrInvalidConfig)
	case c.AI.MaxAttempts < 1:
		return fmt.Errorf("%w: ai.max_attempts must be positive", ErrInvalidConfig)
	}
	return nil
}
