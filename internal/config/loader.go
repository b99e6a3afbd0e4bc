package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "PASSTRACK_"
	envConfig  = "PASSTRACK_CONFIG"
	keyDivider = "."
)

var validate = validator.New()

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PASSTRACK_CONFIG is set
//  3. env (prefix PASSTRACK_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(keyDivider)

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PASSTRACK_STORE_DRIVER -> store_driver. Underscores are kept to match
	// the flat koanf tags.
	envProvider := env.Provider(envPrefix, keyDivider, func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
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

// Validate checks field constraints and that the default threshold lies on
// the score scale.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidConfig, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.DefaultThreshold < c.ScoreMin || c.DefaultThreshold > c.ScoreMax {
		return fmt.Errorf("%w: default_threshold %d outside score range %d..%d",
			ErrInvalidConfig, c.DefaultThreshold, c.ScoreMin, c.ScoreMax)
	}
	if _, err := c.MetricsBuckets(); err != nil {
		return err
	}
	return nil
}

// MetricsBuckets parses MetricsBucketsMS. It returns nil when unset.
func (c *Config) MetricsBuckets() ([]float64, error) {
	if strings.TrimSpace(c.MetricsBucketsMS) == "" {
		return nil, nil
	}
	parts := strings.Split(c.MetricsBucketsMS, ",")
	buckets := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: metrics_buckets_ms: %q is not a number", ErrInvalidConfig, p)
		}
		if n := len(buckets); v <= 0 || (n > 0 && v <= buckets[n-1]) {
			return nil, fmt.Errorf("%w: metrics_buckets_ms must be positive and ascending", ErrInvalidConfig)
		}
		buckets = append(buckets, v)
	}
	return buckets, nil
}
