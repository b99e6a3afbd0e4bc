// Package config defines service configuration and how it is loaded.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// StoreDriver selects session persistence: memory or sqlite.
	StoreDriver string `koanf:"store_driver" validate:"oneof=memory sqlite"`

	// StorePath is the SQLite database file. Required for the sqlite driver.
	StorePath string `koanf:"store_path" validate:"required_if=StoreDriver sqlite"`

	// ScoreMin and ScoreMax bound the scoring system, inclusive.
	ScoreMin int `koanf:"score_min" validate:"gte=0"`
	ScoreMax int `koanf:"score_max" validate:"gtefield=ScoreMin"`

	// DefaultThreshold is the favorable threshold for teams created without one.
	DefaultThreshold int `koanf:"default_threshold"`

	// DedupeSize caps how many pass request ids are remembered. Zero or less
	// keeps them all.
	DedupeSize int `koanf:"dedupe_size"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms" validate:"gt=0"`

	// MetricsNamespace and MetricsSubsystem prefix every exported metric.
	MetricsNamespace string `koanf:"metrics_namespace" validate:"required"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBucketsMS lists latency histogram bounds in milliseconds,
	// comma separated and ascending. Empty keeps the built-in buckets.
	MetricsBucketsMS string `koanf:"metrics_buckets_ms"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreDriver:       "memory",
		StorePath:         "passtrack.db",
		ScoreMin:          0,
		ScoreMax:          3,
		DefaultThreshold:  2,
		DedupeSize:        10_000,
		ShutdownTimeoutMS: 30_000,
		MetricsNamespace:  "passtrack",
		MetricsSubsystem:  "engine",
	}
}
