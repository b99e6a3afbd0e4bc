package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/passtrack/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
			convey.So(cfg.ScoreMin, convey.ShouldEqual, 0)
			convey.So(cfg.ScoreMax, convey.ShouldEqual, 3)
			convey.So(cfg.DefaultThreshold, convey.ShouldEqual, 2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PASSTRACK_ADDR", ":8080")
			_ = os.Setenv("PASSTRACK_SCORE_MIN", "1")
			_ = os.Setenv("PASSTRACK_SCORE_MAX", "5")
			_ = os.Setenv("PASSTRACK_DEFAULT_THRESHOLD", "4")
			_ = os.Setenv("PASSTRACK_LOG_FORMAT", "json")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ScoreMin, convey.ShouldEqual, 1)
				convey.So(cfg.ScoreMax, convey.ShouldEqual, 5)
				convey.So(cfg.DefaultThreshold, convey.ShouldEqual, 4)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
# sqlite on disk
addr: ":9090"
store_driver: sqlite
store_path: /var/lib/passtrack/passtrack.db
dedupe_size: 500
`)
			_ = os.Setenv("PASSTRACK_CONFIG", tmpFile)
			_ = os.Setenv("PASSTRACK_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.StorePath, convey.ShouldEqual, "/var/lib/passtrack/passtrack.db")
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 500)
				convey.So(cfg.ScoreMax, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("PASSTRACK_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PASSTRACK_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("PASSTRACK_CONFIG", createTempConfigFile(t, `addr: ""`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown store driver", func() {
			_ = os.Setenv("PASSTRACK_STORE_DRIVER", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then validation names the field", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "StoreDriver")
			})
		})

		convey.Convey("When the score range is inverted", func() {
			_ = os.Setenv("PASSTRACK_SCORE_MIN", "3")
			_ = os.Setenv("PASSTRACK_SCORE_MAX", "1")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the score range holds a single score", func() {
			_ = os.Setenv("PASSTRACK_SCORE_MIN", "2")
			_ = os.Setenv("PASSTRACK_SCORE_MAX", "2")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it is accepted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ScoreMin, convey.ShouldEqual, cfg.ScoreMax)
			})
		})

		convey.Convey("When the default threshold is off the scale", func() {
			_ = os.Setenv("PASSTRACK_DEFAULT_THRESHOLD", "9")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "default_threshold")
			})
		})

		convey.Convey("When metric buckets are configured", func() {
			_ = os.Setenv("PASSTRACK_METRICS_BUCKETS_MS", "1, 10,100")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they are parsed in order", func() {
				convey.So(err, convey.ShouldBeNil)
				buckets, err := cfg.MetricsBuckets()
				convey.So(err, convey.ShouldBeNil)
				convey.So(buckets, convey.ShouldResemble, []float64{1, 10, 100})
			})
		})

		convey.Convey("When metric buckets are not ascending", func() {
			_ = os.Setenv("PASSTRACK_METRICS_BUCKETS_MS", "10,5")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "metrics_buckets_ms")
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PASSTRACK_SCORE_MAX", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"PASSTRACK_CONFIG",
		"PASSTRACK_ADDR",
		"PASSTRACK_LOG_FORMAT",
		"PASSTRACK_STORE_DRIVER",
		"PASSTRACK_SCORE_MIN",
		"PASSTRACK_SCORE_MAX",
		"PASSTRACK_DEFAULT_THRESHOLD",
		"PASSTRACK_METRICS_BUCKETS_MS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "passtrack-config-*.yaml")
	if err != nil {
		t.Fatalf("create temp config: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("close temp config: %v", err)
	}
	return tmpFile.Name()
}
