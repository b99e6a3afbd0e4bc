// Package simulate drives a running passtrack server through its HTTP API
// with generated sessions and checks the stored results against locally
// computed statistics.
package simulate

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/okian/passtrack/pkg/logger"
)

// Defaults used by the simulate command.
const (
	DefaultBaseURL       = "http://localhost:9080"
	DefaultSessions      = 5
	DefaultPasses        = 40
	DefaultPlayers       = 6
	DefaultTimeout       = 10 * time.Second
	DefaultUndoRate      = 0.1
	DefaultDuplicateRate = 0.05
)

// Config controls a simulation run.
type Config struct {
	BaseURL  string        `validate:"required,url"`
	Sessions int           `validate:"gte=1"`
	Passes   int           `validate:"gte=0"`
	Players  int           `validate:"gte=1,lte=99"`
	Seed     int64
	Timeout  time.Duration `validate:"gt=0"`
	// UndoRate is the chance an action undoes the last pass.
	UndoRate float64 `validate:"gte=0,lte=1"`
	// DuplicateRate is the chance a pass is sent twice with the same request id.
	DuplicateRate float64 `validate:"gte=0,lte=1"`
	Verbose       bool
	// Logger receives progress; nil discards it.
	Logger logger.Logger `validate:"-"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Sessions:      DefaultSessions,
		Passes:        DefaultPasses,
		Players:       DefaultPlayers,
		Seed:          time.Now().UnixNano(),
		Timeout:       DefaultTimeout,
		UndoRate:      DefaultUndoRate,
		DuplicateRate: DefaultDuplicateRate,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid simulation config: %w", err)
	}
	return nil
}

// Stats summarizes a simulation run.
type Stats struct {
	Sessions   int
	Passes     int
	Undos      int
	Duplicates int
	Mismatches int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
