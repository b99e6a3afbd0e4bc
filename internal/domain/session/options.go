package session

import (
	"time"

	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithScoreRange sets the scoring system passes are validated against.
func WithScoreRange(r model.ScoreRange) Option {
	return func(t *Tracker) {
		if r.Valid() {
			t.scores = r
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDGenerator replaces the uuid based id source.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) {
		if gen != nil {
			t.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}
