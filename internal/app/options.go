package service

import (
	"time"

	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithScoreRange sets the scoring system. Invalid ranges are ignored.
func WithScoreRange(r model.ScoreRange) Option {
	return func(s *Service) {
		if r.Valid() {
			s.scores = r
		}
	}
}

// WithDefaultThreshold sets the threshold given to teams saved without one.
func WithDefaultThreshold(threshold int) Option {
	return func(s *Service) {
		s.defaultThreshold = threshold
	}
}

// WithDedupeSize sets how many pass request ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the uuid generator for sessions, passes and teams.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}
