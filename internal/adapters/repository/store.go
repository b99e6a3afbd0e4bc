// Package repository defines the storage contracts for sessions and teams and
// an in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/passtrack/internal/domain/model"
)

// Predicate selects sessions in FetchWhere.
type Predicate func(model.Session) bool

// Store persists completed sessions together with their passes.
type Store interface {
	// Save inserts or replaces a session and all of its passes.
	Save(ctx context.Context, s model.Session) error
	// FetchAll returns every stored session ordered by start time.
	FetchAll(ctx context.Context) ([]model.Session, error)
	// FetchWhere returns the stored sessions matching pred, ordered by start time.
	FetchWhere(ctx context.Context, pred Predicate) ([]model.Session, error)
	// Get returns one session. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (model.Session, error)
	// Delete removes a session and its passes. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// TeamStore resolves rosters.
type TeamStore interface {
	// SaveTeam inserts or replaces a team and its players.
	SaveTeam(ctx context.Context, t model.Team) error
	// Team returns one team. Returns ErrNotFound if it does not exist.
	Team(ctx context.Context, id string) (model.Team, error)
	// Teams returns every team ordered by name.
	Teams(ctx context.Context) ([]model.Team, error)
}
