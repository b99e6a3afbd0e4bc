// Package session owns the lifecycle of the active tracking session: its
// ordered pass log, the live per-player totals and single step undo.
//
// A Tracker is not safe for concurrent use. Hosts with more than one writer
// must serialise calls themselves.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/internal/domain/stats"
	"github.com/okian/passtrack/pkg/logger"
)

// Saver receives completed sessions. Its errors are returned to the caller
// unchanged.
type Saver interface {
	Save(ctx context.Context, s model.Session) error
}

// StartRequest describes a new session.
type StartRequest struct {
	Team      model.Team
	PlayerIDs []string
	Fields    model.Fields
	// Threshold overrides the team's default favorable threshold when set.
	Threshold *int
}

// PlayerStats is the live view of one player.
type PlayerStats struct {
	PlayerID     string  `json:"player_id"`
	Count        int     `json:"count"`
	Sum          int     `json:"sum"`
	Mean         float64 `json:"mean"`
	FavorablePct float64 `json:"favorable_pct"`
}

// Tracker is the session state machine. It is either idle or holds exactly
// one active session.
type Tracker struct {
	saver  Saver
	scores model.ScoreRange
	now    func() time.Time
	newID  func() string
	logger logger.Logger

	current *model.Session
	cache   *LiveCache
	version uint64
}

// NewTracker creates an idle tracker that hands completed sessions to saver.
func NewTracker(saver Saver, opts ...Option) *Tracker {
	t := &Tracker{
		saver:  saver,
		scores: model.DefaultScoreRange,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Active reports whether a session is in progress.
func (t *Tracker) Active() bool { return t.current != nil }

// Version increases on every change to the active session, so observers can
// detect updates without diffing.
func (t *Tracker) Version() uint64 { return t.version }

// ScoreRange returns the configured scoring system.
func (t *Tracker) ScoreRange() model.ScoreRange { return t.scores }

// Start begins a new session. An already active session is completed first;
// if that fails nothing changes and the error is returned.
func (t *Tracker) Start(ctx context.Context, req StartRequest) (model.Session, error) {
	ids, err := rosterSnapshot(req.Team, req.PlayerIDs)
	if err != nil {
		return model.Session{}, err
	}

	if t.current != nil {
		t.logger.Info(ctx, "completing active session before start",
			logger.String("session_id", t.current.ID))
		if _, _, err := t.Complete(ctx); err != nil {
			return model.Session{}, err
		}
	}

	threshold := req.Team.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	s := &model.Session{
		ID:        t.newID(),
		TeamID:    req.Team.ID,
		TeamName:  req.Team.Name,
		PlayerIDs: ids,
		StartedAt: t.now(),
		Fields:    req.Fields,
		Threshold: threshold,
	}
	t.current = s
	t.cache = NewLiveCache(ids)
	t.version++

	t.logger.Info(ctx, "session started",
		logger.String("session_id", s.ID),
		logger.String("team", s.TeamName),
		logger.Int("players", len(ids)),
		logger.Int("threshold", threshold),
	)
	return s.Clone(), nil
}

// rosterSnapshot validates the requested players against the team and drops
// duplicates while keeping request order.
func rosterSnapshot(team model.Team, playerIDs []string) ([]string, error) {
	if len(playerIDs) == 0 {
		return nil, fmt.Errorf("%w: no players selected", ErrInvalidRoster)
	}
	seen := make(map[string]struct{}, len(playerIDs))
	ids := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, ok := team.Player(id); !ok {
			return nil, fmt.Errorf("%w: player %q is not on team %q", ErrInvalidRoster, id, team.ID)
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// LogPass appends a pass for playerID to the active session and updates the
// live totals. Tags for fields the session does not collect are dropped.
func (t *Tracker) LogPass(ctx context.Context, playerID string, score int, tags model.Tags) (model.Pass, error) {
	if t.current == nil {
		return model.Pass{}, ErrNotActive
	}
	if !t.scores.Contains(score) {
		return model.Pass{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidScore, score, t.scores.Min, t.scores.Max)
	}
	if !t.current.Includes(playerID) {
		return model.Pass{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
	}

	p := model.Pass{
		ID:        t.newID(),
		PlayerID:  playerID,
		Ordinal:   len(t.current.Passes) + 1,
		Score:     score,
		Tags:      tags.Mask(t.current.Fields),
		CreatedAt: t.now(),
	}
	t.current.Passes = append(t.current.Passes, p)
	t.cache.Apply(p)
	t.version++

	t.logger.Debug(ctx, "pass logged",
		logger.String("session_id", t.current.ID),
		logger.String("player_id", playerID),
		logger.Int("ordinal", p.Ordinal),
		logger.Int("score", score),
	)
	return p, nil
}

// Complete stamps the end time and hands the session to the saver. With no
// active session it does nothing and reports false. A failed save leaves the
// session active and unchanged.
func (t *Tracker) Complete(ctx context.Context) (model.Session, bool, error) {
	if t.current == nil {
		return model.Session{}, false, nil
	}
	end := t.now()
	done := t.current.Clone()
	done.EndedAt = &end

	if t.saver != nil {
		if err := t.saver.Save(ctx, done); err != nil {
			t.logger.Error(ctx, "saving completed session failed",
				logger.String("session_id", done.ID), logger.Error(err))
			return model.Session{}, false, err
		}
	}

	t.current = nil
	t.cache = nil
	t.version++

	t.logger.Info(ctx, "session completed",
		logger.String("session_id", done.ID),
		logger.Int("passes", len(done.Passes)),
		logger.Duration("duration", done.Duration(end)),
	)
	return done, true, nil
}

// Snapshot returns a copy of the active session.
func (t *Tracker) Snapshot() (model.Session, bool) {
	if t.current == nil {
		return model.Session{}, false
	}
	return t.current.Clone(), true
}

// Live returns a copy of the live totals keyed by player id.
func (t *Tracker) Live() (map[string]LiveStat, error) {
	if t.current == nil {
		return nil, ErrNotActive
	}
	return t.cache.Snapshot(), nil
}

// PlayerStats returns live numbers for one player. Count and mean come from
// the live cache; the favorable share is derived from the log.
func (t *Tracker) PlayerStats(playerID string) (PlayerStats, error) {
	if t.current == nil {
		return PlayerStats{}, ErrNotActive
	}
	e, ok := t.cache.Get(playerID)
	if !ok {
		return PlayerStats{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
	}
	return PlayerStats{
		PlayerID:     playerID,
		Count:        e.Count,
		Sum:          e.Sum,
		Mean:         e.Mean(),
		FavorablePct: stats.FavorablePercentage(t.current.PassesBy(playerID), t.current.Threshold),
	}, nil
}

// TeamStats returns live numbers for the whole group.
func (t *Tracker) TeamStats() (PlayerStats, error) {
	if t.current == nil {
		return PlayerStats{}, ErrNotActive
	}
	total := t.cache.Total()
	return PlayerStats{
		Count:        total.Count,
		Sum:          total.Sum,
		Mean:         total.Mean(),
		FavorablePct: stats.FavorablePercentage(t.current.Passes, t.current.Threshold),
	}, nil
}
