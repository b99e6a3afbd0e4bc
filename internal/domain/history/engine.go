// Package history answers analytical queries over completed sessions. It
// never trusts cached values: every number is derived from the stored passes.
package history

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/internal/domain/stats"
	"golang.org/x/text/cases"
)

// Comparison limits.
const (
	minComparePlayers = 2
	maxComparePlayers = 4
)

// Engine runs history queries. It holds no session data of its own.
type Engine struct {
	now func() time.Time
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock replaces time.Now when resolving relative windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Row is a query result: a session with its derived statistics.
type Row struct {
	Session model.Session `json:"session"`
	Summary stats.Summary `json:"summary"`
}

// Query filters and sorts sessions. Active sessions are ignored. The sort is
// stable, so ties keep their input order.
func (e *Engine) Query(sessions []model.Session, f Filter) ([]Row, error) {
	if f.MinAverage != nil && f.MaxAverage != nil && *f.MinAverage > *f.MaxAverage {
		return nil, fmt.Errorf("%w: min average %.2f above max %.2f", ErrInvalidFilter, *f.MinAverage, *f.MaxAverage)
	}
	key := f.Sort
	if key == "" {
		key = SortDateDesc
	}
	if _, err := ParseSortKey(string(key)); err != nil {
		return nil, err
	}

	now := e.now()
	// Casers carry transform state, so each query folds with its own.
	fold := cases.Fold()
	search := fold.String(strings.TrimSpace(f.Search))
	rows := make([]Row, 0, len(sessions))
	for _, s := range sessions {
		if s.Active() {
			continue
		}
		if search != "" && !strings.Contains(fold.String(s.TeamName), search) {
			continue
		}
		if f.TeamID != "" && s.TeamID != f.TeamID {
			continue
		}
		if f.PlayerID != "" && !s.Includes(f.PlayerID) {
			continue
		}
		if !f.Range.Contains(s.StartedAt, now) {
			continue
		}
		sum := stats.Summarize(s.Passes, s.Threshold)
		if f.MinAverage != nil && sum.Mean < *f.MinAverage {
			continue
		}
		if f.MaxAverage != nil && sum.Mean > *f.MaxAverage {
			continue
		}
		if sum.Count < f.MinPasses {
			continue
		}
		rows = append(rows, Row{Session: s, Summary: sum})
	}

	slices.SortStableFunc(rows, compareRows(key))
	return rows, nil
}

func compareRows(key SortKey) func(a, b Row) int {
	switch key {
	case SortDateAsc:
		return func(a, b Row) int { return a.Session.StartedAt.Compare(b.Session.StartedAt) }
	case SortAverageDesc:
		return func(a, b Row) int { return cmp.Compare(b.Summary.Mean, a.Summary.Mean) }
	case SortAverageAsc:
		return func(a, b Row) int { return cmp.Compare(a.Summary.Mean, b.Summary.Mean) }
	case SortCountDesc:
		return func(a, b Row) int { return cmp.Compare(b.Summary.Count, a.Summary.Count) }
	case SortCountAsc:
		return func(a, b Row) int { return cmp.Compare(a.Summary.Count, b.Summary.Count) }
	}
	return func(a, b Row) int { return b.Session.StartedAt.Compare(a.Session.StartedAt) }
}

// CompareRequest selects the players and window for Compare.
type CompareRequest struct {
	PlayerIDs []string
	Range     DateRange
	// Scores enumerates the distribution buckets.
	Scores model.ScoreRange
	// Threshold overrides each session's own favorable threshold when set.
	Threshold *int
}

// PlayerComparison is one player's numbers over the window. Values are not
// normalised against the other players.
type PlayerComparison struct {
	PlayerID     string      `json:"player_id"`
	Sessions     int         `json:"sessions"`
	Count        int         `json:"count"`
	Mean         float64     `json:"mean"`
	FavorablePct float64     `json:"favorable_pct"`
	Distribution map[int]int `json:"distribution"`
}

// Compare computes per-player statistics for 2 to 4 distinct players. A player
// without passes in the window gets zeros rather than being omitted.
func (e *Engine) Compare(sessions []model.Session, req CompareRequest) ([]PlayerComparison, error) {
	ids := req.PlayerIDs
	if len(ids) < minComparePlayers || len(ids) > maxComparePlayers {
		return nil, fmt.Errorf("%w: need %d to %d players, got %d", ErrInvalidComparison, minComparePlayers, maxComparePlayers, len(ids))
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: player %q listed twice", ErrInvalidComparison, id)
		}
		seen[id] = struct{}{}
	}

	now := e.now()
	out := make([]PlayerComparison, 0, len(ids))
	for _, id := range ids {
		var passes []model.Pass
		favorable, played := 0, 0
		for _, s := range sessions {
			if s.Active() || !req.Range.Contains(s.StartedAt, now) {
				continue
			}
			own := s.PassesBy(id)
			if len(own) == 0 {
				continue
			}
			threshold := s.Threshold
			if req.Threshold != nil {
				threshold = *req.Threshold
			}
			favorable += stats.FavorableCount(own, threshold)
			passes = append(passes, own...)
			played++
		}
		out = append(out, PlayerComparison{
			PlayerID:     id,
			Sessions:     played,
			Count:        stats.Count(passes),
			Mean:         stats.Mean(passes),
			FavorablePct: stats.Percent(favorable, len(passes)),
			Distribution: stats.Distribution(passes, req.Scores.Scores()),
		})
	}
	return out, nil
}

// BreakdownRequest selects what Breakdown groups.
type BreakdownRequest struct {
	Field model.Field
	// PlayerID limits the breakdown to one player when set.
	PlayerID string
	Range    DateRange
}

// Bucket is the statistics for one tag value.
type Bucket struct {
	Value        string  `json:"value"`
	Count        int     `json:"count"`
	Mean         float64 `json:"mean"`
	FavorablePct float64 `json:"favorable_pct"`
	// Share is the bucket's percentage of recorded passes.
	Share float64 `json:"share"`
}

// Breakdown is the per-value split of one tag field.
type Breakdown struct {
	Field    model.Field `json:"field"`
	Recorded int         `json:"recorded"`
	Unset    int         `json:"unset"`
	Buckets  []Bucket    `json:"buckets"`
}

// Breakdown groups passes by a tag field. Passes without a value are counted
// in Unset and kept out of every share.
func (e *Engine) Breakdown(sessions []model.Session, req BreakdownRequest) (Breakdown, error) {
	if !req.Field.Valid() {
		return Breakdown{}, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, req.Field)
	}

	now := e.now()
	type tally struct {
		passes    []model.Pass
		favorable int
	}
	groups := make(map[string]*tally)
	out := Breakdown{Field: req.Field}
	for _, s := range sessions {
		if s.Active() || !s.Fields.Enabled(req.Field) || !req.Range.Contains(s.StartedAt, now) {
			continue
		}
		passes := s.Passes
		if req.PlayerID != "" {
			passes = s.PassesBy(req.PlayerID)
		}
		byValue := stats.GroupBy(passes, stats.ByTag(req.Field))
		out.Unset += len(byValue[stats.Unset])
		for value, ps := range stats.Recorded(byValue) {
			g, ok := groups[value]
			if !ok {
				g = &tally{}
				groups[value] = g
			}
			g.passes = append(g.passes, ps...)
			g.favorable += stats.FavorableCount(ps, s.Threshold)
			out.Recorded += len(ps)
		}
	}

	for value, g := range groups {
		out.Buckets = append(out.Buckets, Bucket{
			Value:        value,
			Count:        len(g.passes),
			Mean:         stats.Mean(g.passes),
			FavorablePct: stats.Percent(g.favorable, len(g.passes)),
			Share:        stats.Percent(len(g.passes), out.Recorded),
		})
	}
	slices.SortFunc(out.Buckets, func(a, b Bucket) int { return strings.Compare(a.Value, b.Value) })
	return out, nil
}

// Point is one session in a player's trend.
type Point struct {
	SessionID    string    `json:"session_id"`
	StartedAt    time.Time `json:"started_at"`
	Count        int       `json:"count"`
	Mean         float64   `json:"mean"`
	FavorablePct float64   `json:"favorable_pct"`
}

// Trend returns the player's per-session numbers for the most recent limit
// sessions in which the player passed, oldest first. A limit of zero or less
// returns every session.
func (e *Engine) Trend(sessions []model.Session, playerID string, limit int) []Point {
	ordered := slices.Clone(sessions)
	slices.SortStableFunc(ordered, func(a, b model.Session) int { return a.StartedAt.Compare(b.StartedAt) })

	var points []Point
	for _, s := range ordered {
		if s.Active() {
			continue
		}
		own := s.PassesBy(playerID)
		if len(own) == 0 {
			continue
		}
		sum := stats.Summarize(own, s.Threshold)
		points = append(points, Point{
			SessionID:    s.ID,
			StartedAt:    s.StartedAt,
			Count:        sum.Count,
			Mean:         sum.Mean,
			FavorablePct: sum.FavorablePct,
		})
	}
	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}
	return points
}
