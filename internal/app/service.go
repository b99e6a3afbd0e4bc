// Package service hosts the session tracker, the stores and the history
// engine behind one writer lock. It is what the HTTP API talks to.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/passtrack/internal/adapters/repository"
	"github.com/okian/passtrack/internal/domain/dedupe"
	"github.com/okian/passtrack/internal/domain/history"
	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/internal/domain/session"
	"github.com/okian/passtrack/internal/domain/stats"
	"github.com/okian/passtrack/pkg/logger"
	"github.com/okian/passtrack/pkg/metrics"
)

// Service serialises every tracker mutation behind mu. Reads of stored
// history go straight to the store.
type Service struct {
	mu sync.Mutex

	sessions repository.Store
	teams    repository.TeamStore
	tracker  *session.Tracker
	history  *history.Engine
	deduper  dedupe.Deduper

	// Request ids of the passes in the active session, both ways, so a
	// duplicate can return the original pass and undo can forget its id.
	passByRequest map[string]string
	requestByPass map[string]string

	scores           model.ScoreRange
	defaultThreshold int
	dedupeSize       int
	now              func() time.Time
	newID            func() string

	logger logger.Logger
}

// New wires a Service over the given stores.
func New(sessions repository.Store, teams repository.TeamStore, opts ...Option) *Service {
	s := &Service{
		sessions:         sessions,
		teams:            teams,
		scores:           model.DefaultScoreRange,
		defaultThreshold: 2,
		dedupeSize:       10_000,
		now:              time.Now,
		newID:            uuid.NewString,
		passByRequest:    make(map[string]string),
		requestByPass:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.history = history.NewEngine(history.WithClock(s.now))
	s.tracker = session.NewTracker(&recordingSaver{store: sessions},
		session.WithScoreRange(s.scores),
		session.WithClock(s.now),
		session.WithIDGenerator(s.newID),
		session.WithLogger(s.logger.Named("tracker")),
	)
	return s
}

// recordingSaver counts persistence failures before handing them back.
type recordingSaver struct {
	store repository.Store
}

func (r *recordingSaver) Save(ctx context.Context, sess model.Session) error {
	if err := r.store.Save(ctx, sess); err != nil {
		metrics.RecordPersistenceError("save")
		return err
	}
	return nil
}

// Stop releases stores that hold resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed := make(map[any]struct{})
	for _, store := range []any{s.sessions, s.teams} {
		if _, done := closed[store]; done {
			continue
		}
		closed[store] = struct{}{}
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
			}
		}
	}
	s.logger.Info(context.Background(), "service stopped")
}

// ScoreRange returns the configured scoring system.
func (s *Service) ScoreRange() model.ScoreRange { return s.scores }

// TeamInput creates or replaces a team. An empty ID creates a new team.
type TeamInput struct {
	ID        string
	Name      string
	Players   []model.Player
	Threshold *int
	Venue     model.Venue
}

// SaveTeam validates and stores a team.
func (s *Service) SaveTeam(ctx context.Context, in TeamInput) (model.Team, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Team{}, fmt.Errorf("%w: name is required", ErrInvalidTeam)
	}
	seen := make(map[string]struct{}, len(in.Players))
	players := make([]model.Player, 0, len(in.Players))
	for _, p := range in.Players {
		if strings.TrimSpace(p.Name) == "" {
			return model.Team{}, fmt.Errorf("%w: player name is required", ErrInvalidTeam)
		}
		if p.ID == "" {
			p.ID = s.newID()
		}
		if _, dup := seen[p.ID]; dup {
			return model.Team{}, fmt.Errorf("%w: player %q listed twice", ErrInvalidTeam, p.ID)
		}
		seen[p.ID] = struct{}{}
		players = append(players, p)
	}

	threshold := s.defaultThreshold
	if in.Threshold != nil {
		threshold = *in.Threshold
	}
	if !s.scores.Contains(threshold) {
		return model.Team{}, fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}

	team := model.Team{
		ID:        in.ID,
		Name:      name,
		Players:   players,
		Threshold: threshold,
		Venue:     in.Venue,
		CreatedAt: s.now(),
	}
	if team.ID == "" {
		team.ID = s.newID()
	} else if existing, err := s.teams.Team(ctx, team.ID); err == nil {
		team.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Team{}, s.persistenceFailed(ctx, "get_team", err)
	}

	if err := s.teams.SaveTeam(ctx, team); err != nil {
		return model.Team{}, s.persistenceFailed(ctx, "save_team", err)
	}
	s.logger.Info(ctx, "team saved",
		logger.String("team_id", team.ID),
		logger.Int("players", len(team.Players)))
	return team, nil
}

// Team returns one team.
func (s *Service) Team(ctx context.Context, id string) (model.Team, error) {
	t, err := s.teams.Team(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.Team{}, s.persistenceFailed(ctx, "get_team", err)
	}
	return t, err
}

// Teams lists every team.
func (s *Service) Teams(ctx context.Context) ([]model.Team, error) {
	teams, err := s.teams.Teams(ctx)
	if err != nil {
		return nil, s.persistenceFailed(ctx, "list_teams", err)
	}
	return teams, nil
}

// StartInput describes a session to start.
type StartInput struct {
	TeamID    string
	PlayerIDs []string
	Fields    model.Fields
	Threshold *int
}

// StartSession begins a session for a stored team. A session already in
// progress is completed first.
func (s *Service) StartSession(ctx context.Context, in StartInput) (model.Session, error) {
	team, err := s.Team(ctx, in.TeamID)
	if err != nil {
		metrics.RecordRejected("start", "team")
		return model.Session{}, err
	}
	if in.Threshold != nil && !s.scores.Contains(*in.Threshold) {
		metrics.RecordRejected("start", "threshold")
		return model.Session{}, fmt.Errorf("%w: %d", ErrInvalidThreshold, *in.Threshold)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, hadActive := s.tracker.Snapshot()
	sess, err := s.tracker.Start(ctx, session.StartRequest{
		Team:      team,
		PlayerIDs: in.PlayerIDs,
		Fields:    in.Fields,
		Threshold: in.Threshold,
	})
	if err != nil {
		metrics.RecordRejected("start", reason(err))
		return model.Session{}, err
	}
	if hadActive {
		metrics.RecordSessionCompleted()
		s.logger.Info(ctx, "previous session auto-completed", logger.String("session_id", previous.ID))
	}
	s.resetRequests(ctx)
	metrics.RecordSessionStarted()
	metrics.UpdateActiveSession(true, 0)
	return sess, nil
}

// LogInput is one pass submission. RequestID is optional; when set, a repeat
// submission returns the pass it produced the first time.
type LogInput struct {
	RequestID string
	PlayerID  string
	Score     int
	Tags      model.Tags
}

// LogResult reports the logged pass and whether the submission was a repeat.
type LogResult struct {
	Pass      model.Pass `json:"pass"`
	Duplicate bool       `json:"duplicate"`
	Version   uint64     `json:"version"`
}

// LogPass records a pass on the active session.
func (s *Service) LogPass(ctx context.Context, in LogInput) (LogResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tracker.Active() {
		metrics.RecordRejected("log_pass", reason(session.ErrNotActive))
		return LogResult{}, session.ErrNotActive
	}
	if in.RequestID != "" && s.deduper.SeenAndRecord(ctx, in.RequestID) {
		metrics.RecordPassDuplicate()
		res := LogResult{Duplicate: true, Version: s.tracker.Version()}
		if snap, ok := s.tracker.Snapshot(); ok {
			passID := s.passByRequest[in.RequestID]
			for _, p := range snap.Passes {
				if p.ID == passID {
					res.Pass = p
					break
				}
			}
		}
		s.logger.Debug(ctx, "duplicate pass submission", logger.String("request_id", in.RequestID))
		return res, nil
	}

	p, err := s.tracker.LogPass(ctx, in.PlayerID, in.Score, in.Tags)
	if err != nil {
		if in.RequestID != "" {
			s.deduper.Unrecord(ctx, in.RequestID)
		}
		metrics.RecordRejected("log_pass", reason(err))
		return LogResult{}, err
	}
	if in.RequestID != "" {
		s.passByRequest[in.RequestID] = p.ID
		s.requestByPass[p.ID] = in.RequestID
	}
	metrics.RecordPassLogged(strconv.Itoa(p.Score))
	s.updateActiveGauge()
	return LogResult{Pass: p, Version: s.tracker.Version()}, nil
}

// Undo removes the latest pass of the active session.
func (s *Service) Undo(ctx context.Context) (model.Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.tracker.Undo(ctx)
	if err != nil {
		metrics.RecordRejected("undo", reason(err))
		return model.Pass{}, err
	}
	if req, ok := s.requestByPass[p.ID]; ok {
		s.deduper.Unrecord(ctx, req)
		delete(s.requestByPass, p.ID)
		delete(s.passByRequest, req)
	}
	metrics.RecordPassUndone()
	s.updateActiveGauge()
	return p, nil
}

// Complete ends the active session. The boolean is false when there was none.
func (s *Service) Complete(ctx context.Context) (model.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	done, ok, err := s.tracker.Complete(ctx)
	if err != nil {
		return model.Session{}, false, err
	}
	if ok {
		s.resetRequests(ctx)
		metrics.RecordSessionCompleted()
		metrics.UpdateActiveSession(false, 0)
	}
	return done, ok, nil
}

// ActiveView is the live state of the session in progress.
type ActiveView struct {
	Session model.Session         `json:"session"`
	Version uint64                `json:"version"`
	Team    session.PlayerStats   `json:"team"`
	Players []session.PlayerStats `json:"players"`
}

// Active returns the live view, or session.ErrNotActive when idle.
func (s *Service) Active(_ context.Context) (ActiveView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.tracker.Snapshot()
	if !ok {
		return ActiveView{}, session.ErrNotActive
	}
	team, err := s.tracker.TeamStats()
	if err != nil {
		return ActiveView{}, err
	}
	view := ActiveView{Session: snap, Version: s.tracker.Version(), Team: team}
	for _, id := range snap.PlayerIDs {
		ps, err := s.tracker.PlayerStats(id)
		if err != nil {
			return ActiveView{}, err
		}
		view.Players = append(view.Players, ps)
	}
	return view, nil
}

// History runs a filtered query over stored sessions.
func (s *Service) History(ctx context.Context, f history.Filter) ([]history.Row, error) {
	defer s.observe("history", s.now())
	all, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.history.Query(all, f)
}

// SessionDetail is a stored session with its resolved roster and numbers.
type SessionDetail struct {
	Session   model.Session            `json:"session"`
	Summary   stats.Summary            `json:"summary"`
	Passers   []model.Player           `json:"passers"`
	PerPlayer map[string]stats.Summary `json:"per_player"`
}

// Session returns one stored session. Players no longer on the team are
// left out of Passers but keep their numbers.
func (s *Service) Session(ctx context.Context, id string) (SessionDetail, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SessionDetail{}, err
		}
		return SessionDetail{}, s.persistenceFailed(ctx, "get_session", err)
	}
	detail := SessionDetail{
		Session:   sess,
		Summary:   stats.Summarize(sess.Passes, sess.Threshold),
		PerPlayer: make(map[string]stats.Summary, len(sess.PlayerIDs)),
	}
	for playerID, passes := range stats.GroupBy(sess.Passes, stats.ByPlayer) {
		detail.PerPlayer[playerID] = stats.Summarize(passes, sess.Threshold)
	}
	team, err := s.teams.Team(ctx, sess.TeamID)
	switch {
	case err == nil:
		detail.Passers = sess.Passers(team)
	case errors.Is(err, repository.ErrNotFound):
		detail.Passers = []model.Player{}
	default:
		return SessionDetail{}, s.persistenceFailed(ctx, "get_team", err)
	}
	return detail, nil
}

// DeleteSession removes a stored session and its passes.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return s.persistenceFailed(ctx, "delete_session", err)
	}
	metrics.RecordSessionDeleted()
	s.logger.Info(ctx, "session deleted", logger.String("session_id", id))
	return nil
}

// Compare compares 2 to 4 players over stored sessions.
func (s *Service) Compare(ctx context.Context, req history.CompareRequest) ([]history.PlayerComparison, error) {
	defer s.observe("compare", s.now())
	all, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	req.Scores = s.scores
	return s.history.Compare(all, req)
}

// Breakdown splits stored passes by one tag field.
func (s *Service) Breakdown(ctx context.Context, req history.BreakdownRequest) (history.Breakdown, error) {
	defer s.observe("breakdown", s.now())
	all, err := s.fetchAll(ctx)
	if err != nil {
		return history.Breakdown{}, err
	}
	return s.history.Breakdown(all, req)
}

// Trend returns a player's recent per-session numbers.
func (s *Service) Trend(ctx context.Context, playerID string, limit int) ([]history.Point, error) {
	defer s.observe("trend", s.now())
	sessions, err := s.sessions.FetchWhere(ctx, func(sess model.Session) bool { return sess.Includes(playerID) })
	if err != nil {
		return nil, s.persistenceFailed(ctx, "fetch_sessions", err)
	}
	return s.history.Trend(sessions, playerID, limit), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.Lock()
	snap, active := s.tracker.Snapshot()
	version := s.tracker.Version()
	s.mu.Unlock()

	out := map[string]any{
		"active":       active,
		"version":      version,
		"dedupeSize":   s.deduper.Size(),
		"scoreMin":     s.scores.Min,
		"scoreMax":     s.scores.Max,
		"activePasses": len(snap.Passes),
	}
	if all, err := s.sessions.FetchAll(ctx); err == nil {
		out["storedSessions"] = len(all)
		metrics.UpdateStoredSessions(len(all))
	} else {
		s.logger.Warn(ctx, "counting stored sessions failed", logger.Error(err))
	}
	metrics.UpdateActiveSession(active, len(snap.Passes))
	return out
}

func (s *Service) fetchAll(ctx context.Context) ([]model.Session, error) {
	all, err := s.sessions.FetchAll(ctx)
	if err != nil {
		return nil, s.persistenceFailed(ctx, "fetch_sessions", err)
	}
	return all, nil
}

func (s *Service) persistenceFailed(ctx context.Context, op string, err error) error {
	metrics.RecordPersistenceError(op)
	s.logger.Error(ctx, "storage operation failed", logger.String("op", op), logger.Error(err))
	return err
}

func (s *Service) observe(query string, start time.Time) {
	metrics.RecordQueryLatency(query, float64(s.now().Sub(start).Microseconds())/1000)
}

// updateActiveGauge must be called with mu held.
func (s *Service) updateActiveGauge() {
	snap, ok := s.tracker.Snapshot()
	metrics.UpdateActiveSession(ok, len(snap.Passes))
}

// resetRequests forgets the request ids of the session that just ended. It
// must be called with mu held.
func (s *Service) resetRequests(ctx context.Context) {
	s.deduper.Reset(ctx)
	clear(s.passByRequest)
	clear(s.requestByPass)
}

// reason maps a domain error to a short metrics label.
func reason(err error) string {
	switch {
	case errors.Is(err, session.ErrNotActive):
		return "not_active"
	case errors.Is(err, session.ErrInvalidScore):
		return "invalid_score"
	case errors.Is(err, session.ErrInvalidRoster):
		return "invalid_roster"
	case errors.Is(err, session.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, session.ErrEmptyLog):
		return "empty_log"
	case errors.Is(err, repository.ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}
