package simulate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/internal/domain/stats"
	"github.com/okian/passtrack/pkg/logger"
)

// ErrVerification is returned when the server disagrees with the local model.
var ErrVerification = errors.New("verification failed")

// floatTolerance absorbs rounding in JSON encoded averages.
const floatTolerance = 1e-9

// Run executes a full simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	st := Stats{StartTime: time.Now()}
	if err := cfg.Validate(); err != nil {
		return st, err
	}
	r := &runner{
		cfg:     cfg,
		client:  NewClient(cfg.BaseURL, cfg.Timeout),
		planner: newPlanner(cfg),
		log:     logger.Nop(),
		stats:   &st,
	}

	if cfg.Logger != nil {
		r.log = cfg.Logger
	}

	r.log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("passes", cfg.Passes),
		logger.Int("players", cfg.Players),
		logger.Any("seed", cfg.Seed))

	err := r.run(ctx)
	st.EndTime = time.Now()
	st.Duration = st.EndTime.Sub(st.StartTime)
	if err == nil && st.Mismatches > 0 {
		err = fmt.Errorf("%w: %d mismatches", ErrVerification, st.Mismatches)
	}

	r.log.Info(ctx, "simulation finished",
		logger.Int("sessions", st.Sessions),
		logger.Int("passes", st.Passes),
		logger.Int("undos", st.Undos),
		logger.Int("duplicates", st.Duplicates),
		logger.Int("mismatches", st.Mismatches),
		logger.Duration("duration", st.Duration))
	return st, err
}

type runner struct {
	cfg     Config
	client  *Client
	planner *planner
	log     logger.Logger
	stats   *Stats
}

func (r *runner) run(ctx context.Context) error {
	if err := r.client.Health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	server, err := r.client.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read server stats: %w", err)
	}
	scores := model.ScoreRange{Min: server.ScoreMin, Max: server.ScoreMax}
	if scores.Max < scores.Min {
		return fmt.Errorf("server reported empty score range %d..%d", scores.Min, scores.Max)
	}

	players := playerIDs(r.cfg.Players)
	teamID := "sim-" + uuid.NewString()
	if _, err := r.client.PutTeam(ctx, teamRequest(teamID, players)); err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	for i := range r.cfg.Sessions {
		if err := r.session(ctx, teamID, players, scores); err != nil {
			return fmt.Errorf("session %d: %w", i+1, err)
		}
	}

	rows, err := r.client.History(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(rows) != r.cfg.Sessions {
		r.mismatch(ctx, "history size", logger.Int("want", r.cfg.Sessions), logger.Int("got", len(rows)))
	}
	return nil
}

func teamRequest(id string, players []string) TeamRequest {
	req := TeamRequest{ID: id, Name: "Simulated " + id[len(id)-8:]}
	for i, p := range players {
		req.Players = append(req.Players, TeamPlayer{ID: p, Name: "Player " + p, Number: i + 1})
	}
	return req
}

// session plays one planned session and verifies what the server stored.
func (r *runner) session(ctx context.Context, teamID string, players []string, scores model.ScoreRange) error {
	sess, err := r.client.StartSession(ctx, StartRequest{
		TeamID:    teamID,
		PlayerIDs: players,
		Fields:    r.planner.fields(),
	})
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	r.log.Debug(ctx, "session started", logger.String("session", sess.ID))

	var local []model.Pass
	for _, a := range r.planner.plan(players, scores) {
		switch a.kind {
		case actionUndo:
			local, err = r.undo(ctx, local)
		case actionPass:
			local, err = r.pass(ctx, local, a)
		}
		if err != nil {
			return err
		}
	}

	done, ok, err := r.client.Complete(ctx)
	if err != nil {
		return fmt.Errorf("complete: %w", err)
	}
	if !ok || done.ID != sess.ID {
		r.mismatch(ctx, "completed session", logger.String("want", sess.ID), logger.String("got", done.ID))
		return nil
	}
	r.stats.Sessions++
	return r.verify(ctx, sess.ID, sess.Threshold, local)
}

func (r *runner) pass(ctx context.Context, local []model.Pass, a action) ([]model.Pass, error) {
	req := PassRequest{RequestID: a.requestID, PlayerID: a.playerID, Score: a.score, Tags: a.tags}
	res, err := r.client.LogPass(ctx, req)
	if err != nil {
		return local, fmt.Errorf("log pass: %w", err)
	}
	r.stats.Passes++
	r.log.Debug(ctx, "pass logged",
		logger.String("player", a.playerID),
		logger.Int("score", a.score),
		logger.Uint64("version", res.Version))

	if a.resend {
		again, err := r.client.LogPass(ctx, req)
		if err != nil {
			return local, fmt.Errorf("resend pass: %w", err)
		}
		r.stats.Duplicates++
		if !again.Duplicate || again.Pass.ID != res.Pass.ID {
			r.mismatch(ctx, "duplicate pass", logger.String("request", a.requestID))
		}
	}
	return append(local, res.Pass), nil
}

func (r *runner) undo(ctx context.Context, local []model.Pass) ([]model.Pass, error) {
	p, err := r.client.Undo(ctx)
	if len(local) == 0 {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Code != "empty_log" {
			r.mismatch(ctx, "undo on empty log", logger.Any("error", err))
		}
		return local, nil
	}
	if err != nil {
		return local, fmt.Errorf("undo: %w", err)
	}
	r.stats.Undos++
	last := local[len(local)-1]
	if p.ID != last.ID {
		r.mismatch(ctx, "undone pass", logger.String("want", last.ID), logger.String("got", p.ID))
	}
	return local[:len(local)-1], nil
}

// verify compares the stored session with statistics computed locally.
func (r *runner) verify(ctx context.Context, id string, threshold int, local []model.Pass) error {
	detail, err := r.client.Session(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch session: %w", err)
	}
	want := stats.Summarize(local, threshold)
	if !sameSummary(want, detail.Summary) {
		r.mismatch(ctx, "session summary", logger.String("session", id),
			logger.Any("want", want), logger.Any("got", detail.Summary))
	}
	for player, passes := range stats.GroupBy(local, stats.ByPlayer) {
		expected := stats.Summarize(passes, threshold)
		if !sameSummary(expected, detail.PerPlayer[player]) {
			r.mismatch(ctx, "player summary", logger.String("session", id), logger.String("player", player),
				logger.Any("want", expected), logger.Any("got", detail.PerPlayer[player]))
		}
	}
	return nil
}

func sameSummary(a, b stats.Summary) bool {
	return a.Count == b.Count &&
		math.Abs(a.Mean-b.Mean) < floatTolerance &&
		math.Abs(a.FavorablePct-b.FavorablePct) < floatTolerance
}

func (r *runner) mismatch(ctx context.Context, what string, fields ...logger.Field) {
	r.stats.Mismatches++
	r.log.Warn(ctx, "mismatch: "+what, fields...)
}
