// Package sqlite provides a SQLite-backed session and team store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/passtrack/internal/adapters/repository"
	"github.com/okian/passtrack/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/passtrack/internal/domain/model"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Store persists sessions and teams in SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ repository.Store     = (*Store)(nil)
	_ repository.TeamStore = (*Store)(nil)
)

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps writes serialised.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save implements repository.Store. The session's rows are replaced as a whole.
func (s *Store) Save(ctx context.Context, sess model.Session) error {
	const op = "save session"
	if strings.TrimSpace(sess.ID) == "" {
		return repository.Persistence(op, fmt.Errorf("session id is required"))
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteSessionChildren(ctx, tx, sess.ID); err != nil {
			return err
		}
		var ended sql.NullInt64
		if sess.EndedAt != nil {
			ended = sql.NullInt64{Int64: toMillis(*sess.EndedAt), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, team_id, team_name, started_at, ended_at, threshold,
			                       field_zone, field_contact, field_body, field_serve)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   team_id = excluded.team_id,
			   team_name = excluded.team_name,
			   started_at = excluded.started_at,
			   ended_at = excluded.ended_at,
			   threshold = excluded.threshold,
			   field_zone = excluded.field_zone,
			   field_contact = excluded.field_contact,
			   field_body = excluded.field_body,
			   field_serve = excluded.field_serve`,
			sess.ID, sess.TeamID, sess.TeamName, toMillis(sess.StartedAt), ended, sess.Threshold,
			boolInt(sess.Fields.Zone), boolInt(sess.Fields.Contact), boolInt(sess.Fields.Body), boolInt(sess.Fields.Serve),
		); err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		for i, id := range sess.PlayerIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO session_players (session_id, position_idx, player_id) VALUES (?, ?, ?)`,
				sess.ID, i, id,
			); err != nil {
				return fmt.Errorf("insert session player: %w", err)
			}
		}
		for _, p := range sess.Passes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO passes (session_id, ordinal, id, player_id, score,
				                     tag_zone, tag_contact, tag_body, tag_serve, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sess.ID, p.Ordinal, p.ID, p.PlayerID, p.Score,
				p.Tags.Zone, p.Tags.Contact, p.Tags.Body, p.Tags.Serve, toMillis(p.CreatedAt),
			); err != nil {
				return fmt.Errorf("insert pass %d: %w", p.Ordinal, err)
			}
		}
		return nil
	})
	return repository.Persistence(op, err)
}

// FetchAll implements repository.Store.
func (s *Store) FetchAll(ctx context.Context) ([]model.Session, error) {
	return s.FetchWhere(ctx, nil)
}

// FetchWhere implements repository.Store. The predicate runs in Go after the
// sessions are loaded.
func (s *Store) FetchWhere(ctx context.Context, pred repository.Predicate) ([]model.Session, error) {
	sessions, err := s.loadSessions(ctx, "")
	if err != nil {
		return nil, repository.Persistence("fetch sessions", err)
	}
	if pred == nil {
		return sessions, nil
	}
	out := sessions[:0]
	for _, sess := range sessions {
		if pred(sess) {
			out = append(out, sess)
		}
	}
	return out, nil
}

// Get implements repository.Store.
func (s *Store) Get(ctx context.Context, id string) (model.Session, error) {
	sessions, err := s.loadSessions(ctx, id)
	if err != nil {
		return model.Session{}, repository.Persistence("get session", err)
	}
	if len(sessions) == 0 {
		return model.Session{}, fmt.Errorf("session %q: %w", id, repository.ErrNotFound)
	}
	return sessions[0], nil
}

// Delete implements repository.Store. Passes and roster rows are removed in
// the same transaction as the session row.
func (s *Store) Delete(ctx context.Context, id string) error {
	var missing bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteSessionChildren(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		missing = n == 0
		return nil
	})
	if err != nil {
		return repository.Persistence("delete session", err)
	}
	if missing {
		return fmt.Errorf("session %q: %w", id, repository.ErrNotFound)
	}
	return nil
}

func deleteSessionChildren(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM passes WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete passes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_players WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session players: %w", err)
	}
	return nil
}

// loadSessions reads sessions with their roster and passes. An empty id loads
// every session.
func (s *Store) loadSessions(ctx context.Context, id string) ([]model.Session, error) {
	where, args := "", []any{}
	if id != "" {
		where, args = " WHERE id = ?", []any{id}
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, team_id, team_name, started_at, ended_at, threshold,
		        field_zone, field_contact, field_body, field_serve
		   FROM sessions`+where+`
		  ORDER BY started_at, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	var sessions []model.Session
	index := make(map[string]int)
	for rows.Next() {
		var (
			sess    model.Session
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&sess.ID, &sess.TeamID, &sess.TeamName, &started, &ended, &sess.Threshold,
			&sess.Fields.Zone, &sess.Fields.Contact, &sess.Fields.Body, &sess.Fields.Serve); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt = fromMillis(started)
		if ended.Valid {
			end := fromMillis(ended.Int64)
			sess.EndedAt = &end
		}
		index[sess.ID] = len(sessions)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	_ = rows.Close()
	if len(sessions) == 0 {
		return nil, nil
	}

	childWhere := ""
	if id != "" {
		childWhere = " WHERE session_id = ?"
	}
	if err := s.loadRosters(ctx, childWhere, args, sessions, index); err != nil {
		return nil, err
	}
	if err := s.loadPasses(ctx, childWhere, args, sessions, index); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Store) loadRosters(ctx context.Context, where string, args []any, sessions []model.Session, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, player_id FROM session_players`+where+` ORDER BY session_id, position_idx`, args...)
	if err != nil {
		return fmt.Errorf("query session players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sessionID, playerID string
		if err := rows.Scan(&sessionID, &playerID); err != nil {
			return fmt.Errorf("scan session player: %w", err)
		}
		if i, ok := index[sessionID]; ok {
			sessions[i].PlayerIDs = append(sessions[i].PlayerIDs, playerID)
		}
	}
	return rows.Err()
}

func (s *Store) loadPasses(ctx context.Context, where string, args []any, sessions []model.Session, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, ordinal, id, player_id, score, tag_zone, tag_contact, tag_body, tag_serve, created_at
		   FROM passes`+where+` ORDER BY session_id, ordinal`, args...)
	if err != nil {
		return fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sessionID string
			p         model.Pass
			created   int64
		)
		if err := rows.Scan(&sessionID, &p.Ordinal, &p.ID, &p.PlayerID, &p.Score,
			&p.Tags.Zone, &p.Tags.Contact, &p.Tags.Body, &p.Tags.Serve, &created); err != nil {
			return fmt.Errorf("scan pass: %w", err)
		}
		p.CreatedAt = fromMillis(created)
		if i, ok := index[sessionID]; ok {
			sessions[i].Passes = append(sessions[i].Passes, p)
		}
	}
	return rows.Err()
}

// SaveTeam implements repository.TeamStore.
func (s *Store) SaveTeam(ctx context.Context, t model.Team) error {
	const op = "save team"
	if strings.TrimSpace(t.ID) == "" {
		return repository.Persistence(op, fmt.Errorf("team id is required"))
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM players WHERE team_id = ?`, t.ID); err != nil {
			return fmt.Errorf("delete players: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teams (id, name, created_at, threshold, venue) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   name = excluded.name,
			   created_at = excluded.created_at,
			   threshold = excluded.threshold,
			   venue = excluded.venue`,
			t.ID, t.Name, toMillis(t.CreatedAt), t.Threshold, string(t.Venue),
		); err != nil {
			return fmt.Errorf("upsert team: %w", err)
		}
		for i, p := range t.Players {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO players (team_id, position_idx, id, name, number, position, active)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				t.ID, i, p.ID, p.Name, p.Number, p.Position, boolInt(p.Active),
			); err != nil {
				return fmt.Errorf("insert player %q: %w", p.ID, err)
			}
		}
		return nil
	})
	return repository.Persistence(op, err)
}

// Team implements repository.TeamStore.
func (s *Store) Team(ctx context.Context, id string) (model.Team, error) {
	teams, err := s.loadTeams(ctx, id)
	if err != nil {
		return model.Team{}, repository.Persistence("get team", err)
	}
	if len(teams) == 0 {
		return model.Team{}, fmt.Errorf("team %q: %w", id, repository.ErrNotFound)
	}
	return teams[0], nil
}

// Teams implements repository.TeamStore.
func (s *Store) Teams(ctx context.Context) ([]model.Team, error) {
	teams, err := s.loadTeams(ctx, "")
	if err != nil {
		return nil, repository.Persistence("list teams", err)
	}
	return teams, nil
}

func (s *Store) loadTeams(ctx context.Context, id string) ([]model.Team, error) {
	where, args := "", []any{}
	if id != "" {
		where, args = " WHERE id = ?", []any{id}
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, threshold, venue FROM teams`+where+` ORDER BY name, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	var teams []model.Team
	index := make(map[string]int)
	for rows.Next() {
		var (
			t       model.Team
			created int64
			venue   string
		)
		if err := rows.Scan(&t.ID, &t.Name, &created, &t.Threshold, &venue); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan team: %w", err)
		}
		t.CreatedAt = fromMillis(created)
		t.Venue = model.Venue(venue)
		index[t.ID] = len(teams)
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	_ = rows.Close()
	if len(teams) == 0 {
		return nil, nil
	}

	playerWhere := ""
	if id != "" {
		playerWhere = " WHERE team_id = ?"
	}
	prows, err := s.db.QueryContext(ctx,
		`SELECT team_id, id, name, number, position, active FROM players`+playerWhere+` ORDER BY team_id, position_idx`, args...)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var (
			teamID string
			p      model.Player
		)
		if err := prows.Scan(&teamID, &p.ID, &p.Name, &p.Number, &p.Position, &p.Active); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		if i, ok := index[teamID]; ok {
			teams[i].Players = append(teams[i].Players, p)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return teams, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
