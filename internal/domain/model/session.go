package model

import (
	"slices"
	"time"
)

// Session is one timed tracking activity. It owns its passes by value, so
// dropping a session drops its passes with it.
type Session struct {
	ID        string     `json:"id"`
	TeamID    string     `json:"team_id"`
	TeamName  string     `json:"team_name"`
	PlayerIDs []string   `json:"player_ids"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Passes    []Pass     `json:"passes"`
	Fields    Fields     `json:"fields"`
	Threshold int        `json:"threshold"`
}

// Active reports whether the session has not been completed yet.
func (s Session) Active() bool { return s.EndedAt == nil }

// Includes reports whether playerID is part of the roster snapshot.
func (s Session) Includes(playerID string) bool {
	return slices.Contains(s.PlayerIDs, playerID)
}

// PassesBy returns the passes credited to playerID in ordinal order.
func (s Session) PassesBy(playerID string) []Pass {
	var out []Pass
	for _, p := range s.Passes {
		if p.PlayerID == playerID {
			out = append(out, p)
		}
	}
	return out
}

// Duration is the wall time covered by the session. Active sessions are
// measured up to now.
func (s Session) Duration(now time.Time) time.Duration {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// Passers resolves the roster snapshot against team, keeping snapshot order.
// Players removed from the team since the session started are skipped.
func (s Session) Passers(team Team) []Player {
	out := make([]Player, 0, len(s.PlayerIDs))
	for _, id := range s.PlayerIDs {
		if p, ok := team.Player(id); ok {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	out := s
	out.PlayerIDs = append([]string(nil), s.PlayerIDs...)
	out.Passes = append([]Pass(nil), s.Passes...)
	if s.EndedAt != nil {
		end := *s.EndedAt
		out.EndedAt = &end
	}
	return out
}
