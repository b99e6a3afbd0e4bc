package session

import "github.com/okian/passtrack/internal/domain/model"

// LiveStat is a player's running total within the active session.
type LiveStat struct {
	Count int `json:"count"`
	Sum   int `json:"sum"`
}

// Mean returns Sum/Count, or 0 when nothing has been logged.
func (s LiveStat) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Sum) / float64(s.Count)
}

// LiveCache keeps per-player running totals in step with the session log.
// Apply and Reverse are exact inverses, so logging a pass and undoing it
// leaves the cache as it was.
type LiveCache struct {
	entries map[string]LiveStat
}

// NewLiveCache returns a cache with a zeroed entry for every player.
func NewLiveCache(playerIDs []string) *LiveCache {
	c := &LiveCache{entries: make(map[string]LiveStat, len(playerIDs))}
	for _, id := range playerIDs {
		c.entries[id] = LiveStat{}
	}
	return c
}

// Apply adds p to its player's totals.
func (c *LiveCache) Apply(p model.Pass) {
	e := c.entries[p.PlayerID]
	e.Count++
	e.Sum += p.Score
	c.entries[p.PlayerID] = e
}

// Reverse removes p from its player's totals.
func (c *LiveCache) Reverse(p model.Pass) {
	e := c.entries[p.PlayerID]
	e.Count--
	e.Sum -= p.Score
	c.entries[p.PlayerID] = e
}

// Get returns the totals for playerID.
func (c *LiveCache) Get(playerID string) (LiveStat, bool) {
	e, ok := c.entries[playerID]
	return e, ok
}

// Total sums every player's entry.
func (c *LiveCache) Total() LiveStat {
	var t LiveStat
	for _, e := range c.entries {
		t.Count += e.Count
		t.Sum += e.Sum
	}
	return t
}

// Snapshot copies the entries.
func (c *LiveCache) Snapshot() map[string]LiveStat {
	out := make(map[string]LiveStat, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
