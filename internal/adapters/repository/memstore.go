package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/okian/passtrack/internal/domain/model"
)

// MemStore keeps sessions and teams in memory. Values are copied in and out
// so callers can never mutate stored state.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	order    []string
	teams    map[string]model.Team
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string]model.Session),
		teams:    make(map[string]model.Team),
	}
}

var (
	_ Store     = (*MemStore)(nil)
	_ TeamStore = (*MemStore)(nil)
)

// Save implements Store.
func (m *MemStore) Save(ctx context.Context, s model.Session) error {
	if err := ctx.Err(); err != nil {
		return Persistence("save session", err)
	}
	if strings.TrimSpace(s.ID) == "" {
		return Persistence("save session", fmt.Errorf("session id is required"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		m.order = append(m.order, s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

// FetchAll implements Store.
func (m *MemStore) FetchAll(ctx context.Context) ([]model.Session, error) {
	return m.FetchWhere(ctx, nil)
}

// FetchWhere implements Store.
func (m *MemStore) FetchWhere(ctx context.Context, pred Predicate) ([]model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, Persistence("fetch sessions", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Session, 0, len(m.order))
	for _, id := range m.order {
		s := m.sessions[id]
		if pred != nil && !pred(s) {
			continue
		}
		out = append(out, s.Clone())
	}
	slices.SortStableFunc(out, func(a, b model.Session) int { return a.StartedAt.Compare(b.StartedAt) })
	return out, nil
}

// Get implements Store.
func (m *MemStore) Get(ctx context.Context, id string) (model.Session, error) {
	if err := ctx.Err(); err != nil {
		return model.Session{}, Persistence("get session", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.Session{}, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return s.Clone(), nil
}

// Delete implements Store. The session's passes go with it.
func (m *MemStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return Persistence("delete session", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	delete(m.sessions, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })
	return nil
}

// SaveTeam implements TeamStore.
func (m *MemStore) SaveTeam(ctx context.Context, t model.Team) error {
	if err := ctx.Err(); err != nil {
		return Persistence("save team", err)
	}
	if strings.TrimSpace(t.ID) == "" {
		return Persistence("save team", fmt.Errorf("team id is required"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[t.ID] = t.Clone()
	return nil
}

// Team implements TeamStore.
func (m *MemStore) Team(ctx context.Context, id string) (model.Team, error) {
	if err := ctx.Err(); err != nil {
		return model.Team{}, Persistence("get team", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return model.Team{}, fmt.Errorf("team %q: %w", id, ErrNotFound)
	}
	return t.Clone(), nil
}

// Teams implements TeamStore.
func (m *MemStore) Teams(ctx context.Context) ([]model.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, Persistence("list teams", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b model.Team) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
