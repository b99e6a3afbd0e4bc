package session

import (
	"context"

	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/pkg/logger"
)

// Undo removes the most recent pass from the log and reverses it out of the
// live totals in one step. It returns the removed pass. Only the latest pass
// can be undone; an empty log yields ErrEmptyLog.
func (t *Tracker) Undo(ctx context.Context) (model.Pass, error) {
	if t.current == nil {
		return model.Pass{}, ErrNotActive
	}
	n := len(t.current.Passes)
	if n == 0 {
		return model.Pass{}, ErrEmptyLog
	}

	last := t.current.Passes[n-1]
	t.current.Passes[n-1] = model.Pass{}
	t.current.Passes = t.current.Passes[:n-1]
	t.cache.Reverse(last)
	t.version++

	t.logger.Debug(ctx, "pass undone",
		logger.String("session_id", t.current.ID),
		logger.String("player_id", last.PlayerID),
		logger.Int("ordinal", last.Ordinal),
	)
	return last, nil
}
