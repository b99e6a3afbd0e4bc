package api

import (
	"errors"
	"net/http"

	"github.com/okian/passtrack/internal/adapters/repository"
	service "github.com/okian/passtrack/internal/app"
	"github.com/okian/passtrack/internal/domain/history"
	"github.com/okian/passtrack/internal/domain/session"
)

// ErrBadRequest marks malformed or invalid request input.
var ErrBadRequest = errors.New("bad request")

// errorKind maps a domain error to an HTTP status and a stable code.
type errorKind struct {
	err    error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorKinds = []errorKind{
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{session.ErrNotActive, http.StatusConflict, "not_active"},
	{session.ErrEmptyLog, http.StatusConflict, "empty_log"},
	{session.ErrInvalidScore, http.StatusBadRequest, "invalid_score"},
	{session.ErrInvalidRoster, http.StatusBadRequest, "invalid_roster"},
	{session.ErrUnknownPlayer, http.StatusBadRequest, "unknown_player"},
	{service.ErrInvalidTeam, http.StatusBadRequest, "invalid_team"},
	{service.ErrInvalidThreshold, http.StatusBadRequest, "invalid_threshold"},
	{history.ErrInvalidFilter, http.StatusBadRequest, "invalid_filter"},
	{history.ErrInvalidComparison, http.StatusBadRequest, "invalid_comparison"},
	{repository.ErrNotFound, http.StatusNotFound, "not_found"},
	{repository.ErrPersistence, http.StatusServiceUnavailable, "persistence"},
}

func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}
