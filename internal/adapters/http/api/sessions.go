package api

import (
	"net/http"

	service "github.com/okian/passtrack/internal/app"
	"github.com/okian/passtrack/internal/domain/history"
	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/pkg/logger"
)

type startRequest struct {
	TeamID    string       `json:"team_id" validate:"required"`
	PlayerIDs []string     `json:"player_ids" validate:"dive,required"`
	Fields    model.Fields `json:"fields"`
	Threshold *int         `json:"threshold"`
}

type passRequest struct {
	RequestID string     `json:"request_id" validate:"omitempty,max=128"`
	PlayerID  string     `json:"player_id" validate:"required"`
	Score     *int       `json:"score" validate:"required"`
	Tags      model.Tags `json:"tags"`
}

type completeResponse struct {
	Completed bool           `json:"completed"`
	Session   *model.Session `json:"session,omitempty"`
}

// SessionsHandler handles the active session and stored sessions.
type SessionsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// HandleStart handles POST /sessions.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	var req startRequest
	if err := decode(w, r, &req); err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	sess, err := h.deps.StartSession(r.Context(), service.StartInput{
		TeamID:    req.TeamID,
		PlayerIDs: req.PlayerIDs,
		Fields:    req.Fields,
		Threshold: req.Threshold,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// HandleActive handles GET /sessions/active.
func (h *SessionsHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Active(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, "api.active_session", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleLogPass handles POST /sessions/active/passes. A repeated request_id
// answers 200 with the original pass instead of 201.
func (h *SessionsHandler) HandleLogPass(w http.ResponseWriter, r *http.Request) {
	const op = "api.log_pass"
	var req passRequest
	if err := decode(w, r, &req); err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	res, err := h.deps.LogPass(r.Context(), service.LogInput{
		RequestID: req.RequestID,
		PlayerID:  req.PlayerID,
		Score:     *req.Score,
		Tags:      req.Tags,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// HandleUndo handles POST /sessions/active/undo.
func (h *SessionsHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Undo(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, "api.undo", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleComplete handles POST /sessions/active/complete. Completing with no
// active session is not an error.
func (h *SessionsHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	done, ok, err := h.deps.Complete(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, "api.complete", err)
		return
	}
	resp := completeResponse{Completed: ok}
	if ok {
		resp.Session = &done
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleList handles GET /sessions.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	rows, err := h.deps.History(r.Context(), f)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	if rows == nil {
		rows = []history.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, "api.get_session", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		fail(r.Context(), h.logger, w, "api.delete_session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
