package api

import (
	"net/http"

	service "github.com/okian/passtrack/internal/app"
	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/pkg/logger"
)

type playerRequest struct {
	ID       string `json:"id" validate:"omitempty,max=64"`
	Name     string `json:"name" validate:"required,max=100"`
	Number   int    `json:"number" validate:"gte=0,lte=999"`
	Position string `json:"position" validate:"max=50"`
	// Active defaults to true when omitted.
	Active *bool `json:"active"`
}

type teamRequest struct {
	ID        string          `json:"id" validate:"omitempty,max=64"`
	Name      string          `json:"name" validate:"required,max=100"`
	Threshold *int            `json:"threshold"`
	Venue     string          `json:"venue" validate:"omitempty,oneof=indoor beach"`
	Players   []playerRequest `json:"players" validate:"dive"`
}

func (t teamRequest) input() service.TeamInput {
	players := make([]model.Player, 0, len(t.Players))
	for _, p := range t.Players {
		active := true
		if p.Active != nil {
			active = *p.Active
		}
		players = append(players, model.Player{
			ID:       p.ID,
			Name:     p.Name,
			Number:   p.Number,
			Position: p.Position,
			Active:   active,
		})
	}
	return service.TeamInput{
		ID:        t.ID,
		Name:      t.Name,
		Players:   players,
		Threshold: t.Threshold,
		Venue:     model.Venue(t.Venue),
	}
}

// TeamsHandler handles roster requests.
type TeamsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// HandlePut handles PUT /teams. A body without an id creates a team.
func (h *TeamsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_team"
	var req teamRequest
	if err := decode(w, r, &req); err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	team, err := h.deps.SaveTeam(r.Context(), req.input())
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleList handles GET /teams.
func (h *TeamsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	teams, err := h.deps.Teams(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, "api.list_teams", err)
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	writeJSON(w, http.StatusOK, teams)
}

// HandleGet handles GET /teams/{id}.
func (h *TeamsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	team, err := h.deps.Team(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, "api.get_team", err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}
