package api

import (
	"fmt"
	"net/http"

	"github.com/okian/passtrack/internal/domain/history"
	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/pkg/logger"
)

const defaultTrendLimit = 10

// AnalyticsHandler handles comparison, breakdown and trend queries.
type AnalyticsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// HandleCompare handles GET /compare?players=A,B[&window=..][&threshold=..].
func (h *AnalyticsHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	q := r.URL.Query()
	rng, err := parseRange(q)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	threshold, err := parseOptionalInt(q, "threshold")
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	out, err := h.deps.Compare(r.Context(), history.CompareRequest{
		PlayerIDs: splitList(q, "players"),
		Range:     rng,
		Threshold: threshold,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleBreakdown handles GET /breakdown?field=zone[&player_id=..][&window=..].
func (h *AnalyticsHandler) HandleBreakdown(w http.ResponseWriter, r *http.Request) {
	const op = "api.breakdown"
	q := r.URL.Query()
	field := model.Field(q.Get("field"))
	if field == "" {
		fail(r.Context(), h.logger, w, op, fmt.Errorf("%w: field is required", ErrBadRequest))
		return
	}
	rng, err := parseRange(q)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	out, err := h.deps.Breakdown(r.Context(), history.BreakdownRequest{
		Field:    field,
		PlayerID: q.Get("player_id"),
		Range:    rng,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	if out.Buckets == nil {
		out.Buckets = []history.Bucket{}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleTrend handles GET /trend?player_id=..[&limit=N].
func (h *AnalyticsHandler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	const op = "api.trend"
	q := r.URL.Query()
	playerID := q.Get("player_id")
	if playerID == "" {
		fail(r.Context(), h.logger, w, op, fmt.Errorf("%w: player_id is required", ErrBadRequest))
		return
	}
	limit, err := parseInt(q, "limit", defaultTrendLimit)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	points, err := h.deps.Trend(r.Context(), playerID, limit)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	if points == nil {
		points = []history.Point{}
	}
	writeJSON(w, http.StatusOK, points)
}
