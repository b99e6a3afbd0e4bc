// Package api exposes the session tracker and history queries over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	service "github.com/okian/passtrack/internal/app"
	"github.com/okian/passtrack/internal/domain/history"
	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/pkg/logger"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// Dependencies required by HTTP handlers.
type Dependencies interface {
	SaveTeam(ctx context.Context, in service.TeamInput) (model.Team, error)
	Team(ctx context.Context, id string) (model.Team, error)
	Teams(ctx context.Context) ([]model.Team, error)

	StartSession(ctx context.Context, in service.StartInput) (model.Session, error)
	LogPass(ctx context.Context, in service.LogInput) (service.LogResult, error)
	Undo(ctx context.Context) (model.Pass, error)
	Complete(ctx context.Context) (model.Session, bool, error)
	Active(ctx context.Context) (service.ActiveView, error)

	History(ctx context.Context, f history.Filter) ([]history.Row, error)
	Session(ctx context.Context, id string) (service.SessionDetail, error)
	DeleteSession(ctx context.Context, id string) error
	Compare(ctx context.Context, req history.CompareRequest) ([]history.PlayerComparison, error)
	Breakdown(ctx context.Context, req history.BreakdownRequest) (history.Breakdown, error)
	Trend(ctx context.Context, playerID string, limit int) ([]history.Point, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	teamsHandler     *TeamsHandler
	sessionsHandler  *SessionsHandler
	analyticsHandler *AnalyticsHandler
	logger           logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger handlers report server side failures to.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.teamsHandler = &TeamsHandler{deps: deps, logger: s.logger}
	s.sessionsHandler = &SessionsHandler{deps: deps, logger: s.logger}
	s.analyticsHandler = &AnalyticsHandler{deps: deps, logger: s.logger}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("PUT /teams", MetricsMiddleware(s.teamsHandler.HandlePut, "teams"))
	mux.HandleFunc("GET /teams", MetricsMiddleware(s.teamsHandler.HandleList, "teams"))
	mux.HandleFunc("GET /teams/{id}", MetricsMiddleware(s.teamsHandler.HandleGet, "team"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionsHandler.HandleStart, "sessions"))
	mux.HandleFunc("GET /sessions", MetricsMiddleware(s.sessionsHandler.HandleList, "sessions"))
	mux.HandleFunc("GET /sessions/active", MetricsMiddleware(s.sessionsHandler.HandleActive, "active"))
	mux.HandleFunc("POST /sessions/active/passes", MetricsMiddleware(s.sessionsHandler.HandleLogPass, "passes"))
	mux.HandleFunc("POST /sessions/active/undo", MetricsMiddleware(s.sessionsHandler.HandleUndo, "undo"))
	mux.HandleFunc("POST /sessions/active/complete", MetricsMiddleware(s.sessionsHandler.HandleComplete, "complete"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleDelete, "session"))

	mux.HandleFunc("GET /compare", MetricsMiddleware(s.analyticsHandler.HandleCompare, "compare"))
	mux.HandleFunc("GET /breakdown", MetricsMiddleware(s.analyticsHandler.HandleBreakdown, "breakdown"))
	mux.HandleFunc("GET /trend", MetricsMiddleware(s.analyticsHandler.HandleTrend, "trend"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail classifies err, logs server side failures and writes the response.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("op", op), logger.String("code", code), logger.Error(err))
	}
	writeError(w, status, code, err)
}

// decode reads a JSON body into dst and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return check(dst)
}

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
