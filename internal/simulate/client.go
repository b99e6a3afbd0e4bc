package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/passtrack/internal/domain/history"
	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/internal/domain/stats"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the passtrack HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// TeamPlayer is a roster entry sent with PutTeam.
type TeamPlayer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number"`
}

// TeamRequest creates or replaces a team.
type TeamRequest struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Players []TeamPlayer `json:"players"`
}

// StartRequest starts a session.
type StartRequest struct {
	TeamID    string       `json:"team_id"`
	PlayerIDs []string     `json:"player_ids"`
	Fields    model.Fields `json:"fields"`
}

// PassRequest logs one pass.
type PassRequest struct {
	RequestID string     `json:"request_id,omitempty"`
	PlayerID  string     `json:"player_id"`
	Score     int        `json:"score"`
	Tags      model.Tags `json:"tags"`
}

// PassResult is the answer to LogPass.
type PassResult struct {
	Pass      model.Pass `json:"pass"`
	Duplicate bool       `json:"duplicate"`
	Version   uint64     `json:"version"`
}

// SessionDetail is a stored session with its derived statistics.
type SessionDetail struct {
	Session   model.Session            `json:"session"`
	Summary   stats.Summary            `json:"summary"`
	PerPlayer map[string]stats.Summary `json:"per_player"`
}

type completeResponse struct {
	Completed bool           `json:"completed"`
	Session   *model.Session `json:"session"`
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// PutTeam creates or replaces a team.
func (c *Client) PutTeam(ctx context.Context, req TeamRequest) (model.Team, error) {
	var team model.Team
	err := c.do(ctx, http.MethodPut, "/teams", req, &team)
	return team, err
}

// StartSession starts a session, completing any active one.
func (c *Client) StartSession(ctx context.Context, req StartRequest) (model.Session, error) {
	var sess model.Session
	err := c.do(ctx, http.MethodPost, "/sessions", req, &sess)
	return sess, err
}

// LogPass logs a pass on the active session.
func (c *Client) LogPass(ctx context.Context, req PassRequest) (PassResult, error) {
	var res PassResult
	err := c.do(ctx, http.MethodPost, "/sessions/active/passes", req, &res)
	return res, err
}

// Undo removes the most recent pass.
func (c *Client) Undo(ctx context.Context) (model.Pass, error) {
	var p model.Pass
	err := c.do(ctx, http.MethodPost, "/sessions/active/undo", nil, &p)
	return p, err
}

// Complete ends the active session. ok is false when none was active.
func (c *Client) Complete(ctx context.Context) (model.Session, bool, error) {
	var resp completeResponse
	if err := c.do(ctx, http.MethodPost, "/sessions/active/complete", nil, &resp); err != nil {
		return model.Session{}, false, err
	}
	if !resp.Completed || resp.Session == nil {
		return model.Session{}, false, nil
	}
	return *resp.Session, true, nil
}

// Session fetches a stored session.
func (c *Client) Session(ctx context.Context, id string) (SessionDetail, error) {
	var d SessionDetail
	err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id), nil, &d)
	return d, err
}

// History lists stored sessions of a team.
func (c *Client) History(ctx context.Context, teamID string) ([]history.Row, error) {
	var rows []history.Row
	q := url.Values{"team_id": {teamID}}
	err := c.do(ctx, http.MethodGet, "/sessions?"+q.Encode(), nil, &rows)
	return rows, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

// ServerStats is the subset of GET /stats the simulator reads.
type ServerStats struct {
	Active   bool `json:"active"`
	ScoreMin int  `json:"scoreMin"`
	ScoreMax int  `json:"scoreMax"`
}

// Stats fetches the server's live counters.
func (c *Client) Stats(ctx context.Context) (ServerStats, error) {
	var s ServerStats
	err := c.do(ctx, http.MethodGet, "/stats", nil, &s)
	return s, err
}
