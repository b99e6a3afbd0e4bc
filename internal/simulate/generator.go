package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/okian/passtrack/internal/domain/model"
)

type actionKind int

const (
	actionPass actionKind = iota
	actionUndo
)

// action is one planned call against the active session.
type action struct {
	kind      actionKind
	playerID  string
	score     int
	tags      model.Tags
	requestID string
	// resend repeats the pass with the same request id.
	resend bool
}

var (
	zones    = []string{"left", "middle", "right"}
	contacts = []string{"platform", "hands", "dig"}
)

// planner produces reproducible session plans from a seed.
type planner struct {
	rng *rand.Rand
	cfg Config
}

func newPlanner(cfg Config) *planner {
	seed := uint64(cfg.Seed) //nolint:gosec // any seed is fine
	return &planner{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), cfg: cfg}
}

// playerIDs names the simulated roster.
func playerIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%02d", i+1)
	}
	return ids
}

// fields picks which optional tags a session collects.
func (p *planner) fields() model.Fields {
	return model.Fields{
		Zone:    p.rng.IntN(2) == 0,
		Contact: p.rng.IntN(2) == 0,
	}
}

// plan returns cfg.Passes actions for one session.
func (p *planner) plan(players []string, scores model.ScoreRange) []action {
	out := make([]action, 0, p.cfg.Passes)
	for range p.cfg.Passes {
		if p.rng.Float64() < p.cfg.UndoRate {
			out = append(out, action{kind: actionUndo})
			continue
		}
		out = append(out, action{
			kind:     actionPass,
			playerID: players[p.rng.IntN(len(players))],
			score:    scores.Min + p.rng.IntN(scores.Max-scores.Min+1),
			tags: model.Tags{
				Zone:    zones[p.rng.IntN(len(zones))],
				Contact: contacts[p.rng.IntN(len(contacts))],
			},
			requestID: uuid.NewString(),
			resend:    p.rng.Float64() < p.cfg.DuplicateRate,
		})
	}
	return out
}
