package model

import "time"

// Field names one of the optional categorical tags a pass may carry.
type Field string

// Optional tag fields. A session freezes which of them are recorded.
const (
	FieldZone    Field = "zone"
	FieldContact Field = "contact"
	FieldBody    Field = "body"
	FieldServe   Field = "serve"
)

// AllFields lists every optional tag field in display order.
var AllFields = []Field{FieldZone, FieldContact, FieldBody, FieldServe}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	switch f {
	case FieldZone, FieldContact, FieldBody, FieldServe:
		return true
	}
	return false
}

// Tags holds the optional categorical values of a pass. An empty string means
// the value was not recorded.
type Tags struct {
	Zone    string `json:"zone,omitempty"`
	Contact string `json:"contact,omitempty"`
	Body    string `json:"body,omitempty"`
	Serve   string `json:"serve,omitempty"`
}

// Get returns the value recorded for f, or "" when unset.
func (t Tags) Get(f Field) string {
	switch f {
	case FieldZone:
		return t.Zone
	case FieldContact:
		return t.Contact
	case FieldBody:
		return t.Body
	case FieldServe:
		return t.Serve
	}
	return ""
}

// Mask clears every tag whose field is disabled in fields.
func (t Tags) Mask(fields Fields) Tags {
	if !fields.Zone {
		t.Zone = ""
	}
	if !fields.Contact {
		t.Contact = ""
	}
	if !fields.Body {
		t.Body = ""
	}
	if !fields.Serve {
		t.Serve = ""
	}
	return t
}

// Fields records which optional tags a session collects.
type Fields struct {
	Zone    bool `json:"zone"`
	Contact bool `json:"contact"`
	Body    bool `json:"body"`
	Serve   bool `json:"serve"`
}

// Enabled reports whether f is collected.
func (fs Fields) Enabled(f Field) bool {
	switch f {
	case FieldZone:
		return fs.Zone
	case FieldContact:
		return fs.Contact
	case FieldBody:
		return fs.Body
	case FieldServe:
		return fs.Serve
	}
	return false
}

// Pass is one scored observation within a session. It is never modified
// after creation; undo deletes it.
type Pass struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	Ordinal   int       `json:"ordinal"`
	Score     int       `json:"score"`
	Tags      Tags      `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Favorable reports whether the pass meets threshold.
func (p Pass) Favorable(threshold int) bool { return p.Score >= threshold }

// ScoreRange is the closed range of scores the active scoring system allows.
type ScoreRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultScoreRange is the 0-3 passing scale.
var DefaultScoreRange = ScoreRange{Min: 0, Max: 3}

// Valid reports whether the range holds at least one score.
func (r ScoreRange) Valid() bool { return r.Max >= r.Min }

// Contains reports whether score lies in [Min, Max].
func (r ScoreRange) Contains(score int) bool {
	return score >= r.Min && score <= r.Max
}

// Scores enumerates every score in the range, ascending.
func (r ScoreRange) Scores() []int {
	if !r.Valid() {
		return nil
	}
	out := make([]int, 0, r.Max-r.Min+1)
	for s := r.Min; s <= r.Max; s++ {
		out = append(out, s)
	}
	return out
}
