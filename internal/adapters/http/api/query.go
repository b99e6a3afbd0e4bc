package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/passtrack/internal/domain/history"
)

const dateLayout = "2006-01-02"

// parseRange reads window, from and to. Bounds switch the window to custom
// when none is given and are rejected next to any other window. A date-only
// "to" covers the whole day.
func parseRange(q url.Values) (history.DateRange, error) {
	w, err := history.ParseWindow(q.Get("window"))
	if err != nil {
		return history.DateRange{}, err
	}
	r := history.DateRange{Window: w}
	if r.From, err = parseTime(q.Get("from"), false); err != nil {
		return history.DateRange{}, err
	}
	if r.To, err = parseTime(q.Get("to"), true); err != nil {
		return history.DateRange{}, err
	}
	if !r.From.IsZero() || !r.To.IsZero() {
		switch q.Get("window") {
		case "":
			r.Window = history.WindowCustom
		case string(history.WindowCustom):
		default:
			return history.DateRange{}, fmt.Errorf("%w: from/to require window=custom, got %q", history.ErrInvalidFilter, w)
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return history.DateRange{}, fmt.Errorf("%w: from is after to", history.ErrInvalidFilter)
	}
	return r, nil
}

func parseTime(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is neither RFC3339 nor %s", ErrBadRequest, v, dateLayout)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func parseFloat(q url.Values, key string) (*float64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrBadRequest, key)
	}
	return &f, nil
}

func parseInt(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadRequest, key)
	}
	return n, nil
}

func parseOptionalInt(q url.Values, key string) (*int, error) {
	if q.Get(key) == "" {
		return nil, nil
	}
	n, err := parseInt(q, key, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// parseFilter builds a history filter from GET /sessions query values.
func parseFilter(q url.Values) (history.Filter, error) {
	var (
		f   history.Filter
		err error
	)
	f.Search = strings.TrimSpace(q.Get("search"))
	f.TeamID = q.Get("team_id")
	f.PlayerID = q.Get("player_id")
	if f.MinAverage, err = parseFloat(q, "min_average"); err != nil {
		return f, err
	}
	if f.MaxAverage, err = parseFloat(q, "max_average"); err != nil {
		return f, err
	}
	if f.MinPasses, err = parseInt(q, "min_passes", 0); err != nil {
		return f, err
	}
	if f.Range, err = parseRange(q); err != nil {
		return f, err
	}
	if f.Sort, err = history.ParseSortKey(q.Get("sort")); err != nil {
		return f, err
	}
	return f, nil
}

// splitList reads a comma separated or repeated query parameter.
func splitList(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
