package history

import (
	"fmt"
	"time"
)

// Window selects a date range relative to now.
type Window string

// Supported windows. WindowCustom uses the explicit From/To bounds.
const (
	WindowAll    Window = "all"
	WindowToday  Window = "today"
	Window7Days  Window = "7d"
	Window30Days Window = "30d"
	Window90Days Window = "90d"
	WindowCustom Window = "custom"
)

// ParseWindow maps a query value to a Window. The empty string means all.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case "":
		return WindowAll, nil
	case WindowAll, WindowToday, Window7Days, Window30Days, Window90Days, WindowCustom:
		return w, nil
	}
	return "", fmt.Errorf("%w: unknown window %q", ErrInvalidFilter, s)
}

// DateRange restricts sessions by start time.
type DateRange struct {
	Window Window
	// From and To are inclusive and only used with WindowCustom. A zero
	// value leaves that side open.
	From time.Time
	To   time.Time
}

// Bounds resolves the range against now. A zero bound is open.
// Relative windows start at local midnight: today covers the current day and
// 7d covers today plus the six days before it.
func (r DateRange) Bounds(now time.Time) (from, to time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch r.Window {
	case WindowToday:
		return midnight, time.Time{}
	case Window7Days:
		return midnight.AddDate(0, 0, -6), time.Time{}
	case Window30Days:
		return midnight.AddDate(0, 0, -29), time.Time{}
	case Window90Days:
		return midnight.AddDate(0, 0, -89), time.Time{}
	case WindowCustom:
		return r.From, r.To
	}
	return time.Time{}, time.Time{}
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t, now time.Time) bool {
	from, to := r.Bounds(now)
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

// SortKey orders query results.
type SortKey string

// Sort orders. SortDateDesc is the default.
const (
	SortDateDesc    SortKey = "date_desc"
	SortDateAsc     SortKey = "date_asc"
	SortAverageDesc SortKey = "average_desc"
	SortAverageAsc  SortKey = "average_asc"
	SortCountDesc   SortKey = "count_desc"
	SortCountAsc    SortKey = "count_asc"
)

// ParseSortKey maps a query value to a SortKey. The empty string means date_desc.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortDateDesc, nil
	case SortDateDesc, SortDateAsc, SortAverageDesc, SortAverageAsc, SortCountDesc, SortCountAsc:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown sort %q", ErrInvalidFilter, s)
}

// Filter holds the history predicates. Zero values disable a predicate and
// active predicates are combined with AND.
type Filter struct {
	// Search matches team names by case-insensitive substring.
	Search string
	TeamID string
	// PlayerID keeps sessions whose roster snapshot includes the player.
	PlayerID   string
	MinAverage *float64
	MaxAverage *float64
	MinPasses  int
	Range      DateRange
	Sort       SortKey
}
