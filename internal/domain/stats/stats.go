// Package stats computes statistics over passes. Every function is pure and
// independent of input order; empty input yields zero values, never an error.
package stats

import "github.com/okian/passtrack/internal/domain/model"

// percentScale converts a ratio into a percentage.
const percentScale = 100.0

// Unset is the GroupBy key for passes where the grouped tag was not recorded.
const Unset = ""

// Summary bundles the headline numbers for a set of passes.
type Summary struct {
	Count        int     `json:"count"`
	Mean         float64 `json:"mean"`
	FavorablePct float64 `json:"favorable_pct"`
}

// Count returns the number of passes.
func Count(passes []model.Pass) int { return len(passes) }

// Sum returns the total score.
func Sum(passes []model.Pass) int {
	total := 0
	for _, p := range passes {
		total += p.Score
	}
	return total
}

// Mean returns the average score, or 0 for no passes.
func Mean(passes []model.Pass) float64 {
	if len(passes) == 0 {
		return 0
	}
	return float64(Sum(passes)) / float64(len(passes))
}

// FavorableCount returns how many passes scored at or above threshold.
func FavorableCount(passes []model.Pass, threshold int) int {
	n := 0
	for _, p := range passes {
		if p.Favorable(threshold) {
			n++
		}
	}
	return n
}

// FavorablePercentage returns the share of passes at or above threshold in
// [0, 100], or 0 for no passes.
func FavorablePercentage(passes []model.Pass, threshold int) float64 {
	return Percent(FavorableCount(passes, threshold), len(passes))
}

// Percent returns 100*part/whole, or 0 when whole is zero.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return percentScale * float64(part) / float64(whole)
}

// Distribution counts passes per score. When scores is non-empty every listed
// score is present in the result, zero counts included, and scores outside
// the list are ignored. With no scores only values that occur are reported.
func Distribution(passes []model.Pass, scores []int) map[int]int {
	out := make(map[int]int, len(scores))
	for _, s := range scores {
		out[s] = 0
	}
	for _, p := range passes {
		if len(scores) > 0 {
			if _, ok := out[p.Score]; !ok {
				continue
			}
		}
		out[p.Score]++
	}
	return out
}

// GroupBy partitions passes by key. Each group keeps input order.
func GroupBy[K comparable](passes []model.Pass, key func(model.Pass) K) map[K][]model.Pass {
	out := make(map[K][]model.Pass)
	for _, p := range passes {
		k := key(p)
		out[k] = append(out[k], p)
	}
	return out
}

// ByTag returns a GroupBy key function for field. Passes without a value land
// in the Unset bucket.
func ByTag(field model.Field) func(model.Pass) string {
	return func(p model.Pass) string { return p.Tags.Get(field) }
}

// ByPlayer groups passes per player.
func ByPlayer(p model.Pass) string { return p.PlayerID }

// Recorded removes the Unset bucket, leaving only groups where the field was
// actually recorded.
func Recorded(groups map[string][]model.Pass) map[string][]model.Pass {
	out := make(map[string][]model.Pass, len(groups))
	for k, v := range groups {
		if k == Unset {
			continue
		}
		out[k] = v
	}
	return out
}

// Summarize computes count, mean and favorable percentage in one call.
func Summarize(passes []model.Pass, threshold int) Summary {
	return Summary{
		Count:        Count(passes),
		Mean:         Mean(passes),
		FavorablePct: FavorablePercentage(passes, threshold),
	}
}
