package planner

import (
	"math"
	"sort"

	"github.com/verte-zerg/classgrid/internal/model"
)

// AllocateMinutes splits the budget across the records in proportion to weight.
//
// The per-course floor is applied before rounding and the result is not
// renormalized, so floors can push the total above the budget.
func AllocateMinutes(records []model.Allocation, params model.MinuteParams) ([]model.Allocation, error) {
	if len(records) == 0 {
		return nil, ErrNoCourses
	}
	roundTo := params.RoundTo
	if roundTo < 1 {
		roundTo = 1
	}
	total := totalWeight(records)
	out := make([]model.Allocation, len(records))
	for i, r := range records {
		var minutes float64
		if total > 0 {
			minutes = params.TotalMinutes * (r.Weight / total)
		} else {
			minutes = params.TotalMinutes / float64(len(records))
		}
		if minutes < params.MinMinutes {
			minutes = params.MinMinutes
		}
		r.Minutes = math.Round(minutes/roundTo) * roundTo
		out[i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight*out[i].Minutes > out[j].Weight*out[j].Minutes
	})
	return out, nil
}

// TotalMinutes sums the allocated minutes.
func TotalMinutes(records []model.Allocation) float64 {
	total := 0.0
	for _, r := range records {
		total += r.Minutes
	}
	return total
}
