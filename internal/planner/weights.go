// Package planner allocates study minutes across courses and packs them into blocks.
package planner

import (
	"errors"
	"math"

	"github.com/verte-zerg/classgrid/internal/model"
)

const (
	// DifficultyBeta scales difficulty inside the weight formula.
	DifficultyBeta = 0.10
	// BlockMinutes is the fixed length of one study block.
	BlockMinutes = 30
	// quotaEpsilon keeps courses with a satisfied quota eligible by weight alone.
	quotaEpsilon = 0.001
)

// ErrNoCourses is returned when there is nothing to allocate.
var ErrNoCourses = errors.New("no courses defined")

var categoryCoefficients = map[string]float64{
	model.CategoryRequired:         1.30,
	model.CategoryElective:         1.00,
	model.CategoryGeneralEducation: 0.85,
}

// Difficulty derives the difficulty proxy from the sweetness and coolness ratings.
func Difficulty(sweetness, coolness int) int {
	d := int(math.Round(float64((11-sweetness)+coolness) / 2))
	if d < 1 {
		return 1
	}
	return d
}

// CategoryCoefficient returns the weighting coefficient for a category; unknown labels weigh 1.
func CategoryCoefficient(category string) float64 {
	if coef, ok := categoryCoefficients[model.NormalizeCategory(category)]; ok {
		return coef
	}
	return 1.0
}

// ComputeWeights returns one allocation record per course, in course order, with minutes unset.
func ComputeWeights(courses []model.Course) []model.Allocation {
	out := make([]model.Allocation, 0, len(courses))
	for _, c := range courses {
		category := c.Category
		if category == "" {
			category = model.CategoryElective
		}
		diff := Difficulty(c.Sweetness, c.Coolness)
		// A zero credit weighs zero; AllocateMinutes splits equally when every weight is zero.
		weight := c.Credit * CategoryCoefficient(category) * (1 + DifficultyBeta*float64(diff))
		out = append(out, model.Allocation{
			Name:       c.Name,
			Credits:    c.Credit,
			Difficulty: diff,
			Category:   category,
			Weight:     weight,
		})
	}
	return out
}

func totalWeight(records []model.Allocation) float64 {
	total := 0.0
	for _, r := range records {
		total += r.Weight
	}
	return total
}
