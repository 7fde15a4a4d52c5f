package planner

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/classgrid/internal/model"
)

var (
	// ErrInvalidWindow is returned when the study window does not end after it starts on the same day.
	ErrInvalidWindow = errors.New("end time must be after start time on the same day")
	// ErrNoBlocks is returned when the window is shorter than one block.
	ErrNoBlocks = errors.New("no usable 30-minute blocks")
)

// Block is one fixed-length slot of the study window.
type Block struct {
	Start time.Time
	End   time.Time
}

// ParseClock resolves an HH:MM wall-clock time on the given day in the day's location.
func ParseClock(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (expected HH:MM)", clock)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}

// ResolveWindow turns a clock window into timestamps on the given day.
func ResolveWindow(day time.Time, window model.StudyWindow) (time.Time, time.Time, error) {
	start, err := ParseClock(day, window.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseClock(day, window.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// GenerateBlocks partitions [start, end) into consecutive 30-minute blocks.
// A trailing remainder shorter than one block is dropped.
func GenerateBlocks(start, end time.Time) ([]Block, error) {
	if !end.After(start) || !sameDay(start, end) {
		return nil, ErrInvalidWindow
	}
	step := BlockMinutes * time.Minute
	var blocks []Block
	for t := start; !t.Add(step).After(end); t = t.Add(step) {
		blocks = append(blocks, Block{Start: t, End: t.Add(step)})
	}
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	return blocks, nil
}

// PackBlocks greedily assigns each block, in order, to the course with the
// highest deficit-weighted score.
//
// weights is the course list in registry order and decides tie-breaking.
// allocation may be nil; when present its minutes set the desired block counts.
func PackBlocks(blocks []Block, weights []model.Allocation, allocation []model.Allocation) ([]model.BlockAssignment, error) {
	if len(weights) == 0 {
		return nil, ErrNoCourses
	}
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	desired := DesiredBlocks(weights, allocation, len(blocks))
	assigned := make(map[string]int, len(weights))
	out := make([]model.BlockAssignment, 0, len(blocks))
	for _, b := range blocks {
		best := -1
		bestScore := math.Inf(-1)
		for i, c := range weights {
			need := desired[c.Name] - assigned[c.Name]
			if need < 0 {
				need = 0
			}
			score := (float64(need) + quotaEpsilon) * c.Weight
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		if best < 0 {
			best = 0
		}
		name := weights[best].Name
		assigned[name]++
		out = append(out, model.BlockAssignment{Start: b.Start, End: b.End, Course: name})
	}
	return out, nil
}

// DesiredBlocks computes the advisory per-course block targets.
// Courses absent from a non-empty allocation want zero blocks.
func DesiredBlocks(weights []model.Allocation, allocation []model.Allocation, blockCount int) map[string]int {
	desired := make(map[string]int, len(weights))
	if len(allocation) > 0 {
		for _, r := range allocation {
			desired[r.Name] = atLeastOne(r.Minutes / BlockMinutes)
		}
		return desired
	}
	total := totalWeight(weights)
	for _, w := range weights {
		share := 0.0
		if total > 0 {
			share = w.Weight / total
		}
		desired[w.Name] = atLeastOne(share * float64(blockCount))
	}
	return desired
}

func atLeastOne(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
