// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Grid dimensions of the weekly timetable.
const (
	Days    = 5
	Periods = 10
)

// Known course categories.
const (
	CategoryRequired         = "required"
	CategoryElective         = "elective"
	CategoryGeneralEducation = "general-education"
)

// Cell is a timetable coordinate.
type Cell struct {
	Day    int
	Period int
}

// Valid reports whether the cell lies inside the weekly grid.
func (c Cell) Valid() bool {
	return c.Day >= 1 && c.Day <= Days && c.Period >= 1 && c.Period <= Periods
}

// String formats the cell as "day-period".
func (c Cell) String() string {
	return fmt.Sprintf("%d-%d", c.Day, c.Period)
}

// Less orders cells by day, then period.
func (c Cell) Less(o Cell) bool {
	if c.Day != o.Day {
		return c.Day < o.Day
	}
	return c.Period < o.Period
}

// Course is one registered class.
type Course struct {
	ID        string
	Name      string
	Credit    float64
	Category  string
	Sweetness int
	Coolness  int
	Cells     []Cell
}

// HasCell reports whether the course occupies the cell.
func (c Course) HasCell(cell Cell) bool {
	for _, own := range c.Cells {
		if own == cell {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the course.
func (c Course) Clone() Course {
	out := c
	out.Cells = append([]Cell(nil), c.Cells...)
	return out
}

// CourseDraft carries the form fields of a save or edit.
// ID is set only when an existing course is being edited.
type CourseDraft struct {
	ID        string
	Name      string
	Credit    float64
	Category  string
	Sweetness int
	Coolness  int
}

// Allocation is the derived scheduling record of one course.
type Allocation struct {
	Name       string
	Credits    float64
	Difficulty int
	Category   string
	Weight     float64
	Minutes    float64
}

// BlockAssignment assigns one study block to a course.
type BlockAssignment struct {
	Start  time.Time
	End    time.Time
	Course string
}

// MinuteParams configures the minute allocator.
type MinuteParams struct {
	TotalMinutes float64
	MinMinutes   float64
	RoundTo      float64
}

// StudyWindow is a same-day clock range, both ends formatted HH:MM.
type StudyWindow struct {
	Start string
	End   string
}

// NormalizeCategory maps known aliases to canonical categories and keeps other text verbatim.
func NormalizeCategory(raw string) string {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case CategoryRequired, "必修":
		return CategoryRequired
	case CategoryElective, "選修":
		return CategoryElective
	case CategoryGeneralEducation, "general education", "通識":
		return CategoryGeneralEducation
	default:
		return value
	}
}
