package registry

import (
	"sort"

	"github.com/verte-zerg/classgrid/internal/model"
)

// Conflict is a cell claimed by more than one course.
type Conflict struct {
	Cell    model.Cell
	Courses []string
}

// DetectConflicts rebuilds the cell to course-name map and returns every cell
// claimed by more than one distinct name, ordered by day and period.
func DetectConflicts(courses []model.Course) []Conflict {
	names := map[model.Cell][]string{}
	for _, c := range courses {
		for _, cell := range c.Cells {
			if containsString(names[cell], c.Name) {
				continue
			}
			names[cell] = append(names[cell], c.Name)
		}
	}
	var out []Conflict
	for cell, owners := range names {
		if len(owners) > 1 {
			out = append(out, Conflict{Cell: cell, Courses: owners})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell.Less(out[j].Cell) })
	return out
}

// Conflicts runs DetectConflicts over the current registry state.
func (r *Registry) Conflicts() []Conflict {
	return DetectConflicts(r.Courses())
}

// ConflictCells returns the conflicting cells as a set.
func ConflictCells(conflicts []Conflict) map[model.Cell]struct{} {
	set := make(map[model.Cell]struct{}, len(conflicts))
	for _, c := range conflicts {
		set[c.Cell] = struct{}{}
	}
	return set
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
