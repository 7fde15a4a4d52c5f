// Package registry holds the course registry and its cell ownership index.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/classgrid/internal/model"
)

var (
	// ErrEmptyName is returned when a course is saved without a name.
	ErrEmptyName = errors.New("course name is required")
	// ErrNameTaken is returned when an edit renames a course to a name already in use.
	ErrNameTaken = errors.New("course name already in use")
	// ErrNotFound is returned for unknown course ids.
	ErrNotFound = errors.New("course not found")
)

// ConflictError lists selected cells already owned by a differently named course.
type ConflictError struct {
	Cells  []model.Cell
	Owners []string
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Cells))
	for i, c := range e.Cells {
		parts[i] = c.String()
	}
	return fmt.Sprintf("cells %s already taken by %s", strings.Join(parts, ", "), strings.Join(e.Owners, ", "))
}

// Registry stores courses in creation order.
type Registry struct {
	courses []*model.Course
	owners  map[model.Cell][]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{owners: map[model.Cell][]string{}}
}

// Len returns the number of courses.
func (r *Registry) Len() int {
	return len(r.courses)
}

// Courses returns copies of all courses in registry order.
func (r *Registry) Courses() []model.Course {
	out := make([]model.Course, len(r.courses))
	for i, c := range r.courses {
		out[i] = c.Clone()
	}
	return out
}

// Course returns a copy of the course with the given id.
func (r *Registry) Course(id string) (model.Course, bool) {
	c := r.byID(id)
	if c == nil {
		return model.Course{}, false
	}
	return c.Clone(), true
}

// Owners returns the ids of the courses occupying the cell.
func (r *Registry) Owners(cell model.Cell) []string {
	return append([]string(nil), r.owners[cell]...)
}

// Save creates or merges a course and assigns cells to it.
//
// A cell owned by a course with a different name is a conflict. Without overwrite
// the registry is left unchanged and a *ConflictError is returned; with overwrite
// the cell is released by its previous owners first.
func (r *Registry) Save(draft model.CourseDraft, cells []model.Cell, overwrite bool) (model.Course, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return model.Course{}, ErrEmptyName
	}
	var editing *model.Course
	if draft.ID != "" {
		editing = r.byID(draft.ID)
		if editing == nil {
			return model.Course{}, ErrNotFound
		}
		if other := r.byName(name); other != nil && other != editing {
			return model.Course{}, ErrNameTaken
		}
	}

	conflicts, owners := r.conflicting(name, cells, editing)
	if len(conflicts) > 0 {
		if !overwrite {
			return model.Course{}, &ConflictError{Cells: conflicts, Owners: owners}
		}
		for _, cell := range conflicts {
			r.release(cell, name, editing)
		}
	}

	course := editing
	if course == nil {
		course = r.byName(name)
	}
	if course == nil {
		course = &model.Course{ID: uuid.NewString()}
		r.courses = append(r.courses, course)
	}
	course.Name = name
	course.Credit = draft.Credit
	course.Category = model.NormalizeCategory(draft.Category)
	course.Sweetness = draft.Sweetness
	course.Coolness = draft.Coolness
	if editing != nil {
		course.Cells = nil
	}
	for _, cell := range cells {
		if !cell.Valid() || course.HasCell(cell) {
			continue
		}
		course.Cells = append(course.Cells, cell)
	}
	r.reindex()
	return course.Clone(), nil
}

// Remove deletes the course with the given id.
func (r *Registry) Remove(id string) error {
	for i, c := range r.courses {
		if c.ID == id {
			r.courses = append(r.courses[:i], r.courses[i+1:]...)
			r.reindex()
			return nil
		}
	}
	return ErrNotFound
}

// Clear removes every course.
func (r *Registry) Clear() {
	r.courses = nil
	r.reindex()
}

// Replace swaps the whole registry content, assigning ids where missing.
func (r *Registry) Replace(courses []model.Course) {
	r.courses = make([]*model.Course, 0, len(courses))
	for _, c := range courses {
		clone := c.Clone()
		if clone.ID == "" {
			clone.ID = uuid.NewString()
		}
		r.courses = append(r.courses, &clone)
	}
	r.reindex()
}

func (r *Registry) conflicting(name string, cells []model.Cell, editing *model.Course) ([]model.Cell, []string) {
	var conflicts []model.Cell
	ownerSet := map[string]struct{}{}
	var owners []string
	seen := map[model.Cell]struct{}{}
	for _, cell := range cells {
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		taken := false
		for _, id := range r.owners[cell] {
			owner := r.byID(id)
			if owner == nil || owner == editing || owner.Name == name {
				continue
			}
			taken = true
			if _, ok := ownerSet[owner.Name]; !ok {
				ownerSet[owner.Name] = struct{}{}
				owners = append(owners, owner.Name)
			}
		}
		if taken {
			conflicts = append(conflicts, cell)
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Less(conflicts[j]) })
	return conflicts, owners
}

func (r *Registry) release(cell model.Cell, keep string, editing *model.Course) {
	for _, c := range r.courses {
		if c == editing || c.Name == keep {
			continue
		}
		filtered := c.Cells[:0]
		for _, own := range c.Cells {
			if own != cell {
				filtered = append(filtered, own)
			}
		}
		c.Cells = filtered
	}
}

func (r *Registry) reindex() {
	r.owners = map[model.Cell][]string{}
	for _, c := range r.courses {
		for _, cell := range c.Cells {
			r.owners[cell] = append(r.owners[cell], c.ID)
		}
	}
}

func (r *Registry) byID(id string) *model.Course {
	for _, c := range r.courses {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (r *Registry) byName(name string) *model.Course {
	for _, c := range r.courses {
		if c.Name == name {
			return c
		}
	}
	return nil
}
