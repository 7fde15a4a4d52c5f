// Package workspace owns the editor state shared by the TUI and CLI commands.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/classgrid/internal/csvio"
	"github.com/verte-zerg/classgrid/internal/model"
	"github.com/verte-zerg/classgrid/internal/planner"
	"github.com/verte-zerg/classgrid/internal/registry"
)

// ErrNoSchedule is returned when a schedule is needed before one was generated.
var ErrNoSchedule = errors.New("no schedule generated yet")

// Persister stores registry snapshots and generated plans.
type Persister interface {
	SaveCourses(ctx context.Context, courses []model.Course) error
	LoadCourses(ctx context.Context) ([]model.Course, error)
	SavePlan(ctx context.Context, createdAt time.Time, blocks []model.BlockAssignment) (int64, error)
}

// Workspace holds the registry and the latest derived results.
type Workspace struct {
	registry   *registry.Registry
	persister  Persister
	allocation []model.Allocation
	schedule   []model.BlockAssignment
	now        func() time.Time
}

// New returns an empty workspace. persister may be nil.
func New(persister Persister) *Workspace {
	return &Workspace{
		registry:  registry.New(),
		persister: persister,
		now:       time.Now,
	}
}

// Load replaces the registry with the persisted snapshot.
func (w *Workspace) Load(ctx context.Context) error {
	if w.persister == nil {
		return nil
	}
	courses, err := w.persister.LoadCourses(ctx)
	if err != nil {
		return fmt.Errorf("failed to load courses: %w", err)
	}
	w.registry.Replace(courses)
	w.allocation = nil
	return nil
}

// Courses returns the current courses in registry order.
func (w *Workspace) Courses() []model.Course {
	return w.registry.Courses()
}

// Course returns one course by id.
func (w *Workspace) Course(id string) (model.Course, bool) {
	return w.registry.Course(id)
}

// Owners returns the courses occupying a cell.
func (w *Workspace) Owners(cell model.Cell) []model.Course {
	ids := w.registry.Owners(cell)
	out := make([]model.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := w.registry.Course(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// Conflicts recomputes the conflicting cells.
func (w *Workspace) Conflicts() []registry.Conflict {
	return w.registry.Conflicts()
}

// SaveCourse saves a course from the form. See registry.Registry.Save.
func (w *Workspace) SaveCourse(ctx context.Context, draft model.CourseDraft, cells []model.Cell, overwrite bool) (model.Course, error) {
	course, err := w.registry.Save(draft, cells, overwrite)
	if err != nil {
		return model.Course{}, err
	}
	return course, w.changed(ctx)
}

// RemoveCourse deletes a course.
func (w *Workspace) RemoveCourse(ctx context.Context, id string) error {
	if err := w.registry.Remove(id); err != nil {
		return err
	}
	return w.changed(ctx)
}

// Clear removes every course.
func (w *Workspace) Clear(ctx context.Context) error {
	w.registry.Clear()
	return w.changed(ctx)
}

// ImportCSV replaces the registry with the courses parsed from text.
// The registry is left untouched when parsing fails.
func (w *Workspace) ImportCSV(ctx context.Context, text string) (int, error) {
	courses, err := csvio.ParseCourses(text)
	if err != nil {
		return 0, err
	}
	w.registry.Replace(courses)
	return len(courses), w.changed(ctx)
}

// ExportCoursesCSV renders the registry as a course table.
func (w *Workspace) ExportCoursesCSV() string {
	return csvio.ExportCourses(w.registry.Courses())
}

// Weights computes the allocation weights of the current registry.
func (w *Workspace) Weights() ([]model.Allocation, error) {
	if w.registry.Len() == 0 {
		return nil, planner.ErrNoCourses
	}
	return planner.ComputeWeights(w.registry.Courses()), nil
}

// ComputeMinutes runs the minute allocator and keeps the result for block packing.
func (w *Workspace) ComputeMinutes(params model.MinuteParams) ([]model.Allocation, error) {
	weights, err := w.Weights()
	if err != nil {
		return nil, err
	}
	allocation, err := planner.AllocateMinutes(weights, params)
	if err != nil {
		return nil, err
	}
	w.allocation = allocation
	return allocation, nil
}

// Allocation returns the last minute allocation, if any.
func (w *Workspace) Allocation() []model.Allocation {
	return w.allocation
}

// MakeBlocks packs the study window on the given day into course blocks.
func (w *Workspace) MakeBlocks(ctx context.Context, day time.Time, window model.StudyWindow) ([]model.BlockAssignment, error) {
	start, end, err := planner.ResolveWindow(day, window)
	if err != nil {
		return nil, err
	}
	blocks, err := planner.GenerateBlocks(start, end)
	if err != nil {
		return nil, err
	}
	weights, err := w.Weights()
	if err != nil {
		return nil, err
	}
	schedule, err := planner.PackBlocks(blocks, weights, w.allocation)
	if err != nil {
		return nil, err
	}
	w.schedule = schedule
	if w.persister != nil {
		if _, err := w.persister.SavePlan(ctx, w.now(), schedule); err != nil {
			return schedule, fmt.Errorf("failed to save plan: %w", err)
		}
	}
	return schedule, nil
}

// Schedule returns the last generated schedule.
func (w *Workspace) Schedule() []model.BlockAssignment {
	return w.schedule
}

// ExportScheduleCSV renders the last generated schedule.
func (w *Workspace) ExportScheduleCSV() (string, error) {
	if len(w.schedule) == 0 {
		return "", ErrNoSchedule
	}
	return csvio.ExportSchedule(w.schedule)
}

// changed drops results derived from the previous course set and persists the registry.
func (w *Workspace) changed(ctx context.Context) error {
	w.allocation = nil
	if w.persister == nil {
		return nil
	}
	if err := w.persister.SaveCourses(ctx, w.registry.Courses()); err != nil {
		return fmt.Errorf("failed to save courses: %w", err)
	}
	return nil
}
