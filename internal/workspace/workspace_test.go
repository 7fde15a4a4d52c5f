package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/classgrid/internal/csvio"
	"github.com/verte-zerg/classgrid/internal/model"
	"github.com/verte-zerg/classgrid/internal/planner"
	"github.com/verte-zerg/classgrid/internal/registry"
	"github.com/verte-zerg/classgrid/internal/store"
)

var testDay = time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)

func newStoredWorkspace(t *testing.T) (*Workspace, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "classgrid.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return New(st), st
}

func TestImportRejectsEmptyFileWithoutClearing(t *testing.T) {
	ctx := context.Background()
	ws := New(nil)
	if _, err := ws.SaveCourse(ctx, model.CourseDraft{Name: "Math", Credit: 3}, []model.Cell{{Day: 1, Period: 1}}, false); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := ws.ImportCSV(ctx, csvio.CourseHeader+"\n"); !errors.Is(err, csvio.ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if len(ws.Courses()) != 1 {
		t.Fatalf("expected registry untouched, got %d courses", len(ws.Courses()))
	}
}

func TestImportReplacesRegistryAndFlagsConflicts(t *testing.T) {
	ctx := context.Background()
	ws := New(nil)
	if _, err := ws.SaveCourse(ctx, model.CourseDraft{Name: "Old"}, nil, false); err != nil {
		t.Fatalf("save: %v", err)
	}
	text := "day,period,course_name\n1,1,Math\n1,1,Art\n2,2,Art\n"
	n, err := ws.ImportCSV(ctx, text)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 || len(ws.Courses()) != 2 {
		t.Fatalf("expected 2 imported courses, got %d", n)
	}
	conflicts := ws.Conflicts()
	if len(conflicts) != 1 || conflicts[0].Cell != (model.Cell{Day: 1, Period: 1}) {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	if len(ws.Owners(model.Cell{Day: 1, Period: 1})) != 2 {
		t.Fatalf("expected two owners of the conflicting cell")
	}
}

func TestComputeMinutesAndBlocksRequireCourses(t *testing.T) {
	ws := New(nil)
	if _, err := ws.ComputeMinutes(model.MinuteParams{TotalMinutes: 60, RoundTo: 5}); !errors.Is(err, planner.ErrNoCourses) {
		t.Fatalf("expected ErrNoCourses, got %v", err)
	}
	if _, err := ws.MakeBlocks(context.Background(), testDay, model.StudyWindow{Start: "09:00", End: "10:00"}); !errors.Is(err, planner.ErrNoCourses) {
		t.Fatalf("expected ErrNoCourses, got %v", err)
	}
	if _, err := ws.ExportScheduleCSV(); !errors.Is(err, ErrNoSchedule) {
		t.Fatalf("expected ErrNoSchedule, got %v", err)
	}
}

func TestMakeBlocksUsesAllocationAndPersists(t *testing.T) {
	ctx := context.Background()
	ws, st := newStoredWorkspace(t)
	if _, err := ws.SaveCourse(ctx, model.CourseDraft{Name: "Math", Credit: 4, Category: model.CategoryRequired, Sweetness: 3, Coolness: 8}, []model.Cell{{Day: 1, Period: 1}}, false); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := ws.SaveCourse(ctx, model.CourseDraft{Name: "Art", Credit: 2, Category: model.CategoryGeneralEducation, Sweetness: 9, Coolness: 2}, []model.Cell{{Day: 2, Period: 1}}, false); err != nil {
		t.Fatalf("save: %v", err)
	}
	allocation, err := ws.ComputeMinutes(model.MinuteParams{TotalMinutes: 90, MinMinutes: 10, RoundTo: 5})
	if err != nil {
		t.Fatalf("compute minutes: %v", err)
	}
	if len(ws.Allocation()) != len(allocation) {
		t.Fatalf("expected allocation to be kept")
	}
	schedule, err := ws.MakeBlocks(ctx, testDay, model.StudyWindow{Start: "09:00", End: "10:00"})
	if err != nil {
		t.Fatalf("make blocks: %v", err)
	}
	if len(schedule) != 2 || schedule[0].Course != "Math" {
		t.Fatalf("unexpected schedule: %+v", schedule)
	}
	latest, err := st.LatestPlan(ctx)
	if err != nil {
		t.Fatalf("latest plan: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected stored plan, got %+v", latest)
	}
	out, err := ws.ExportScheduleCSV()
	if err != nil {
		t.Fatalf("export schedule: %v", err)
	}
	if out == "" {
		t.Fatalf("expected schedule csv")
	}

	reloaded := New(st)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(reloaded.Courses()) != 2 {
		t.Fatalf("expected persisted courses, got %d", len(reloaded.Courses()))
	}
}

func TestRegistryMutationDropsAllocation(t *testing.T) {
	ctx := context.Background()
	ws := New(nil)
	c, err := ws.SaveCourse(ctx, model.CourseDraft{Name: "Math", Credit: 1}, nil, false)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := ws.ComputeMinutes(model.MinuteParams{TotalMinutes: 30, RoundTo: 1}); err != nil {
		t.Fatalf("compute: %v", err)
	}
	if err := ws.RemoveCourse(ctx, c.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ws.Allocation() != nil {
		t.Fatalf("expected allocation to be dropped")
	}
}

func TestSaveCourseReportsConflict(t *testing.T) {
	ctx := context.Background()
	ws := New(nil)
	if _, err := ws.SaveCourse(ctx, model.CourseDraft{Name: "Math"}, []model.Cell{{Day: 1, Period: 1}}, false); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := ws.SaveCourse(ctx, model.CourseDraft{Name: "Art"}, []model.Cell{{Day: 1, Period: 1}}, false)
	var conflict *registry.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestImportWithNaNCreditKeepsProportionalSplit(t *testing.T) {
	ctx := context.Background()
	ws, st := newStoredWorkspace(t)
	text := "day,period,course_name,credit,type,sweet,cool\n1,1,Math,NaN,required,5,5\n1,2,Bio,2,required,5,5\n1,3,Art,4,required,5,5\n"
	if _, err := ws.ImportCSV(ctx, text); err != nil {
		t.Fatalf("import: %v", err)
	}
	loaded, err := st.LoadCourses(ctx)
	if err != nil {
		t.Fatalf("load courses: %v", err)
	}
	if len(loaded) != 3 || loaded[0].Credit != 1 {
		t.Fatalf("expected stored snapshot with credit 1, got %+v", loaded)
	}
	allocation, err := ws.ComputeMinutes(model.MinuteParams{TotalMinutes: 70, RoundTo: 1})
	if err != nil {
		t.Fatalf("compute minutes: %v", err)
	}
	got := map[string]float64{}
	for _, a := range allocation {
		got[a.Name] = a.Minutes
	}
	if got["Math"] != 10 || got["Bio"] != 20 || got["Art"] != 40 {
		t.Fatalf("expected 10/20/40 minutes, got %v", got)
	}
}
