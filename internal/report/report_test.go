package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/classgrid/internal/model"
	"github.com/verte-zerg/classgrid/internal/registry"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Course", "Weight", "Minutes"}
	rows := [][]string{
		{"Math", "6.24", "75"},
		{"Calculus II", "1.00", "5"},
	}
	lines := formatTable(headers, rows, map[int]bool{1: true, 2: true})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Course       Weight  Minutes" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Math           6.24       75" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Calculus II    1.00        5" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableUsesDisplayWidth(t *testing.T) {
	lines := formatTable([]string{"Course", "Min"}, [][]string{{"微積分", "60"}, {"Art", "5"}}, map[int]bool{1: true})
	if lines[1] != "微積分   60" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "Art       5" {
		t.Fatalf("unexpected narrow row: %q", lines[2])
	}
}

func TestRenderAllocationDrawsBars(t *testing.T) {
	allocation := []model.Allocation{
		{Name: "Math", Credits: 3, Difficulty: 8, Category: model.CategoryRequired, Weight: 6.24, Minutes: 60},
		{Name: "Art", Credits: 1, Difficulty: 2, Category: model.CategoryElective, Weight: 1, Minutes: 30},
	}
	var buf bytes.Buffer
	if err := RenderAllocation(&buf, allocation, Options{Width: 80}); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, 2 rows and total, got %q", buf.String())
	}
	mathBar := strings.Count(lines[1], barRune)
	artBar := strings.Count(lines[2], barRune)
	if mathBar == 0 || artBar == 0 || mathBar != 2*artBar {
		t.Fatalf("unexpected bars: math=%d art=%d", mathBar, artBar)
	}
	if lines[3] != "Total: 90 min" {
		t.Fatalf("unexpected total line: %q", lines[3])
	}
}

func TestRenderScheduleAndConflicts(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	if err := RenderSchedule(&buf, []model.BlockAssignment{{Start: start, End: start.Add(30 * time.Minute), Course: "Math"}}); err != nil {
		t.Fatalf("render schedule: %v", err)
	}
	if !strings.Contains(buf.String(), "09:00  09:30  Math") {
		t.Fatalf("unexpected schedule: %q", buf.String())
	}

	buf.Reset()
	if err := RenderConflicts(&buf, nil); err != nil {
		t.Fatalf("render conflicts: %v", err)
	}
	if buf.String() != "No conflicts.\n" {
		t.Fatalf("unexpected empty conflicts output: %q", buf.String())
	}

	buf.Reset()
	conflicts := []registry.Conflict{{Cell: model.Cell{Day: 2, Period: 3}, Courses: []string{"Math", "Art"}}}
	if err := RenderConflicts(&buf, conflicts); err != nil {
		t.Fatalf("render conflicts: %v", err)
	}
	if !strings.Contains(buf.String(), "Math, Art") {
		t.Fatalf("unexpected conflicts output: %q", buf.String())
	}
}

func TestBarWidthFor(t *testing.T) {
	if got := BarWidthFor(80, 50); got != 28 {
		t.Fatalf("expected 28, got %d", got)
	}
	if got := BarWidthFor(0, 50); got != minBarWidth {
		t.Fatalf("expected min width, got %d", got)
	}
	if got := BarWidthFor(40, 50); got != minBarWidth {
		t.Fatalf("expected min width, got %d", got)
	}
}
