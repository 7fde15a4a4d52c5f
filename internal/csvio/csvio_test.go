package csvio

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/classgrid/internal/model"
)

func TestExportCoursesQuotesTextFields(t *testing.T) {
	out := ExportCourses([]model.Course{
		{Name: `Say "hi", world`, Credit: 2.5, Category: model.CategoryElective, Sweetness: 7, Coolness: 3,
			Cells: []model.Cell{{Day: 2, Period: 4}}},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != CourseHeader {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	want := `2,4,"Say ""hi"", world",2.5,"elective",7,3`
	if lines[1] != want {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}

func TestParseCoursesRoundTrip(t *testing.T) {
	courses := []model.Course{
		{Name: "Linear Algebra, II", Credit: 3, Category: model.CategoryRequired, Sweetness: 4, Coolness: 6,
			Cells: []model.Cell{{Day: 1, Period: 2}, {Day: 3, Period: 2}}},
		{Name: `The "Art" Class`, Credit: 1.5, Category: "studio", Sweetness: 9, Coolness: 2,
			Cells: []model.Cell{{Day: 5, Period: 10}}},
	}
	parsed, err := ParseCourses(ExportCourses(courses))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(parsed, courses) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", parsed, courses)
	}
}

func TestParseCoursesRejectsHeaderOnly(t *testing.T) {
	if _, err := ParseCourses("day,period,course_name\n\n"); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if _, err := ParseCourses(""); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile for empty text, got %v", err)
	}
}

func TestParseCoursesDefaultsAndFallbacks(t *testing.T) {
	text := "Weekday,Slot,Name\r\n1,1,History\r\n1,1,History\r\n2,5,History\r\n"
	parsed, err := ParseCourses(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("expected 1 merged course, got %d", len(parsed))
	}
	c := parsed[0]
	if c.Name != "History" || c.Credit != 1 || c.Category != model.CategoryRequired || c.Sweetness != 5 || c.Coolness != 5 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if len(c.Cells) != 2 {
		t.Fatalf("expected deduplicated cells, got %v", c.Cells)
	}
}

func TestParseCoursesMapsCategoryAliases(t *testing.T) {
	parsed, err := ParseCourses("day,period,course_name,credit,type\n1,1,Chinese,2,通識\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed[0].Category != model.CategoryGeneralEducation {
		t.Fatalf("expected general-education, got %q", parsed[0].Category)
	}
}

func TestParseLineQuotedFields(t *testing.T) {
	row, err := ParseLine(`1, 2 ,"a, ""b""",x`)
	if err != nil {
		t.Fatalf("parse line: %v", err)
	}
	want := []string{"1", "2", `a, "b"`, "x"}
	if !reflect.DeepEqual(row, want) {
		t.Fatalf("unexpected fields: %q", row)
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)
	start := day.Add(9 * time.Hour)
	assignments := []model.BlockAssignment{
		{Start: start, End: start.Add(30 * time.Minute), Course: "Math"},
		{Start: start.Add(30 * time.Minute), End: start.Add(time.Hour), Course: "Art, Design"},
	}
	out, err := ExportSchedule(assignments)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(out, "Start Time,End Time,Course\n09:00,09:30,Math\n") {
		t.Fatalf("unexpected schedule csv: %q", out)
	}
	parsed, err := ParseSchedule(out, day)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(parsed))
	}
	for i := range parsed {
		if !parsed[i].Start.Equal(assignments[i].Start) || !parsed[i].End.Equal(assignments[i].End) || parsed[i].Course != assignments[i].Course {
			t.Fatalf("row %d mismatch: %+v", i, parsed[i])
		}
	}
}

func TestParseScheduleEmpty(t *testing.T) {
	if _, err := ParseSchedule("Start Time,End Time,Course\n", time.Now()); err == nil {
		t.Fatalf("expected error for empty schedule")
	}
}

func TestParseCoursesNonFiniteCreditDefaultsToOne(t *testing.T) {
	text := "day,period,course_name,credit\n1,1,Math,NaN\n1,2,Bio,Inf\n1,3,Art,-Infinity\n1,4,Chem,-2\n1,5,Geo,2.5\n"
	parsed, err := ParseCourses(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []float64{1, 1, 1, 1, 2.5}
	if len(parsed) != len(want) {
		t.Fatalf("expected %d courses, got %d", len(want), len(parsed))
	}
	for i, c := range parsed {
		if c.Credit != want[i] {
			t.Fatalf("course %s: expected credit %v, got %v", c.Name, want[i], c.Credit)
		}
	}
}
