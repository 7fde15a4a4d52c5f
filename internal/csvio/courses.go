// Package csvio reads and writes course tables and study schedules as CSV.
package csvio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/verte-zerg/classgrid/internal/model"
)

// CourseHeader is the first line of an exported course table.
const CourseHeader = "day,period,course_name,credit,type,sweet,cool"

const (
	defaultCourseName = "course"
	defaultCredit     = 1.0
	defaultSweetness  = 5
	defaultCoolness   = 5
)

// ErrEmptyFile is returned for course tables without data rows.
var ErrEmptyFile = errors.New("empty or malformed file")

var lineBreak = regexp.MustCompile(`\r?\n`)

// ExportCourses writes one row per occupied cell of every course.
func ExportCourses(courses []model.Course) string {
	var b strings.Builder
	b.WriteString(CourseHeader)
	b.WriteByte('\n')
	for _, c := range courses {
		for _, cell := range c.Cells {
			fmt.Fprintf(&b, "%d,%d,%s,%s,%s,%d,%d\n",
				cell.Day,
				cell.Period,
				quoteField(c.Name),
				strconv.FormatFloat(c.Credit, 'f', -1, 64),
				quoteField(c.Category),
				c.Sweetness,
				c.Coolness,
			)
		}
	}
	return b.String()
}

type courseColumns struct {
	day, period, name, credit, category, sweet, cool int
}

// ParseCourses turns CSV text into courses without touching any registry.
//
// Columns are found by case-insensitive substring match on the header. Day,
// period and name fall back to the first three columns; the other attributes
// fall back to fixed defaults. Rows sharing a name are merged into one course.
func ParseCourses(text string) ([]model.Course, error) {
	var lines []string
	for _, line := range lineBreak.Split(text, -1) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil, ErrEmptyFile
	}
	headers := strings.Split(lines[0], ",")
	for i, h := range headers {
		headers[i] = strings.Trim(strings.TrimSpace(h), `"`)
	}
	cols := courseColumns{
		day:      headerIndex(headers, "day"),
		period:   headerIndex(headers, "period"),
		name:     headerIndex(headers, "course"),
		credit:   headerIndex(headers, "credit"),
		category: headerIndex(headers, "type"),
		sweet:    headerIndex(headers, "sweet"),
		cool:     headerIndex(headers, "cool"),
	}

	var courses []model.Course
	index := map[string]int{}
	for n, line := range lines[1:] {
		row, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}
		if len(row) == 0 {
			continue
		}
		name := firstNonEmpty(field(row, cols.name), field(row, 2), defaultCourseName)
		dayText := firstNonEmpty(field(row, cols.day), field(row, 0))
		periodText := firstNonEmpty(field(row, cols.period), field(row, 1))

		pos, ok := index[name]
		if !ok {
			courses = append(courses, model.Course{
				Name:      name,
				Credit:    parseFloatDefault(field(row, cols.credit), defaultCredit),
				Category:  model.NormalizeCategory(firstNonEmpty(field(row, cols.category), model.CategoryRequired)),
				Sweetness: parseIntDefault(field(row, cols.sweet), defaultSweetness),
				Coolness:  parseIntDefault(field(row, cols.cool), defaultCoolness),
			})
			pos = len(courses) - 1
			index[name] = pos
		}
		day, derr := strconv.Atoi(dayText)
		period, perr := strconv.Atoi(periodText)
		if derr != nil || perr != nil {
			continue
		}
		cell := model.Cell{Day: day, Period: period}
		if !courses[pos].HasCell(cell) {
			courses[pos].Cells = append(courses[pos].Cells, cell)
		}
	}
	return courses, nil
}

// ParseLine splits one CSV record, honouring quoted fields with embedded
// commas and doubled quotes. Fields are trimmed.
func ParseLine(line string) ([]string, error) {
	record, err := gocsv.LazyCSVReader(strings.NewReader(line)).Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	return record, nil
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func headerIndex(headers []string, token string) int {
	for i, h := range headers {
		if strings.Contains(strings.ToLower(h), token) {
			return i
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseFloatDefault returns def for empty, zero, negative or non-finite input.
func parseFloatDefault(s string, def float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v == 0 {
		return def
	}
	return v
}
