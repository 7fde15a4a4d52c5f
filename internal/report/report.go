package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/classgrid/internal/model"
	"github.com/verte-zerg/classgrid/internal/registry"
)

const (
	terminalWidthBackup = 80
	minBarWidth         = 10
	barRune             = "█"
	clockLayout         = "15:04"
)

// Options controls optional decorations.
type Options struct {
	// Width is the total line width available; zero means detect from stdout.
	Width int
}

// RenderAllocation writes the minute allocation as a table with a weight bar per course.
func RenderAllocation(w io.Writer, allocation []model.Allocation, opts Options) error {
	if len(allocation) == 0 {
		_, err := fmt.Fprintln(w, "No courses.")
		return err
	}
	headers := []string{"Course", "Credits", "Difficulty", "Type", "Weight", "Minutes"}
	rows := make([][]string, 0, len(allocation))
	for _, a := range allocation {
		rows = append(rows, []string{
			a.Name,
			strconv.FormatFloat(a.Credits, 'f', -1, 64),
			strconv.Itoa(a.Difficulty),
			a.Category,
			fmt.Sprintf("%.2f", a.Weight),
			strconv.FormatFloat(a.Minutes, 'f', -1, 64),
		})
	}
	lines := formatTable(headers, rows, map[int]bool{1: true, 2: true, 4: true, 5: true})

	tableWidth := 0
	for _, line := range lines {
		if w := displayWidth(line); w > tableWidth {
			tableWidth = w
		}
	}
	barWidth := BarWidthFor(resolveWidth(opts.Width), tableWidth)
	maxMinutes := 0.0
	for _, a := range allocation {
		maxMinutes = math.Max(maxMinutes, a.Minutes)
	}

	for i, line := range lines {
		if i > 0 {
			line = padCell(line, tableWidth, false) + "  " + bar(allocation[i-1].Minutes, maxMinutes, barWidth)
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	total := 0.0
	for _, a := range allocation {
		total += a.Minutes
	}
	_, err := fmt.Fprintf(w, "Total: %s min\n", strconv.FormatFloat(total, 'f', -1, 64))
	return err
}

// RenderSchedule writes one line per study block.
func RenderSchedule(w io.Writer, schedule []model.BlockAssignment) error {
	if len(schedule) == 0 {
		_, err := fmt.Fprintln(w, "No study blocks.")
		return err
	}
	rows := make([][]string, 0, len(schedule))
	for _, b := range schedule {
		rows = append(rows, []string{b.Start.Format(clockLayout), b.End.Format(clockLayout), b.Course})
	}
	for _, line := range formatTable([]string{"Start", "End", "Course"}, rows, nil) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderConflicts writes the conflicting cells. It prints a single line when there are none.
func RenderConflicts(w io.Writer, conflicts []registry.Conflict) error {
	if len(conflicts) == 0 {
		_, err := fmt.Fprintln(w, "No conflicts.")
		return err
	}
	rows := make([][]string, 0, len(conflicts))
	for _, c := range conflicts {
		rows = append(rows, []string{
			strconv.Itoa(c.Cell.Day),
			strconv.Itoa(c.Cell.Period),
			strings.Join(c.Courses, ", "),
		})
	}
	for _, line := range formatTable([]string{"Day", "Period", "Courses"}, rows, map[int]bool{0: true, 1: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// BarWidthFor computes the bar width left after the table.
func BarWidthFor(totalWidth, tableWidth int) int {
	if totalWidth <= 0 {
		return minBarWidth
	}
	width := totalWidth - tableWidth - 2
	if width < minBarWidth {
		width = minBarWidth
	}
	return width
}

func bar(value, maxValue float64, width int) string {
	if maxValue <= 0 || value <= 0 || width <= 0 {
		return ""
	}
	n := int(math.Round(value / maxValue * float64(width)))
	if n < 1 {
		n = 1
	}
	return strings.Repeat(barRune, n)
}

func resolveWidth(width int) int {
	if width > 0 {
		return width
	}
	return terminalWidth()
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
