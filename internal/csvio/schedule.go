package csvio

import (
	"errors"
	"fmt"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/verte-zerg/classgrid/internal/model"
)

const clockLayout = "15:04"

// ErrEmptySchedule is returned when a schedule CSV holds no rows.
var ErrEmptySchedule = errors.New("schedule has no blocks")

// ScheduleCSVRow is one exported study block.
type ScheduleCSVRow struct {
	Start  string `csv:"Start Time"`
	End    string `csv:"End Time"`
	Course string `csv:"Course"`
}

// ExportSchedule formats block assignments as CSV with HH:MM local times.
func ExportSchedule(assignments []model.BlockAssignment) (string, error) {
	rows := make([]*ScheduleCSVRow, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, &ScheduleCSVRow{
			Start:  a.Start.Local().Format(clockLayout),
			End:    a.End.Local().Format(clockLayout),
			Course: a.Course,
		})
	}
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", fmt.Errorf("failed to encode schedule: %w", err)
	}
	return out, nil
}

// ParseSchedule reads an exported schedule back, placing the times on the given day.
func ParseSchedule(text string, day time.Time) ([]model.BlockAssignment, error) {
	var rows []*ScheduleCSVRow
	if err := gocsv.UnmarshalString(text, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySchedule
	}
	y, m, d := day.Date()
	out := make([]model.BlockAssignment, 0, len(rows))
	for i, row := range rows {
		start, err := time.Parse(clockLayout, row.Start)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid start time %q", i+1, row.Start)
		}
		end, err := time.Parse(clockLayout, row.End)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid end time %q", i+1, row.End)
		}
		out = append(out, model.BlockAssignment{
			Start:  time.Date(y, m, d, start.Hour(), start.Minute(), 0, 0, day.Location()),
			End:    time.Date(y, m, d, end.Hour(), end.Minute(), 0, 0, day.Location()),
			Course: row.Course,
		})
	}
	return out, nil
}
