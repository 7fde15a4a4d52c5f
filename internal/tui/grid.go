package tui

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/classgrid/internal/model"
	"github.com/verte-zerg/classgrid/internal/registry"
)

const (
	periodLabelWidth = 4
	minCellWidth     = 6
	maxCellWidth     = 16
)

var dayLabels = [model.Days]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

var coursePalette = []lipgloss.Color{
	"#F4B6C2", "#B6D7F4", "#C2F4B6", "#F4E3B6", "#D9B6F4",
	"#B6F4EA", "#F4C9B6", "#C6C9F4", "#E1F4B6", "#F4B6E8",
}

var (
	courseTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1E1E1E"))
	emptyCellStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	conflictStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Background(lipgloss.Color("#B0282B")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1E1E1E")).
			Background(lipgloss.Color("#C89A3A")).
			Bold(true)
	gridLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

// courseColor picks a stable palette entry for a course name.
func courseColor(name string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return coursePalette[h.Sum32()%uint32(len(coursePalette))]
}

func gridCellWidth(width int) int {
	if width <= 0 {
		return 10
	}
	w := (width - periodLabelWidth) / model.Days
	if w < minCellWidth {
		return minCellWidth
	}
	if w > maxCellWidth {
		return maxCellWidth
	}
	return w
}

// moveCursor shifts the cursor by (dDay, dPeriod) and clamps it to the grid.
func (m *Model) moveCursor(dDay, dPeriod int) bool {
	next := model.Cell{Day: m.cursor.Day + dDay, Period: m.cursor.Period + dPeriod}
	if !next.Valid() {
		return false
	}
	m.cursor = next
	if m.dragging {
		m.toggleCell(next)
	}
	return true
}

func (m *Model) toggleCell(cell model.Cell) {
	if !cell.Valid() {
		return
	}
	if _, ok := m.selected[cell]; ok {
		delete(m.selected, cell)
		return
	}
	m.selected[cell] = struct{}{}
}

func (m *Model) clearSelection() {
	m.selected = map[model.Cell]struct{}{}
	m.dragging = false
	m.editingID = ""
}

// selectedCells returns the selection ordered by day and period.
func (m *Model) selectedCells() []model.Cell {
	cells := make([]model.Cell, 0, len(m.selected))
	for d := 1; d <= model.Days; d++ {
		for p := 1; p <= model.Periods; p++ {
			c := model.Cell{Day: d, Period: p}
			if _, ok := m.selected[c]; ok {
				cells = append(cells, c)
			}
		}
	}
	return cells
}

func (m *Model) renderGrid() string {
	cellWidth := gridCellWidth(m.width)
	conflicts := registry.ConflictCells(m.ws.Conflicts())

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", periodLabelWidth))
	for _, day := range dayLabels {
		b.WriteString(gridLabelStyle.Render(fitCell(" "+day, cellWidth)))
	}
	for p := 1; p <= model.Periods; p++ {
		b.WriteByte('\n')
		b.WriteString(gridLabelStyle.Render(fitCell(fmt.Sprintf("P%d", p), periodLabelWidth)))
		for d := 1; d <= model.Days; d++ {
			cell := model.Cell{Day: d, Period: p}
			_, conflict := conflicts[cell]
			b.WriteString(m.renderCell(cell, cellWidth, conflict))
		}
	}
	return b.String()
}

func (m *Model) renderCell(cell model.Cell, width int, conflict bool) string {
	owners := m.ws.Owners(cell)
	names := make([]string, 0, len(owners))
	for _, c := range owners {
		names = append(names, c.Name)
	}
	text := strings.Join(names, "/")
	if conflict {
		text = "!" + text
	}

	mark := " "
	if cell == m.cursor {
		mark = ">"
	}
	content := fitCell(mark+text, width)

	_, selected := m.selected[cell]
	var style lipgloss.Style
	switch {
	case selected:
		style = selectedStyle
	case conflict:
		style = conflictStyle
	case len(owners) > 0:
		style = courseTextStyle.Background(courseColor(owners[0].Name))
	default:
		style = emptyCellStyle
		if cell != m.cursor {
			content = fitCell(" .", width)
		}
	}
	if cell == m.cursor {
		style = style.Underline(true)
	}
	return style.Render(content)
}

func (m *Model) renderCellDetail() string {
	owners := m.ws.Owners(m.cursor)
	label := fmt.Sprintf("%s P%d", dayLabels[m.cursor.Day-1], m.cursor.Period)
	if len(owners) == 0 {
		return headerStyle.Render(label + ": free")
	}
	parts := make([]string, 0, len(owners))
	for _, c := range owners {
		parts = append(parts, fmt.Sprintf("%s (%s cr, %s)", c.Name, formatNumber(c.Credit), c.Category))
	}
	line := label + ": " + strings.Join(parts, ", ")
	if len(owners) > 1 {
		return errorStyle.Render(truncateLine("Conflict at "+line, m.width))
	}
	return headerStyle.Render(truncateLine(line, m.width))
}
