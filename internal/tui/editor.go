package tui

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/classgrid/internal/model"
	"github.com/verte-zerg/classgrid/internal/registry"
)

type confirmKind int

const (
	confirmOverwrite confirmKind = iota
	confirmDelete
	confirmClear
)

type confirmDialog struct {
	kind     confirmKind
	question string
	courseID string
	draft    model.CourseDraft
	cells    []model.Cell
}

func (d confirmDialog) view() string {
	return strings.Join([]string{
		cardValueStyle.Render("Confirm"),
		d.question,
		headerStyle.Render("y/enter: confirm  n/esc: cancel"),
	}, "\n")
}

type pathKind int

const (
	pathImport pathKind = iota
	pathExportCourses
	pathExportSchedule
)

type pathPrompt struct {
	kind  pathKind
	input textinput.Model
	err   string
}

func newPathPrompt() pathPrompt {
	return pathPrompt{input: newInput("Path: ", "courses.csv")}
}

func (p *pathPrompt) setWidth(width int) {
	p.input.Width = maxInt(10, width-lipgloss.Width(p.input.Prompt)-1)
}

func (p pathPrompt) view() string {
	title := "Import courses CSV"
	switch p.kind {
	case pathExportCourses:
		title = "Export courses CSV"
	case pathExportSchedule:
		title = "Export study schedule CSV"
	}
	lines := []string{
		cardValueStyle.Render(title),
		p.input.View(),
		headerStyle.Render("enter: confirm  esc: cancel"),
	}
	if p.kind == pathImport {
		lines = append(lines, headerStyle.Render("Importing replaces every course on the timetable."))
	}
	if p.err != "" {
		lines = append(lines, errorStyle.Render(p.err))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) formTitle() string {
	if m.editingID != "" {
		return "Edit course"
	}
	return "New course"
}

func (m *Model) openForm() tea.Cmd {
	if len(m.selected) == 0 {
		return nil
	}
	if m.editingID == "" {
		m.form.reset()
	}
	m.mode = modeForm
	return m.form.focus(fieldName)
}

// editCourse selects the course's cells and opens the prefilled form.
func (m *Model) editCourse(id string) tea.Cmd {
	c, ok := m.ws.Course(id)
	if !ok {
		return nil
	}
	m.clearSelection()
	for _, cell := range c.Cells {
		m.selected[cell] = struct{}{}
	}
	m.editingID = id
	m.form.fill(c)
	m.setTab(tabTimetable)
	if len(m.selected) == 0 {
		m.mode = modeForm
		return m.form.focus(fieldName)
	}
	return m.openForm()
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.clearSelection()
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.form.focus(m.form.index + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.form.focus(m.form.index - 1)
	case tea.KeyEnter:
		draft, err := m.form.draft()
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		draft.ID = m.editingID
		m.saveCourse(draft, m.selectedCells(), false)
		return m, nil
	}
	return m, m.form.update(msg)
}

// saveCourse commits the form. A conflict turns into an overwrite question
// that either reruns the save with overwrite or drops it.
func (m *Model) saveCourse(draft model.CourseDraft, cells []model.Cell, overwrite bool) {
	course, err := m.ws.SaveCourse(m.ctx(), draft, cells, overwrite)
	var conflict *registry.ConflictError
	switch {
	case errors.As(err, &conflict):
		m.confirm = confirmDialog{
			kind:     confirmOverwrite,
			question: fmt.Sprintf("Selected cells %s are taken by %s. Overwrite them?", cellList(conflict.Cells), strings.Join(conflict.Owners, ", ")),
			draft:    draft,
			cells:    cells,
		}
		m.mode = modeConfirm
		return
	case errors.Is(err, registry.ErrEmptyName), errors.Is(err, registry.ErrNameTaken):
		m.form.err = err.Error()
		m.mode = modeForm
		return
	case err != nil && course.ID == "":
		m.form.err = err.Error()
		m.mode = modeForm
		return
	case err != nil:
		// Saved in memory; only the snapshot write failed.
		m.errMsg = err.Error()
	default:
		m.status = fmt.Sprintf("Saved %s (%d cells)", course.Name, len(course.Cells))
	}
	m.mode = modeBrowse
	m.clearSelection()
	m.refreshCourses()
}

func (m *Model) openConfirm(kind confirmKind, question, courseID string) {
	m.confirm = confirmDialog{kind: kind, question: question, courseID: courseID}
	m.mode = modeConfirm
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.mode = modeBrowse
		m.applyConfirm()
	case "n", "N", "esc":
		m.mode = modeBrowse
		if m.confirm.kind == confirmOverwrite {
			m.clearSelection()
			m.status = "Save cancelled"
		}
	}
	return m, nil
}

func (m *Model) applyConfirm() {
	d := m.confirm
	switch d.kind {
	case confirmOverwrite:
		m.saveCourse(d.draft, d.cells, true)
		return
	case confirmDelete:
		c, _ := m.ws.Course(d.courseID)
		if err := m.ws.RemoveCourse(m.ctx(), d.courseID); err != nil {
			m.errMsg = err.Error()
		} else {
			m.status = fmt.Sprintf("Deleted %s", c.Name)
		}
	case confirmClear:
		if err := m.ws.Clear(m.ctx()); err != nil {
			m.errMsg = err.Error()
		} else {
			m.status = "Timetable cleared"
		}
		m.clearSelection()
	}
	m.refreshCourses()
}

func (m *Model) openPath(kind pathKind, value string) tea.Cmd {
	m.prompt.kind = kind
	m.prompt.err = ""
	m.prompt.input.SetValue(value)
	m.prompt.input.CursorEnd()
	m.mode = modePath
	return m.prompt.input.Focus()
}

func (m *Model) updatePath(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.prompt.input.Blur()
		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.prompt.input.Value())
		if path == "" {
			m.prompt.err = "path is required"
			return m, nil
		}
		if err := m.runPath(path); err != nil {
			m.prompt.err = err.Error()
			return m, nil
		}
		m.mode = modeBrowse
		m.prompt.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt.input, cmd = m.prompt.input.Update(msg)
	return m, cmd
}

func (m *Model) runPath(path string) error {
	switch m.prompt.kind {
	case pathImport:
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		n, err := m.ws.ImportCSV(m.ctx(), string(data))
		if err != nil && n == 0 {
			return err
		}
		m.clearSelection()
		m.refreshCourses()
		if err != nil {
			m.errMsg = err.Error()
			return nil
		}
		m.status = fmt.Sprintf("Imported %d courses from %s", n, path)
		if conflicts := m.ws.Conflicts(); len(conflicts) > 0 {
			m.status += fmt.Sprintf(" (%d conflicting cells)", len(conflicts))
		}
	case pathExportCourses:
		if err := os.WriteFile(path, []byte(m.ws.ExportCoursesCSV()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		m.status = fmt.Sprintf("Exported courses to %s", path)
	case pathExportSchedule:
		out, err := m.ws.ExportScheduleCSV()
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		m.status = fmt.Sprintf("Exported schedule to %s", path)
	}
	return nil
}

func (m *Model) initCourseTable() {
	m.courseTable = table.New(
		table.WithColumns(courseColumns()),
		table.WithHeight(1),
	)
	m.courseTable.SetStyles(courseTableStyles())
}

func courseColumns() []table.Column {
	return []table.Column{
		{Title: "Name", Width: 20},
		{Title: "Credit", Width: 6},
		{Title: "Type", Width: 18},
		{Title: "Sweet", Width: 5},
		{Title: "Cool", Width: 5},
		{Title: "Cells", Width: 30},
	}
}

// refreshCourses rebuilds the course list from the workspace.
func (m *Model) refreshCourses() {
	courses := m.ws.Courses()
	rows := make([]table.Row, 0, len(courses))
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, table.Row{
			c.Name,
			formatNumber(c.Credit),
			c.Category,
			strconv.Itoa(c.Sweetness),
			strconv.Itoa(c.Coolness),
			cellList(c.Cells),
		})
		ids = append(ids, c.ID)
	}
	m.courseTable.SetRows(rows)
	m.courseIDs = ids
	if cursor := m.courseTable.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		m.courseTable.SetCursor(len(rows) - 1)
	}
	m.renderPlannerOutput()
}

func (m *Model) selectedCourseID() string {
	idx := m.courseTable.Cursor()
	if idx < 0 || idx >= len(m.courseIDs) {
		return ""
	}
	return m.courseIDs[idx]
}

func courseTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func cellList(cells []model.Cell) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
