// Package tui provides the Bubble Tea timetable editor.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/classgrid/internal/model"
	"github.com/verte-zerg/classgrid/internal/reminder"
	"github.com/verte-zerg/classgrid/internal/workspace"
)

const (
	tabTimetable = iota
	tabCourses
	tabPlanner
)

type mode int

const (
	modeBrowse mode = iota
	modeForm
	modeConfirm
	modePath
	modeSettings
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8FBF7F"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Options configures the editor.
type Options struct {
	Minutes       model.MinuteParams
	Window        model.StudyWindow
	NotifyCommand string
	Now           func() time.Time
}

// Model implements the Bubble Tea timetable editor.
type Model struct {
	ws   *workspace.Workspace
	opts Options

	tabs      []string
	activeTab int
	mode      mode

	width  int
	height int

	cursor    model.Cell
	selected  map[model.Cell]struct{}
	dragging  bool
	editingID string

	form    courseForm
	confirm confirmDialog
	prompt  pathPrompt

	courseTable table.Model
	courseIDs   []string

	settings      []textinput.Model
	settingsIndex int
	output        viewport.Model

	dispatcher *reminder.Dispatcher
	alerts     chan tea.Msg
	reminding  int

	status string
	errMsg string
}

type alertMsg struct {
	title string
	body  string
}

type reminderErrMsg struct {
	err error
}

// NewModel constructs the editor over a loaded workspace.
func NewModel(ws *workspace.Workspace, opts Options) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Model{
		ws:       ws,
		opts:     opts,
		tabs:     []string{"Timetable", "Courses", "Planner"},
		cursor:   model.Cell{Day: 1, Period: 1},
		selected: map[model.Cell]struct{}{},
		form:     newCourseForm(),
		prompt:   newPathPrompt(),
		output:   viewport.New(0, 0),
		alerts:   make(chan tea.Msg, 16),
	}
	m.initSettings()
	m.initCourseTable()
	m.initDispatcher()
	m.refreshCourses()
	m.renderPlannerOutput()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return waitForAlert(m.alerts)
}

// Close cancels pending reminders.
func (m *Model) Close() {
	m.dispatcher.Stop()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case alertMsg:
		m.status = fmt.Sprintf("%s  %s", msg.title, msg.body)
		return m, waitForAlert(m.alerts)
	case reminderErrMsg:
		m.errMsg = fmt.Sprintf("reminder failed: %v", msg.err)
		return m, waitForAlert(m.alerts)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Close()
			return m, tea.Quit
		}
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modePath:
			return m.updatePath(msg)
		case modeSettings:
			return m.updateSettings(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	switch m.mode {
	case modeForm:
		return m.renderModal(m.form.view(m.formTitle(), m.selectedCells()))
	case modeConfirm:
		return m.renderModal(m.confirm.view())
	case modePath:
		return m.renderModal(m.prompt.view())
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderTabs(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errMsg = ""
	switch msg.String() {
	case "q":
		m.Close()
		return m, tea.Quit
	case "tab":
		m.moveTab(1)
		return m, tea.ClearScreen
	case "shift+tab":
		m.moveTab(-1)
		return m, tea.ClearScreen
	case "1", "2", "3":
		m.setTab(int(msg.Runes[0] - '1'))
		return m, tea.ClearScreen
	case "i":
		return m, m.openPath(pathImport, "courses.csv")
	case "x":
		return m, m.openPath(pathExportCourses, "courses.csv")
	case "C":
		m.openConfirm(confirmClear, "Clear the whole timetable?", "")
		return m, nil
	}
	switch m.activeTab {
	case tabTimetable:
		return m.updateTimetable(msg)
	case tabCourses:
		return m.updateCourses(msg)
	default:
		return m.updatePlanner(msg)
	}
}

func (m *Model) updateTimetable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		m.moveCursor(-1, 0)
	case "right", "l":
		m.moveCursor(1, 0)
	case "up", "k":
		m.moveCursor(0, -1)
	case "down", "j":
		m.moveCursor(0, 1)
	case " ":
		m.toggleCell(m.cursor)
	case "v":
		if m.dragging {
			m.dragging = false
			if len(m.selected) > 0 {
				return m, m.openForm()
			}
			return m, nil
		}
		m.dragging = true
		m.toggleCell(m.cursor)
	case "enter":
		if len(m.selected) == 0 {
			m.toggleCell(m.cursor)
		}
		m.dragging = false
		return m, m.openForm()
	case "esc":
		m.clearSelection()
	case "e":
		if owners := m.ws.Owners(m.cursor); len(owners) > 0 {
			return m, m.editCourse(owners[0].ID)
		}
	case "d":
		if owners := m.ws.Owners(m.cursor); len(owners) > 0 {
			m.openConfirm(confirmDelete, fmt.Sprintf("Delete %q and its cells?", owners[0].Name), owners[0].ID)
		}
	}
	return m, nil
}

func (m *Model) updateCourses(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "e":
		if id := m.selectedCourseID(); id != "" {
			return m, m.editCourse(id)
		}
		return m, nil
	case "d":
		if id := m.selectedCourseID(); id != "" {
			if c, ok := m.ws.Course(id); ok {
				m.openConfirm(confirmDelete, fmt.Sprintf("Delete %q and its cells?", c.Name), id)
			}
		}
		return m, nil
	case "g", "home":
		m.courseTable.GotoTop()
		return m, nil
	case "G", "end":
		m.courseTable.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.courseTable, cmd = m.courseTable.Update(msg)
	return m, cmd
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.setTab(next)
}

func (m *Model) setTab(idx int) {
	if idx < 0 || idx >= len(m.tabs) {
		return
	}
	m.activeTab = idx
	m.dragging = false
	if m.activeTab == tabCourses {
		m.courseTable.Focus()
	} else {
		m.courseTable.Blur()
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(activeNavStyle.Render("X"))
	if headerHeight < 1 {
		headerHeight = 1
	}
	footerHeight = 2
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.courseTable.SetWidth(m.width)
	m.courseTable.SetHeight(maxInt(1, bodyHeight-1))
	m.output.Width = m.width
	m.output.Height = maxInt(1, bodyHeight-len(m.settings)-1)
	m.form.setWidth(modalInnerWidth(m.width))
	m.prompt.setWidth(modalInnerWidth(m.width))
	for i := range m.settings {
		promptWidth := lipgloss.Width(m.settings[i].Prompt)
		m.settings[i].Width = maxInt(10, m.width/2-promptWidth)
	}
	m.renderPlannerOutput()
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return padLines(lipgloss.JoinHorizontal(lipgloss.Top, parts...), m.width)
}

func (m *Model) renderBody(height int) string {
	switch m.activeTab {
	case tabTimetable:
		grid := m.renderGrid()
		return grid + "\n\n" + m.renderCellDetail()
	case tabCourses:
		if len(m.courseIDs) == 0 {
			return "No courses yet. Select cells on the timetable and press enter."
		}
		return tableMutedStyle.Render(m.courseTable.View())
	default:
		return m.renderPlanner(height)
	}
}

func (m *Model) renderFooter() string {
	help := m.renderHelp()
	switch {
	case m.errMsg != "":
		return help + "\n" + errorStyle.Render(truncateLine(m.errMsg, m.width))
	case m.status != "":
		return help + "\n" + statusStyle.Render(truncateLine(m.status, m.width))
	default:
		return help
	}
}

func (m *Model) renderHelp() string {
	var help string
	switch m.activeTab {
	case tabTimetable:
		help = "Move: arrows/hjkl  Toggle: space  Drag: v  Save: enter  Edit: e  Delete: d  Clear sel: esc"
		if m.dragging {
			help = "Dragging: move to toggle cells, v to finish"
		}
	case tabCourses:
		help = "Select: up/down  Edit: enter/e  Delete: d"
	default:
		help = "Settings: /  Minutes: m  Blocks: b  Export: s  Remind: r  Stop: R"
	}
	help += "  Import: i  Export: x  Clear: C  Tabs: tab  Quit: q"
	return headerStyle.Render(truncateLine(help, m.width))
}

func (m *Model) renderModal(content string) string {
	box := modalStyle.Width(modalWidth(m.width)).Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func waitForAlert(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func (m *Model) post(msg tea.Msg) {
	select {
	case m.alerts <- msg:
	default:
		logErrf("dropped reminder message: %v\n", msg)
	}
}

func (m *Model) ctx() context.Context {
	return context.Background()
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
