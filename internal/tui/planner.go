package tui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/classgrid/internal/model"
	"github.com/verte-zerg/classgrid/internal/planner"
	"github.com/verte-zerg/classgrid/internal/reminder"
	"github.com/verte-zerg/classgrid/internal/report"
)

const (
	settingTotal = iota
	settingMin
	settingRound
	settingStart
	settingEnd
)

// statusNotifier runs the desktop command and mirrors the reminder in the footer.
type statusNotifier struct {
	reminder.CommandNotifier
	post func(tea.Msg)
}

func (n statusNotifier) Notify(ctx context.Context, title, body string) error {
	n.post(alertMsg{title: title, body: body})
	return n.CommandNotifier.Notify(ctx, title, body)
}

func (m *Model) initDispatcher() {
	command := m.opts.NotifyCommand
	if command == "" {
		command = reminder.DefaultCommand
	}
	primary := statusNotifier{CommandNotifier: reminder.CommandNotifier{Command: command}, post: m.post}
	fallback := reminder.NotifierFunc(func(_ context.Context, title, body string) error {
		m.post(alertMsg{title: title, body: body})
		return nil
	})
	m.dispatcher = reminder.NewDispatcher(primary, fallback,
		reminder.WithErrorHandler(func(err error) {
			m.post(reminderErrMsg{err: err})
		}),
	)
}

func (m *Model) initSettings() {
	m.settings = []textinput.Model{
		newInput("Total minutes: ", "120"),
		newInput("Min per course: ", "0"),
		newInput("Round to: ", "5"),
		newInput("Start (HH:MM): ", "19:00"),
		newInput("End (HH:MM): ", "22:00"),
	}
	m.setSettingsFromOptions()
}

func (m *Model) setSettingsFromOptions() {
	m.settings[settingTotal].SetValue(formatNumber(m.opts.Minutes.TotalMinutes))
	m.settings[settingMin].SetValue(formatNumber(m.opts.Minutes.MinMinutes))
	m.settings[settingRound].SetValue(formatNumber(m.opts.Minutes.RoundTo))
	m.settings[settingStart].SetValue(m.opts.Window.Start)
	m.settings[settingEnd].SetValue(m.opts.Window.End)
}

func (m *Model) setSettingsIndex(idx int) tea.Cmd {
	count := len(m.settings)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.settingsIndex = idx
	var cmd tea.Cmd
	for i := range m.settings {
		if i == m.settingsIndex {
			cmd = m.settings[i].Focus()
		} else {
			m.settings[i].Blur()
		}
	}
	return cmd
}

func (m *Model) updatePlanner(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "/", "enter":
		m.mode = modeSettings
		return m, m.setSettingsIndex(0)
	case "m":
		m.computeMinutes()
		return m, nil
	case "b":
		m.makeBlocks()
		return m, nil
	case "s":
		if len(m.ws.Schedule()) == 0 {
			m.errMsg = "no schedule generated yet"
			return m, nil
		}
		return m, m.openPath(pathExportSchedule, "study_schedule.csv")
	case "r":
		m.startReminders()
		return m, nil
	case "R":
		n := m.dispatcher.Stop()
		m.reminding = 0
		m.status = fmt.Sprintf("Cancelled %d reminders", n)
		m.renderPlannerOutput()
		return m, nil
	case "g", "home":
		m.output.GotoTop()
		return m, nil
	case "G", "end":
		m.output.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.output, cmd = m.output.Update(msg)
	return m, cmd
}

func (m *Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.setSettingsFromOptions()
		m.blurSettings()
		return m, nil
	case tea.KeyEnter:
		if err := m.applySettings(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.mode = modeBrowse
		m.blurSettings()
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.setSettingsIndex(m.settingsIndex + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.setSettingsIndex(m.settingsIndex - 1)
	}
	var cmd tea.Cmd
	m.settings[m.settingsIndex], cmd = m.settings[m.settingsIndex].Update(msg)
	return m, cmd
}

func (m *Model) blurSettings() {
	for i := range m.settings {
		m.settings[i].Blur()
	}
}

func (m *Model) applySettings() error {
	total, err := parseSetting(m.settings[settingTotal].Value(), "total minutes")
	if err != nil {
		return err
	}
	minMinutes, err := parseSetting(m.settings[settingMin].Value(), "min per course")
	if err != nil {
		return err
	}
	roundTo, err := parseSetting(m.settings[settingRound].Value(), "round to")
	if err != nil {
		return err
	}
	window := model.StudyWindow{
		Start: strings.TrimSpace(m.settings[settingStart].Value()),
		End:   strings.TrimSpace(m.settings[settingEnd].Value()),
	}
	if _, _, err := planner.ResolveWindow(m.opts.Now(), window); err != nil {
		return err
	}
	m.opts.Minutes = model.MinuteParams{TotalMinutes: total, MinMinutes: minMinutes, RoundTo: roundTo}
	m.opts.Window = window
	return nil
}

func parseSetting(raw, label string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s (use a number >= 0)", label)
	}
	return v, nil
}

func (m *Model) computeMinutes() {
	allocation, err := m.ws.ComputeMinutes(m.opts.Minutes)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.status = fmt.Sprintf("Allocated %s minutes across %d courses", formatNumber(planner.TotalMinutes(allocation)), len(allocation))
	m.renderPlannerOutput()
}

func (m *Model) makeBlocks() {
	schedule, err := m.ws.MakeBlocks(m.ctx(), m.opts.Now(), m.opts.Window)
	if err != nil && len(schedule) == 0 {
		m.errMsg = err.Error()
		return
	}
	if err != nil {
		m.errMsg = err.Error()
	} else {
		m.status = fmt.Sprintf("Packed %d study blocks", len(schedule))
	}
	m.renderPlannerOutput()
}

func (m *Model) startReminders() {
	schedule := m.ws.Schedule()
	if len(schedule) == 0 {
		m.errMsg = "generate a schedule first"
		return
	}
	m.dispatcher.Stop()
	tasks := m.dispatcher.Start(m.ctx(), schedule)
	m.reminding = len(tasks)
	via := "desktop notifications"
	if !m.dispatcher.Granted() {
		via = "terminal alerts"
	}
	m.status = fmt.Sprintf("Reminders armed for %d blocks via %s; keep classgrid open", len(tasks), via)
	m.renderPlannerOutput()
}

func (m *Model) renderPlanner(height int) string {
	lines := make([]string, 0, len(m.settings)+1)
	for _, input := range m.settings {
		lines = append(lines, input.View())
	}
	settings := strings.Join(lines, "\n")
	if m.mode != modeSettings {
		settings = headerStyle.Render(settings)
	}
	return fitLines(settings+"\n"+m.output.View(), m.width, height)
}

func (m *Model) renderPlannerOutput() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	var buf bytes.Buffer
	if allocation := m.ws.Allocation(); len(allocation) > 0 {
		buf.WriteString("Minutes\n")
		if err := report.RenderAllocation(&buf, allocation, report.Options{Width: width}); err != nil {
			fmt.Fprintf(&buf, "Failed to render allocation: %v\n", err)
		}
	} else if len(m.ws.Courses()) == 0 {
		buf.WriteString("No courses yet.\n")
	} else {
		buf.WriteString("Press m to allocate minutes or b to pack study blocks.\n")
	}
	if schedule := m.ws.Schedule(); len(schedule) > 0 {
		buf.WriteString("\nStudy blocks\n")
		if err := report.RenderSchedule(&buf, schedule); err != nil {
			fmt.Fprintf(&buf, "Failed to render schedule: %v\n", err)
		}
		if m.reminding > 0 {
			fmt.Fprintf(&buf, "\n%d reminders armed.\n", m.reminding)
		}
	}
	m.output.SetContent(strings.TrimRight(buf.String(), "\n"))
}
