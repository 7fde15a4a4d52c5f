package tui

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/classgrid/internal/model"
)

const (
	fieldName = iota
	fieldCredit
	fieldCategory
	fieldSweet
	fieldCool
)

const (
	defaultFormCredit = "2"
	defaultFormScore  = 5
)

var errNameRequired = errors.New("course name is required")

// courseForm is the modal that names the selected cells.
type courseForm struct {
	inputs []textinput.Model
	index  int
	err    string
}

func newCourseForm() courseForm {
	f := courseForm{
		inputs: []textinput.Model{
			newInput("Name: ", "Linear Algebra"),
			newInput("Credit: ", defaultFormCredit),
			newInput("Type: ", "required / elective / general-education / other"),
			newInput("Sweet (1-10): ", "5"),
			newInput("Cool (1-10): ", "5"),
		},
	}
	f.reset()
	return f
}

func newInput(prompt, placeholder string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (f *courseForm) reset() {
	f.inputs[fieldName].SetValue("")
	f.inputs[fieldCredit].SetValue(defaultFormCredit)
	f.inputs[fieldCategory].SetValue(model.CategoryRequired)
	f.inputs[fieldSweet].SetValue(strconv.Itoa(defaultFormScore))
	f.inputs[fieldCool].SetValue(strconv.Itoa(defaultFormScore))
	f.err = ""
}

// fill prefills the form from an existing course.
func (f *courseForm) fill(c model.Course) {
	f.inputs[fieldName].SetValue(c.Name)
	f.inputs[fieldCredit].SetValue(formatNumber(c.Credit))
	f.inputs[fieldCategory].SetValue(c.Category)
	f.inputs[fieldSweet].SetValue(strconv.Itoa(c.Sweetness))
	f.inputs[fieldCool].SetValue(strconv.Itoa(c.Coolness))
	f.err = ""
}

func (f *courseForm) focus(idx int) tea.Cmd {
	count := len(f.inputs)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	f.index = idx
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.index {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *courseForm) setWidth(width int) {
	for i := range f.inputs {
		promptWidth := lipgloss.Width(f.inputs[i].Prompt)
		f.inputs[i].Width = maxInt(10, width-promptWidth-1)
	}
}

func (f *courseForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.index], cmd = f.inputs[f.index].Update(msg)
	return cmd
}

// draft reads the form. Unparseable credit becomes 0; unparseable or zero
// scores fall back to 5.
func (f *courseForm) draft() (model.CourseDraft, error) {
	name := strings.TrimSpace(f.inputs[fieldName].Value())
	if name == "" {
		return model.CourseDraft{}, errNameRequired
	}
	credit, err := strconv.ParseFloat(strings.TrimSpace(f.inputs[fieldCredit].Value()), 64)
	if err != nil || credit < 0 || math.IsNaN(credit) || math.IsInf(credit, 0) {
		credit = 0
	}
	category := model.NormalizeCategory(f.inputs[fieldCategory].Value())
	if category == "" {
		category = model.CategoryRequired
	}
	return model.CourseDraft{
		Name:      name,
		Credit:    credit,
		Category:  category,
		Sweetness: scoreOrDefault(f.inputs[fieldSweet].Value()),
		Coolness:  scoreOrDefault(f.inputs[fieldCool].Value()),
	}, nil
}

func (f *courseForm) view(title string, cells []model.Cell) string {
	labels := make([]string, 0, len(cells))
	for _, c := range cells {
		labels = append(labels, c.String())
	}
	lines := []string{
		cardValueStyle.Render(title),
		headerStyle.Render("Cells: " + strings.Join(labels, ", ")),
	}
	for _, input := range f.inputs {
		lines = append(lines, input.View())
	}
	lines = append(lines, headerStyle.Render("tab/shift+tab: next field  enter: save  esc: cancel"))
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}

func scoreOrDefault(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v == 0 {
		return defaultFormScore
	}
	return v
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
