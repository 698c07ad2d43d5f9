package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-semnet/pkg/inference"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

type mode int

const (
	menuMode mode = iota
	inputMode
	outputMode
)

type keyMap struct {
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
	Up    key.Binding
	Down  key.Binding
}

var keys = keyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select/run"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back to menu"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Back, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Back, k.Quit},
	}
}

type model struct {
	engine   *inference.Engine
	mode     mode
	menu     list.Model
	input    textinput.Model
	output   viewport.Model
	help     help.Model
	keys     keyMap
	selected operation
	content  string
	errMsg   string
	width    int
	height   int
}

func initialModel(engine *inference.Engine) model {
	items := make([]list.Item, len(operations))
	for i, op := range operations {
		items[i] = op
	}
	menu := list.New(items, list.NewDefaultDelegate(), 40, 20)
	menu.Title = "Operations"
	menu.SetShowHelp(false)
	menu.SetFilteringEnabled(false)
	menu.KeyMap.Quit.SetEnabled(false)

	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 60

	return model{
		engine: engine,
		mode:   menuMode,
		menu:   menu,
		input:  ti,
		output: viewport.New(80, 20),
		help:   help.New(),
		keys:   keys,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.menu.SetSize(msg.Width-4, msg.Height-8)
		m.output.Width = msg.Width - 6
		m.output.Height = msg.Height - 10
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			if m.mode != menuMode {
				m.mode = menuMode
				m.errMsg = ""
				m.input.Blur()
				return m, nil
			}

		case key.Matches(msg, m.keys.Enter):
			switch m.mode {
			case menuMode:
				return m.choose()
			case inputMode:
				m.execute(strings.TrimSpace(m.input.Value()))
				return m, nil
			}
		}
	}

	switch m.mode {
	case menuMode:
		m.menu, cmd = m.menu.Update(msg)
	case inputMode:
		m.input, cmd = m.input.Update(msg)
	case outputMode:
		m.output, cmd = m.output.Update(msg)
	}
	return m, cmd
}

// choose opens the selected operation: straight to output when it takes no
// input, otherwise to the prompt.
func (m model) choose() (tea.Model, tea.Cmd) {
	op, ok := m.menu.SelectedItem().(operation)
	if !ok {
		return m, nil
	}
	m.selected = op
	m.errMsg = ""
	if op.prompt == "" {
		m.execute("")
		return m, nil
	}
	m.mode = inputMode
	m.input.Reset()
	m.input.Prompt = op.prompt
	m.input.Placeholder = op.hint
	cmd := m.input.Focus()
	return m, cmd
}

func (m *model) execute(input string) {
	out, err := m.selected.run(m.engine, input)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.content = out
	m.output.SetContent(out)
	m.output.GotoTop()
	m.input.Blur()
	m.mode = outputMode
}

func (m model) View() string {
	var s strings.Builder
	st := m.engine.Store().Statistics()

	s.WriteString(titleStyle.Render("Medical Diagnosis Expert System"))
	s.WriteString("\n")
	s.WriteString(statusStyle.Render(formatStatus(st)))
	s.WriteString("\n\n")

	switch m.mode {
	case menuMode:
		s.WriteString(m.menu.View())
	case inputMode:
		s.WriteString(promptStyle.Render(m.selected.title))
		s.WriteString("\n\n")
		s.WriteString(m.input.View())
		if h := m.inputHint(); h != "" {
			s.WriteString("\n\n")
			s.WriteString(statusStyle.Render(h))
		}
	case outputMode:
		s.WriteString(outputStyle.Render(m.output.View()))
	}

	if m.errMsg != "" {
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render("✗ " + m.errMsg))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

// inputHint lists the names the current prompt accepts.
func (m model) inputHint() string {
	switch m.selected.title {
	case "Diagnose":
		return "Known symptoms: " + knownNames(m.engine, knowledge.TypeSymptom)
	case "Symptoms", "Treatments":
		return "Known diseases: " + knownNames(m.engine, knowledge.TypeDisease)
	case "Category":
		return "Known categories: " + knownNames(m.engine, knowledge.TypeCategory)
	}
	return ""
}

func formatStatus(st knowledge.Statistics) string {
	return fmt.Sprintf("Nodes: %d  Relations: %d", st.Nodes, st.Relations)
}
