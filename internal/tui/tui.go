package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/linepatch/internal/patcher"
	"github.com/sokinpui/linepatch/internal/ui"
)

// --- Styles ---
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	labelStyle  = lipgloss.NewStyle().Faint(true)
	lineStyle   = lipgloss.NewStyle().PaddingLeft(2)
)

// --- Keys ---
type keyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	Confirm: key.NewBinding(
		key.WithKeys("y", "enter"),
		key.WithHelp("y/enter", "apply"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "q", "esc", "ctrl+c"),
		key.WithHelp("n/esc", "skip"),
	),
}

// --- Model ---

// Model asks whether a single changed line should be written.
type Model struct {
	path       string
	lineNumber int
	before     string
	after      string
	keys       keyMap
	help       help.Model
	confirmed  bool
	done       bool
}

// New builds a confirmation prompt for res, a changed line of path.
func New(path string, lineNumber int, res patcher.Result) Model {
	before, after := ui.Highlight(res.OldLine, res.NewLine)
	return Model{
		path:       path,
		lineNumber: lineNumber,
		before:     before,
		after:      after,
		keys:       defaultKeys,
		help:       help.New(),
	}
}

// Confirmed reports whether the user accepted the change.
func (m Model) Confirmed() bool {
	return m.confirmed
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirmed = true
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m Model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s:%d", m.path, m.lineNumber)))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("before"))
	b.WriteString("\n")
	b.WriteString(lineStyle.Render(m.before))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("after"))
	b.WriteString("\n")
	b.WriteString(lineStyle.Render(m.after))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// Confirm runs the prompt on the terminal and reports the user's choice.
// The prompt is drawn on stderr so stdout stays reserved for results.
func Confirm(path string, lineNumber int, res patcher.Result) (bool, error) {
	p := tea.NewProgram(New(path, lineNumber, res), tea.WithOutput(os.Stderr), tea.WithInputTTY())
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return final.(Model).Confirmed(), nil
}
