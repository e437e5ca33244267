package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/burrowlabs/burrow/internal/catalog"
	"github.com/burrowlabs/burrow/internal/selection"
)

var (
	checklistTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	cursorRowStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	checkedStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	sectionStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
)

type entryKind int

const (
	entryModule entryKind = iota
	entryToggle
)

// checklistEntry is one selectable row: a catalog module or a mode toggle.
type checklistEntry struct {
	kind    entryKind
	index   int // catalog index, meaningful for entryModule only
	toggle  selection.Toggle
	title   string
	desc    string
	checked bool
}

type checklistKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	All    key.Binding
	None   key.Binding
	Submit key.Binding
	Quit   key.Binding
}

func (k checklistKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.All, k.None, k.Submit, k.Quit}
}

func (k checklistKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.All, k.None, k.Submit, k.Quit},
	}
}

func defaultChecklistKeys() checklistKeyMap {
	return checklistKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		All:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		None:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "select none")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "install")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	}
}

// checklistModel is the multi-select surface: every module defaults to
// unselected, every toggle to its configured default.
type checklistModel struct {
	entries []checklistEntry
	cursor  int
	keys    checklistKeyMap
	help    help.Model
	width   int
}

func newChecklist(cat *catalog.Catalog, streamDefault bool) checklistModel {
	modules := cat.Modules()
	entries := make([]checklistEntry, 0, len(modules)+1)
	for i, mod := range modules {
		entries = append(entries, checklistEntry{
			kind:  entryModule,
			index: i,
			title: mod.DisplayName,
			desc:  mod.FileName,
		})
	}
	entries = append(entries, checklistEntry{
		kind:    entryToggle,
		toggle:  selection.ToggleStream,
		title:   "Stream live output",
		desc:    "relay module output while it runs",
		checked: streamDefault,
	})
	return checklistModel{
		entries: entries,
		keys:    defaultChecklistKeys(),
		help:    help.New(),
	}
}

func (m *checklistModel) setWidth(width int) {
	m.width = width
	m.help.Width = width
}

// Update handles navigation and toggling. Submission and cancellation are
// the App's responsibility.
func (m *checklistModel) Update(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		m.entries[m.cursor].checked = !m.entries[m.cursor].checked
	case key.Matches(msg, m.keys.All):
		for i := range m.entries {
			if m.entries[i].kind == entryModule {
				m.entries[i].checked = true
			}
		}
	case key.Matches(msg, m.keys.None):
		for i := range m.entries {
			if m.entries[i].kind == entryModule {
				m.entries[i].checked = false
			}
		}
	}
}

// Choices returns the checked entries as tagged selection choices.
func (m *checklistModel) Choices() []selection.Choice {
	var choices []selection.Choice
	for _, entry := range m.entries {
		if !entry.checked {
			continue
		}
		switch entry.kind {
		case entryModule:
			choices = append(choices, selection.ModuleChoice(entry.index))
		case entryToggle:
			choices = append(choices, selection.ToggleChoice(entry.toggle))
		}
	}
	return choices
}

func (m *checklistModel) View() string {
	var b strings.Builder
	b.WriteString(checklistTitleStyle.Render("Modules"))
	b.WriteString("\n")
	for i, entry := range m.entries {
		if entry.kind == entryToggle && i > 0 && m.entries[i-1].kind == entryModule {
			b.WriteString(sectionStyle.Render("Options"))
			b.WriteString("\n")
		}
		b.WriteString(m.renderEntry(entry, i == m.cursor))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *checklistModel) renderEntry(entry checklistEntry, selected bool) string {
	box := "[ ]"
	if entry.checked {
		box = checkedStyle.Render("[x]")
	}
	cursor := "  "
	if selected {
		cursor = "> "
	}
	line := fmt.Sprintf("%s%s %s", cursor, box, entry.title)
	if entry.desc != "" {
		line += dimStyle.Render(fmt.Sprintf("  %s", entry.desc))
	}
	if selected {
		return cursorRowStyle.Render(line)
	}
	return line
}
