// internal/tui/app.go
//
// The terminal UI for burrow, built on bubbletea's Elm architecture:
// messages flow into Update, Update produces a new model, View renders it.
// The app moves through three screens: the module checklist, the run screen
// supervising execution, and the summary.

package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/burrowlabs/burrow/internal/catalog"
	"github.com/burrowlabs/burrow/internal/config"
	"github.com/burrowlabs/burrow/internal/logbook"
	"github.com/burrowlabs/burrow/internal/runner"
	"github.com/burrowlabs/burrow/internal/selection"
)

// sessionState represents which screen we're on.
type sessionState int

const (
	stateChecklist sessionState = iota // multi-select module checklist
	stateRunning                       // supervising module execution
	stateDone                          // aggregate summary
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF9F43")).MarginBottom(1)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	logHeadStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
)

// App is the main application model holding all UI state.
type App struct {
	state sessionState
	cfg   *config.Config
	cat   *catalog.Catalog
	lb    *logbook.Logbook
	log   zerolog.Logger

	checklist checklistModel
	runView   *runView

	// captureDir overrides where the supervisor keeps its per-module
	// capture files; empty means the system temp directory.
	captureDir string

	cancelled   bool
	interrupted bool
	records     []runner.Record

	width  int
	height int

	statusMsg string
}

// NewApp creates the application model over an already-built catalog.
func NewApp(cfg *config.Config, cat *catalog.Catalog, lb *logbook.Logbook) *App {
	return &App{
		state:     stateChecklist,
		cfg:       cfg,
		cat:       cat,
		lb:        lb,
		log:       lb.Logger(),
		checklist: newChecklist(cat, cfg.Options.StreamOutput),
		statusMsg: "Select the modules to install",
	}
}

// Cancelled reports whether the operator left without selecting anything.
// Cancellation is not an error; the process still exits 0.
func (a *App) Cancelled() bool { return a.cancelled }

// Interrupted reports whether the operator aborted a run in progress, in
// which case the aggregate records never arrived.
func (a *App) Interrupted() bool { return a.interrupted }

// Records returns the per-module execution records once the run finished.
func (a *App) Records() []runner.Record { return a.records }

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.checklist.setWidth(msg.Width)
		if a.runView != nil {
			a.runView.resize(msg.Width, msg.Height)
		}
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a.interrupt()
		case "q", "esc":
			switch a.state {
			case stateChecklist:
				a.cancelled = true
				a.lb.Info("selection cancelled by operator")
				return a, tea.Quit
			case stateDone:
				return a, tea.Quit
			}
			// No mid-module cancellation: keys are ignored while running.
			return a, nil
		case "enter":
			switch a.state {
			case stateChecklist:
				return a.submitSelection()
			case stateDone:
				return a, tea.Quit
			}
			return a, nil
		}
	}

	var cmds []tea.Cmd
	switch a.state {
	case stateChecklist:
		if key, ok := msg.(tea.KeyMsg); ok {
			a.checklist.Update(key)
		}
	case stateRunning, stateDone:
		if a.runView != nil {
			if cmd := a.runView.Update(msg); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}
	return a, tea.Batch(cmds...)
}

// submitSelection resolves the checklist into an execution plan and, unless
// it is empty, hands it to the execution supervisor.
func (a *App) submitSelection() (tea.Model, tea.Cmd) {
	sel := selection.Resolve(a.cat, a.checklist.Choices())
	if sel.Empty() {
		a.cancelled = true
		a.lb.Info("no modules selected")
		return a, tea.Quit
	}
	names := make([]string, 0, len(sel.Modules))
	for _, mod := range sel.Modules {
		names = append(names, mod.DisplayName)
	}
	a.lb.Info("selected: %s (stream output: %t)", strings.Join(names, ", "), sel.Stream)
	a.state = stateRunning
	a.statusMsg = "Installing selected modules"
	a.runView = newRunView(a, sel)
	return a, a.runView.Init()
}

// interruptJoinTimeout bounds how long an interrupt may block on supervisor
// teardown. It must exceed the relay grace period or the join gives up while
// cleanup is still legitimately in flight.
const interruptJoinTimeout = 10 * time.Second

// interrupt tears down a running supervisor before quitting. Quitting is
// deferred until the supervisor has released the child process and its
// capture file, bounded by interruptJoinTimeout.
func (a *App) interrupt() (tea.Model, tea.Cmd) {
	switch a.state {
	case stateChecklist:
		a.cancelled = true
	case stateRunning:
		a.interrupted = true
		a.lb.Warn("run interrupted by operator")
	}
	if a.runView != nil {
		if !a.runView.shutdown(interruptJoinTimeout) {
			a.lb.Warn("supervisor did not finish cleanup before exit")
		}
	}
	return a, tea.Quit
}

// finishRun is invoked by the run view once the aggregate records arrive.
func (a *App) finishRun(records []runner.Record) {
	a.records = records
	a.state = stateDone
	failures := 0
	for _, record := range records {
		if record.Failed {
			failures++
		}
	}
	if failures > 0 {
		a.statusMsg = fmt.Sprintf("All selected modules executed · %d failed", failures)
	} else {
		a.statusMsg = "All selected modules executed"
	}
	a.lb.Info(a.statusMsg)
}

// View renders the current state to a string.
func (a *App) View() string {
	header := headerStyle.Render("⬢ BURROW")
	var content string
	switch a.state {
	case stateChecklist:
		content = a.checklist.View()
	case stateRunning:
		if a.runView != nil {
			content = a.runView.View()
		} else {
			content = "Preparing run…"
		}
	case stateDone:
		content = a.renderSummary()
	}
	sections := []string{header, content}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, footerStyle.Render(a.statusMsg))
	return strings.Join(sections, "\n")
}

func (a *App) renderSummary() string {
	lines := make([]string, 0, len(a.records)+2)
	for _, record := range a.records {
		mark := okStyle.Render("✓")
		detail := fmt.Sprintf("installed in %s", record.Duration.Round(durationGrain(record)))
		if record.Failed {
			mark = failStyle.Render("✗")
			detail = fmt.Sprintf("exited %d", record.ExitCode)
		}
		line := fmt.Sprintf("%s %s · %s", mark, record.Module, detail)
		if len(record.CleanupWarnings) > 0 {
			line += dimStyle.Render(fmt.Sprintf(" · %d cleanup warning(s)", len(record.CleanupWarnings)))
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", dimStyle.Render("Enter or q → exit"))
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderLogPanel() string {
	if a.lb == nil {
		return ""
	}
	lines := a.lb.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.lb.Path())
	head := logHeadStyle.Render(fmt.Sprintf("LOG · %s", fileName))
	body := dimStyle.Render(strings.Join(lines, "\n"))
	return panelStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

func durationGrain(record runner.Record) time.Duration {
	if record.Duration >= time.Second {
		return time.Second
	}
	return time.Millisecond
}
