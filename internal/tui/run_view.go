package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/burrowlabs/burrow/internal/runner"
	"github.com/burrowlabs/burrow/internal/selection"
)

const (
	defaultViewportWidth  = 80
	defaultViewportHeight = 12
)

var (
	runTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	markerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
)

type runnerEventMsg struct {
	event runner.Event
}

type runnerClosedMsg struct{}

// waitForEvent blocks on the supervisor's event stream and converts the next
// event into a bubbletea message. Re-issued after every event until the
// stream closes.
func waitForEvent(events <-chan runner.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return runnerClosedMsg{}
		}
		return runnerEventMsg{event: event}
	}
}

// runView supervises one execution run: it renders the current module's
// output region and the per-module completion markers.
type runView struct {
	app    *App
	sel    selection.Selection
	sup    *runner.Supervisor
	cancel context.CancelFunc

	viewport viewport.Model
	spinner  spinner.Model

	current string
	index   int
	total   int
	lines   []string
	running bool
}

func newRunView(app *App, sel selection.Selection) *runView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runTitleStyle
	vp := viewport.New(defaultViewportWidth, defaultViewportHeight)
	view := &runView{
		app:      app,
		sel:      sel,
		sup:      runner.New(app.cat.Dir(), sel.Stream, app.log, runner.WithCaptureDir(app.captureDir)),
		viewport: vp,
		spinner:  sp,
		total:    len(sel.Modules),
	}
	if app.width > 0 && app.height > 0 {
		view.resize(app.width, app.height)
	}
	return view
}

// Init starts the supervisor and begins pumping its events.
func (v *runView) Init() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.running = true
	v.sup.Start(ctx, v.sel.Modules)
	v.app.lb.Info("run %s started · %d module(s)", v.sup.RunID(), v.total)
	return tea.Batch(v.spinner.Tick, waitForEvent(v.sup.Events()))
}

// stop cancels the run context so an interrupted orchestrator still kills
// the child and releases its transient resources.
func (v *runView) stop() {
	if v.cancel != nil {
		v.cancel()
	}
}

// shutdown cancels the run and blocks until the supervisor has finished its
// cleanup, or the timeout elapses.
func (v *runView) shutdown(timeout time.Duration) bool {
	v.stop()
	return v.sup.Wait(timeout)
}

func (v *runView) resize(width, height int) {
	w := width - 6
	if w < 20 {
		w = 20
	}
	h := height - 14
	if h < 5 {
		h = 5
	}
	v.viewport.Width = w
	v.viewport.Height = h
}

func (v *runView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case runnerEventMsg:
		v.handleEvent(msg.event)
		return waitForEvent(v.sup.Events())
	case runnerClosedMsg:
		v.stop()
		return nil
	case spinner.TickMsg:
		if !v.running {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return cmd
	default:
		return nil
	}
}

func (v *runView) handleEvent(event runner.Event) {
	switch event := event.(type) {
	case runner.ModuleStarted:
		// Fresh output region per module: nothing from the previous module
		// may bleed into this one.
		v.lines = nil
		v.current = event.Module.DisplayName
		v.index = event.Index + 1
		v.refreshViewport()
	case runner.OutputLine:
		v.lines = append(v.lines, event.Line)
		v.refreshViewport()
	case runner.CleanupWarning:
		v.lines = append(v.lines, warnStyle.Render("⚠ "+event.Detail))
		v.app.lb.Warn("%s: %s", event.Module, event.Detail)
		v.refreshViewport()
	case runner.ModuleFinished:
		marker := okStyle.Render(fmt.Sprintf("✓ %s completed", event.Module))
		if event.Failed {
			marker = failStyle.Render(fmt.Sprintf("✗ %s exited %d", event.Module, event.ExitCode))
			v.app.lb.Warn("module %s exited %d", event.Module, event.ExitCode)
		}
		v.lines = append(v.lines, markerStyle.Render("────────"), marker)
		v.refreshViewport()
	case runner.RunFinished:
		v.running = false
		v.stop()
		v.app.finishRun(event.Records)
	}
}

func (v *runView) refreshViewport() {
	v.viewport.SetContent(strings.Join(v.lines, "\n"))
	v.viewport.GotoBottom()
}

func (v *runView) View() string {
	title := fmt.Sprintf("Module %d/%d · %s", v.index, v.total, v.current)
	if v.current == "" {
		title = "Starting run…"
	}
	header := runTitleStyle.Render(title)
	if v.running {
		header = fmt.Sprintf("%s %s", v.spinner.View(), header)
	}
	var region string
	if v.sel.Stream {
		region = v.viewport.View()
	} else {
		body := dimStyle.Render("(output hidden)")
		if len(v.lines) > 0 {
			// Markers and warnings still show when streaming is off.
			body = strings.Join(append([]string{body}, v.lines...), "\n")
		}
		region = body
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, panelStyle.Render(region))
}
