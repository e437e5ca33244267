// Package runner executes the selected modules sequentially and supervises
// their output. Modules never run concurrently (installers may share package
// locks); the only concurrency is the per-module output relay goroutine that
// lives exactly as long as its child process, plus a bounded grace period.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/burrowlabs/burrow/internal/catalog"
)

// DefaultRelayGrace bounds how long the output relay may outlive its child.
const DefaultRelayGrace = 2 * time.Second

// Event is delivered to the UI while a run progresses.
type Event interface{ isEvent() }

// ModuleStarted announces the next module. The display region is cleared on
// receipt so one module's output never bleeds into the next.
type ModuleStarted struct {
	Index  int
	Total  int
	Module catalog.Module
}

// OutputLine is one line of child output, escape sequences already stripped.
// Only emitted when live streaming is enabled.
type OutputLine struct {
	Module string
	Line   string
}

// ModuleFinished records a module's terminal state. A non-zero exit is
// recorded, never fatal to the run.
type ModuleFinished struct {
	Module   string
	ExitCode int
	Failed   bool
	Duration time.Duration
}

// CleanupWarning reports a transient resource that could not be torn down.
// Non-fatal; it never masks the module's own exit status.
type CleanupWarning struct {
	Module string
	Detail string
}

// RunFinished carries the aggregate records after the last module.
type RunFinished struct {
	Records []Record
}

func (ModuleStarted) isEvent()  {}
func (OutputLine) isEvent()     {}
func (ModuleFinished) isEvent() {}
func (CleanupWarning) isEvent() {}
func (RunFinished) isEvent()    {}

// Record is the per-module execution record for one run.
type Record struct {
	Module          string
	Path            string
	Started         time.Time
	Duration        time.Duration
	ExitCode        int
	Failed          bool
	CleanupWarnings []string
}

// Option customizes Supervisor construction.
type Option func(*Supervisor)

// WithRelayGrace overrides the relay teardown grace period.
func WithRelayGrace(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithCaptureDir overrides where per-module capture files are created.
// Defaults to the system temp directory.
func WithCaptureDir(dir string) Option {
	return func(s *Supervisor) {
		if dir != "" {
			s.captureDir = dir
		}
	}
}

// Supervisor runs selected modules one at a time in catalog order.
type Supervisor struct {
	workDir    string
	captureDir string
	stream     bool
	grace      time.Duration
	runID      string
	log        zerolog.Logger
	events     chan Event
	done       chan struct{}
}

// New builds a supervisor. workDir becomes each child's working directory;
// stream controls whether output lines are relayed to the display.
func New(workDir string, stream bool, log zerolog.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		workDir: workDir,
		stream:  stream,
		grace:   DefaultRelayGrace,
		runID:   uuid.NewString(),
		log:     log,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RunID identifies this run in logs and records.
func (s *Supervisor) RunID() string { return s.runID }

// Events returns the event stream. It is closed after RunFinished.
func (s *Supervisor) Events() <-chan Event { return s.events }

// Start launches the run in its own goroutine. The caller consumes Events
// until the channel closes.
func (s *Supervisor) Start(ctx context.Context, modules []catalog.Module) {
	go s.run(ctx, modules)
}

// Wait blocks until the run goroutine has finished releasing its transient
// resources, or the timeout elapses. Interrupted callers must join here so
// capture files never leak across runs.
func (s *Supervisor) Wait(timeout time.Duration) bool {
	select {
	case <-s.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Supervisor) run(ctx context.Context, modules []catalog.Module) {
	defer close(s.done)
	defer close(s.events)
	records := make([]Record, 0, len(modules))
	for i, mod := range modules {
		records = append(records, s.runModule(ctx, i, len(modules), mod))
	}
	s.log.Info().Str("run", s.runID).Int("modules", len(records)).Msg("all selected modules executed")
	s.emit(ctx, RunFinished{Records: records})
}

// runModule executes one module with its transient resources scoped to this
// call. Cleanup runs on every path, including context cancellation; the named
// return lets deferred cleanup warnings land in the record.
func (s *Supervisor) runModule(ctx context.Context, index, total int, mod catalog.Module) (record Record) {
	record = Record{Module: mod.DisplayName, Path: mod.Path, Started: time.Now()}
	s.emit(ctx, ModuleStarted{Index: index, Total: total, Module: mod})
	s.log.Info().Str("run", s.runID).Str("module", mod.DisplayName).Msg("module started")

	warn := func(detail string) {
		record.CleanupWarnings = append(record.CleanupWarnings, detail)
		s.log.Warn().Str("run", s.runID).Str("module", mod.DisplayName).Msg(detail)
		s.emit(ctx, CleanupWarning{Module: mod.DisplayName, Detail: detail})
	}

	// Per-module capture file so the full output survives review even when
	// streaming is off. Removed before the next module starts.
	capture, err := os.CreateTemp(s.captureDir, "burrow-module-*.log")
	if err != nil {
		capture = nil
		warn(fmt.Sprintf("could not create capture file: %v", err))
	}
	defer func() {
		if capture == nil {
			return
		}
		if err := capture.Close(); err != nil {
			warn(fmt.Sprintf("close capture file: %v", err))
		}
		if err := os.Remove(capture.Name()); err != nil {
			warn(fmt.Sprintf("remove capture file: %v", err))
		}
	}()

	record.ExitCode, record.Failed = s.superviseChild(ctx, mod, capture, warn)
	record.Duration = time.Since(record.Started)

	if record.Failed {
		s.log.Error().Str("run", s.runID).Str("module", mod.DisplayName).Int("exit", record.ExitCode).Msg("module failed")
	} else {
		s.log.Info().Str("run", s.runID).Str("module", mod.DisplayName).Msg("module finished")
	}
	s.emit(ctx, ModuleFinished{
		Module:   mod.DisplayName,
		ExitCode: record.ExitCode,
		Failed:   record.Failed,
		Duration: record.Duration,
	})
	return record
}

// superviseChild launches the module process with a line-buffered relay and
// joins the relay within the grace period after the child exits.
func (s *Supervisor) superviseChild(ctx context.Context, mod catalog.Module, capture *os.File, warn func(string)) (exitCode int, failed bool) {
	reader, writer, err := os.Pipe()
	if err != nil {
		warn(fmt.Sprintf("create output pipe: %v", err))
		return -1, true
	}

	cmd := exec.CommandContext(ctx, mod.Path)
	cmd.Dir = s.workDir
	cmd.Stdout = writer
	cmd.Stderr = writer

	if err := cmd.Start(); err != nil {
		_ = writer.Close()
		_ = reader.Close()
		s.log.Error().Str("run", s.runID).Str("module", mod.DisplayName).Err(err).Msg("module could not be launched")
		return -1, true
	}
	// The child holds its own descriptor; the parent's copy must go so the
	// relay sees EOF when the child exits.
	_ = writer.Close()

	done := make(chan struct{})
	var relayErr error
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := ansi.Strip(scanner.Text())
			if capture != nil {
				fmt.Fprintln(capture, line)
			}
			if s.stream {
				s.emit(ctx, OutputLine{Module: mod.DisplayName, Line: line})
			}
		}
		relayErr = scanner.Err()
	}()

	err = cmd.Wait()
	switch {
	case err == nil:
		exitCode, failed = 0, false
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode, failed = exitErr.ExitCode(), true
		} else {
			exitCode, failed = -1, true
		}
	}

	// The relay must not outlive the child beyond the grace period. A
	// grandchild holding the pipe open is forced off by closing the reader.
	joined := true
	select {
	case <-done:
	case <-time.After(s.grace):
		_ = reader.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			joined = false
		}
		warn("output relay did not drain within the grace period")
	}
	_ = reader.Close()
	// relayErr is only safe to read once the relay goroutine has stopped.
	if joined && relayErr != nil {
		warn(fmt.Sprintf("output relay stopped early: %v", relayErr))
	}
	return exitCode, failed
}

// emit delivers an event unless the run context is gone.
func (s *Supervisor) emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}
