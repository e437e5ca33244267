// cmd/burrow/main.go
//
// This is the entry point for the burrow CLI. One invocation walks the full
// pipeline: preflight checks, working-copy sync, catalog discovery, then the
// interactive checklist and execution run.
//
// Exit status: 0 on normal completion (including "no selection"), non-zero
// on an unrecoverable preflight, sync, or catalog failure.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/burrowlabs/burrow/internal/catalog"
	"github.com/burrowlabs/burrow/internal/config"
	"github.com/burrowlabs/burrow/internal/logbook"
	"github.com/burrowlabs/burrow/internal/preflight"
	"github.com/burrowlabs/burrow/internal/syncer"
	"github.com/burrowlabs/burrow/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		die("load configuration: %v", err)
	}
	lb, err := logbook.New(cfg.LogPath())
	if err != nil {
		die("open run log: %v", err)
	}
	defer lb.Close()
	log := lb.Logger()

	plat, err := preflight.Check()
	if err != nil {
		lb.Error("preflight failed: %v", err)
		die("%v", err)
	}
	lb.Info("platform %s/%s · package manager %s", plat.OS, plat.Distro, plat.PackageManager)

	sync := syncer.New(cfg.Source.Repository, cfg.Source.Branch, syncer.Policy(cfg.Source.Policy), log)
	result, err := sync.Sync(context.Background(), cfg.WorkingCopyDir())
	if err != nil {
		lb.Error("sync failed: %v", err)
		die("synchronize module catalog: %v", err)
	}
	lb.Info("working copy %s synchronized (was %s)", result.Path, result.Before)
	if result.MergeConflict {
		lb.Warn("local modifications could not be reapplied cleanly; resolve them manually in %s", result.Path)
		fmt.Fprintf(os.Stderr, "Warning: merge conflict while reapplying local modifications in %s\n", result.Path)
	}

	cat, err := catalog.Build(result.Path, cfg.Catalog.Suffix)
	if err != nil {
		lb.Error("catalog build failed: %v", err)
		if errors.Is(err, catalog.ErrEmptyCatalog) {
			die("no installable modules found in %s", result.Path)
		}
		die("build module catalog: %v", err)
	}
	lb.Info("discovered %d module(s)", cat.Len())

	app := tui.NewApp(cfg, cat, lb)
	program := tea.NewProgram(app, tea.WithAltScreen())
	model, err := program.Run()
	if err != nil {
		die("run interface: %v", err)
	}

	final, ok := model.(*tui.App)
	if !ok {
		return
	}
	if final.Cancelled() {
		fmt.Println("No modules selected.")
		return
	}
	if final.Interrupted() {
		die("run interrupted; remaining modules were not executed (see %s)", lb.Path())
	}
	failures := 0
	for _, record := range final.Records() {
		status := "ok"
		if record.Failed {
			status = fmt.Sprintf("failed (exit %d)", record.ExitCode)
			failures++
		}
		fmt.Printf("%-30s %s\n", record.Module, status)
	}
	if failures > 0 {
		fmt.Printf("All selected modules executed · %d failed (see %s)\n", failures, lb.Path())
		return
	}
	fmt.Println("All selected modules executed.")
}

// die prints an operator-facing message and aborts the run.
func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
