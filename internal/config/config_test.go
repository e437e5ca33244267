package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromCreatesDefaultConfig(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), BurrowDir)
	cfg, err := LoadFrom(stateDir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Policy != "preserve" {
		t.Fatalf("default policy = %q, want preserve", cfg.Source.Policy)
	}
	if cfg.Catalog.Suffix != "_setup.sh" {
		t.Fatalf("default suffix = %q", cfg.Catalog.Suffix)
	}
	if cfg.Options.StreamOutput {
		t.Fatalf("stream_output should default to off")
	}
	if _, err := os.Stat(filepath.Join(stateDir, configFileName)); err != nil {
		t.Fatalf("default config file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(stateDir, "logs")); err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
}

func TestLoadFromReadsExistingConfig(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), BurrowDir)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	payload := `version: 1
source:
  repository: git@example.com:ops/modules.git
  branch: stable
  policy: discard
catalog:
  dir: modules
  suffix: _install.sh
options:
  stream_output: true
`
	if err := os.WriteFile(filepath.Join(stateDir, configFileName), []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadFrom(stateDir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Policy != "discard" {
		t.Fatalf("policy = %q, want discard", cfg.Source.Policy)
	}
	if !cfg.Options.StreamOutput {
		t.Fatalf("stream_output should be on")
	}
	want := filepath.Join(stateDir, "modules")
	if got := cfg.WorkingCopyDir(); got != want {
		t.Fatalf("working copy dir = %q, want %q", got, want)
	}
}

func TestLoadFromRejectsUnknownPolicy(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), BurrowDir)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	payload := `version: 1
source:
  repository: https://example.com/modules.git
  policy: merge-sometimes
catalog:
  dir: catalog
  suffix: _setup.sh
`
	if err := os.WriteFile(filepath.Join(stateDir, configFileName), []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFrom(stateDir); err == nil {
		t.Fatalf("expected validation error for unknown policy")
	} else if !strings.Contains(err.Error(), "validate") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWorkingCopyDirAbsolutePath(t *testing.T) {
	abs := t.TempDir()
	cfg := &Config{StateDir: "/tmp/ignored", Catalog: CatalogConfig{Dir: abs}}
	if got := cfg.WorkingCopyDir(); got != abs {
		t.Fatalf("working copy dir = %q, want %q", got, abs)
	}
}
