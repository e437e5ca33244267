package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"
)

func writeModule(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestBuildDiscoversAndOrdersModules(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "beta_setup.sh")
	writeModule(t, dir, "alpha_setup.sh")
	writeModule(t, dir, "photo-stack_setup.sh")
	writeModule(t, dir, "README.md")
	if err := os.Mkdir(filepath.Join(dir, "nested_setup.sh.d"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cat, err := Build(dir, "_setup.sh")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []string{"Alpha", "Beta", "Photo Stack"}
	if cat.Len() != len(want) {
		t.Fatalf("catalog has %d modules, want %d", cat.Len(), len(want))
	}
	for i, name := range want {
		if got := cat.At(i).DisplayName; got != name {
			t.Fatalf("module %d = %q, want %q", i, got, name)
		}
	}
}

func TestBuildMarksModulesExecutable(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "alpha_setup.sh")

	cat, err := Build(dir, "_setup.sh")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	info, err := os.Stat(cat.At(0).Path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("module is not executable: %v", info.Mode())
	}
}

func TestBuildFailsOnNameCollision(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "photo_stack_setup.sh")
	writeModule(t, dir, "photo-stack_setup.sh")

	_, err := Build(dir, "_setup.sh")
	var collision *CollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected CollisionError, got %v", err)
	}
	if collision.DisplayName != "Photo Stack" {
		t.Fatalf("collision name = %q, want Photo Stack", collision.DisplayName)
	}
}

func TestBuildEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "notes.txt")

	_, err := Build(dir, "_setup.sh")
	if !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestBuildMissingDirectory(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "missing"), "_setup.sh")
	if err == nil || errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("missing directory must be a distinct failure, got %v", err)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "media_setup.sh")
	writeModule(t, dir, "dns_setup.sh")
	writeModule(t, dir, "backup_setup.sh")

	first, err := Build(dir, "_setup.sh")
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := Build(dir, "_setup.sh")
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	for i := range first.Modules() {
		if first.At(i) != second.At(i) {
			t.Fatalf("build order changed at %d: %v vs %v", i, first.At(i), second.At(i))
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"alpha_setup.sh":          "Alpha",
		"photo-stack_setup.sh":    "Photo Stack",
		"media_server_setup.sh":   "Media Server",
		"DNS_setup.sh":            "Dns",
		"ärger_setup.sh":          "Ärger",
		"übersicht-tool_setup.sh": "Übersicht Tool",
	}
	for input, want := range cases {
		got := DisplayName(input, "_setup.sh")
		if got != want {
			t.Fatalf("DisplayName(%q) = %q, want %q", input, got, want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("DisplayName(%q) produced invalid UTF-8: %q", input, got)
		}
	}
}
