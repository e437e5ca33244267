package selection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/burrowlabs/burrow/internal/catalog"
)

func buildCatalog(t *testing.T, names ...string) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	cat, err := catalog.Build(dir, "_setup.sh")
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return cat
}

func TestResolveOrdersByCatalogNotClickOrder(t *testing.T) {
	cat := buildCatalog(t, "alpha_setup.sh", "beta_setup.sh", "gamma_setup.sh")

	// Operator clicked gamma, then alpha, then beta.
	sel := Resolve(cat, []Choice{ModuleChoice(2), ModuleChoice(0), ModuleChoice(1)})
	want := []string{"Alpha", "Beta", "Gamma"}
	if len(sel.Modules) != len(want) {
		t.Fatalf("selected %d modules, want %d", len(sel.Modules), len(want))
	}
	for i, name := range want {
		if sel.Modules[i].DisplayName != name {
			t.Fatalf("module %d = %q, want %q", i, sel.Modules[i].DisplayName, name)
		}
	}
}

func TestResolveDeduplicatesAndDropsOutOfRange(t *testing.T) {
	cat := buildCatalog(t, "alpha_setup.sh", "beta_setup.sh")

	sel := Resolve(cat, []Choice{ModuleChoice(1), ModuleChoice(1), ModuleChoice(99), ModuleChoice(-1)})
	if len(sel.Modules) != 1 {
		t.Fatalf("selected %d modules, want 1", len(sel.Modules))
	}
	if sel.Modules[0].DisplayName != "Beta" {
		t.Fatalf("module = %q, want Beta", sel.Modules[0].DisplayName)
	}
}

func TestResolveToggleIsNotAModule(t *testing.T) {
	cat := buildCatalog(t, "alpha_setup.sh")

	sel := Resolve(cat, []Choice{ToggleChoice(ToggleStream)})
	if !sel.Stream {
		t.Fatalf("stream toggle must be honored")
	}
	if !sel.Empty() {
		t.Fatalf("a toggle alone must not select modules: %v", sel.Modules)
	}
}

func TestResolveEmpty(t *testing.T) {
	cat := buildCatalog(t, "alpha_setup.sh")
	sel := Resolve(cat, nil)
	if !sel.Empty() || sel.Stream {
		t.Fatalf("empty choices must resolve to an empty selection")
	}
}
