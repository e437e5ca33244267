// Package catalog discovers installable modules inside the working copy and
// derives a stable display order for them. A catalog is built once per run
// and is read-only afterwards.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSuffix identifies module entry points when the config is silent.
const DefaultSuffix = "_setup.sh"

// ErrEmptyCatalog is returned when discovery finds no eligible modules.
// Fatal: the orchestrator must not present an empty selection surface.
var ErrEmptyCatalog = errors.New("catalog: no installable modules found")

// CollisionError reports two distinct files deriving the same display name.
// Silent overwrite would let a module disappear from the operator's view,
// so catalog construction aborts instead.
type CollisionError struct {
	DisplayName string
	First       string
	Second      string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("catalog: %s and %s both derive the display name %q", e.First, e.Second, e.DisplayName)
}

// Module represents one installable unit: an opaque executable entry point
// plus the human-readable identity shown on the checklist.
type Module struct {
	Path        string
	FileName    string
	DisplayName string
}

// Catalog is the ordered, deduplicated module list for one run.
type Catalog struct {
	dir     string
	modules []Module
}

// Build scans dir for files ending in suffix, grants the executable bit,
// derives display names, and returns them in alphabetical display-name
// order. Missing or unreadable directories and name collisions are errors.
func Build(dir, suffix string) (*Catalog, error) {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		suffix = DefaultSuffix
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", dir, err)
	}

	var modules []Module
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, suffix) || name == suffix {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Chmod(path, 0o755); err != nil {
			return nil, fmt.Errorf("catalog: mark %s executable: %w", path, err)
		}
		display := DisplayName(name, suffix)
		if previous, ok := seen[display]; ok {
			return nil, &CollisionError{DisplayName: display, First: previous, Second: name}
		}
		seen[display] = name
		modules = append(modules, Module{Path: path, FileName: name, DisplayName: display})
	}
	if len(modules) == 0 {
		return nil, ErrEmptyCatalog
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].DisplayName < modules[j].DisplayName })
	return &Catalog{dir: dir, modules: modules}, nil
}

// Dir returns the scanned working-copy directory.
func (c *Catalog) Dir() string { return c.dir }

// Len returns the number of discovered modules.
func (c *Catalog) Len() int { return len(c.modules) }

// Modules returns a copy of the ordered module list.
func (c *Catalog) Modules() []Module {
	out := make([]Module, len(c.modules))
	copy(out, c.modules)
	return out
}

// At returns the module at the given catalog index.
func (c *Catalog) At(i int) Module { return c.modules[i] }

// DisplayName derives the checklist label for a module file name: strip the
// suffix, replace word separators with spaces, and capitalize each word.
func DisplayName(fileName, suffix string) string {
	base := strings.TrimSuffix(fileName, suffix)
	replacer := strings.NewReplacer("-", " ", "_", " ")
	words := strings.Fields(replacer.Replace(base))
	for i, word := range words {
		lower := strings.ToLower(word)
		// The first character may span several bytes; decode the rune
		// rather than slicing off lower[:1].
		r, size := utf8.DecodeRuneInString(lower)
		words[i] = string(unicode.ToUpper(r)) + lower[size:]
	}
	return strings.Join(words, " ")
}
