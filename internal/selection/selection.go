// Package selection turns the operator's raw checklist choices into an
// ordered execution plan. A choice is a tagged variant: either a catalog
// module reference or a mode toggle, never decided by string matching.
package selection

import (
	"sort"

	"github.com/burrowlabs/burrow/internal/catalog"
)

// Toggle identifies a non-module checklist option.
type Toggle string

// ToggleStream enables live output relay during module execution.
const ToggleStream Toggle = "stream-output"

type choiceKind int

const (
	kindModule choiceKind = iota
	kindToggle
)

// Choice is one checked checklist entry.
type Choice struct {
	kind   choiceKind
	index  int
	toggle Toggle
}

// ModuleChoice references the catalog entry at the given index.
func ModuleChoice(index int) Choice {
	return Choice{kind: kindModule, index: index}
}

// ToggleChoice references a mode toggle.
func ToggleChoice(t Toggle) Choice {
	return Choice{kind: kindToggle, toggle: t}
}

// Selection is the resolved plan: modules in catalog order plus mode flags.
type Selection struct {
	Modules []catalog.Module
	Stream  bool
}

// Empty reports whether no modules were selected. Toggles alone do not make
// a selection.
func (s Selection) Empty() bool { return len(s.Modules) == 0 }

// Resolve partitions choices into module references and toggles, drops
// out-of-range references, deduplicates, and orders modules ascending by
// catalog index. Execution order is always catalog order, never the order
// the operator toggled items.
func Resolve(cat *catalog.Catalog, choices []Choice) Selection {
	var sel Selection
	picked := make(map[int]struct{})
	for _, choice := range choices {
		switch choice.kind {
		case kindModule:
			if choice.index < 0 || choice.index >= cat.Len() {
				continue
			}
			picked[choice.index] = struct{}{}
		case kindToggle:
			if choice.toggle == ToggleStream {
				sel.Stream = true
			}
		}
	}
	indices := make([]int, 0, len(picked))
	for index := range picked {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	sel.Modules = make([]catalog.Module, 0, len(indices))
	for _, index := range indices {
		sel.Modules = append(sel.Modules, cat.At(index))
	}
	return sel
}
