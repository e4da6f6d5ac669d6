package policies

import (
	"sort"
	"strings"

	"extension-mirror/internal/shared"
	"extension-mirror/internal/types"
)

// SelectionPolicy restricts a run to an allow-list of package ids. Entries
// are exact ids or publisher wildcards ("publisher.*"). An empty allow-list
// selects everything.
type SelectionPolicy struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewSelectionPolicy accepts raw entries, each of which may itself be a
// comma-separated list. Matching ignores case.
func NewSelectionPolicy(entries []string) SelectionPolicy {
	policy := SelectionPolicy{exact: map[string]struct{}{}}
	for _, raw := range shared.SplitList(entries...) {
		id := shared.NormalizeExtensionID(raw)
		if strings.HasSuffix(id, ".*") {
			policy.prefixes = append(policy.prefixes, strings.TrimSuffix(id, "*"))
			continue
		}
		policy.exact[id] = struct{}{}
	}
	return policy
}

func (p SelectionPolicy) Empty() bool {
	return len(p.exact) == 0 && len(p.prefixes) == 0
}

func (p SelectionPolicy) Selects(id string) bool {
	if p.Empty() {
		return true
	}
	id = shared.NormalizeExtensionID(id)
	if _, ok := p.exact[id]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// Apply filters the registry, keeping definition order.
func (p SelectionPolicy) Apply(registry types.Registry) types.Registry {
	if p.Empty() {
		return registry
	}
	selected := registry
	selected.Packages = nil
	for _, pkg := range registry.Packages {
		if p.Selects(pkg.ID) {
			selected.Packages = append(selected.Packages, pkg)
		}
	}
	return selected
}

// Unknown returns exact allow-list ids missing from the registry.
func (p SelectionPolicy) Unknown(registry types.Registry) []string {
	known := map[string]struct{}{}
	for _, id := range registry.IDs() {
		known[shared.NormalizeExtensionID(id)] = struct{}{}
	}
	var missing []string
	for id := range p.exact {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}
