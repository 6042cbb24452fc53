package suggest

import "github.com/kestrelsoft/glint/internal/item"

// sourceRecord is one category's buffer and freshness flag. There is
// exactly one record per category for the model's lifetime.
type sourceRecord struct {
	items []item.Item
	fresh bool
}

// markAllNotFreshLocked clears every category's freshness flag. Buffers
// keep their contents for best-effort reads at timeout.
func (m *Model) markAllNotFreshLocked() {
	for i := range m.sources {
		m.sources[i].fresh = false
	}
}

// allFreshLocked reports whether every category in set is fresh. An empty
// set is trivially fresh.
func (m *Model) allFreshLocked(set item.CategorySet) bool {
	for _, c := range set.Categories() {
		if !m.sources[c].fresh {
			return false
		}
	}
	return true
}

// clearAllLocked empties every buffer and freshness flag.
func (m *Model) clearAllLocked() {
	for i := range m.sources {
		m.sources[i] = sourceRecord{}
	}
}
