// Package removal persists the keys of suggestion items the user has
// dismissed. Stores initialize asynchronously; until a store signals ready,
// readers treat the whole suggestion surface as unavailable rather than risk
// resurfacing a removed item.
package removal

// Store is a removal index. Implementations must be safe for concurrent
// use.
type Store interface {
	// Init loads the index and calls onReady exactly once when lookups
	// are serviceable. onReady runs off the caller's stack. Init is
	// called at most once per store.
	Init(onReady func())

	// IsRemoved reports whether the key has been recorded as removed.
	// Only meaningful after Init has signaled ready.
	IsRemoved(key string) bool

	// RecordRemoved adds the key to the index. The in-memory view
	// updates before RecordRemoved returns; persistence may complete
	// later.
	RecordRemoved(key string)
}
