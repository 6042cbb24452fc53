package removal

import "sync"

// Memory is an ephemeral removal index. It forgets everything on restart
// and suits tests and stateless deployments.
type Memory struct {
	mu      sync.RWMutex
	removed map[string]struct{}
}

// NewMemory creates an empty in-memory removal index.
func NewMemory() *Memory {
	return &Memory{removed: make(map[string]struct{})}
}

// Init signals ready on a new goroutine. There is nothing to load.
func (m *Memory) Init(onReady func()) {
	go onReady()
}

// IsRemoved reports whether the key has been recorded as removed.
func (m *Memory) IsRemoved(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.removed[key]
	return ok
}

// RecordRemoved adds the key to the index.
func (m *Memory) RecordRemoved(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed[key] = struct{}{}
}
