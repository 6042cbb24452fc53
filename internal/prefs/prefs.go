// Package prefs stores which suggestion categories the user has enabled.
//
// Preferences persist as a small JSON document. Components subscribe to be
// told when a category is toggled; the aggregation model uses this to clear
// buffers and unblock pending fetches when a category is disabled mid-cycle.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
)

// Observer is called when a category's enabled state changes.
type Observer func(cat item.Category, enabled bool)

// Subscription represents an active observer subscription.
type Subscription struct {
	id    uint64
	store *Store
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.store != nil {
		s.store.unsubscribe(s.id)
	}
}

// Store holds the per-category enable flags. All categories start enabled.
// Store is safe for concurrent use, and observers may call back into the
// Store (including Unsubscribe) from inside a notification.
type Store struct {
	path   string
	logger *zap.Logger

	mu        sync.RWMutex
	enabled   [item.NumCategories]bool
	observers map[uint64]Observer
	nextID    uint64
}

// Option configures a Store.
type Option func(*Store)

// WithPath sets the JSON document path for Load and Save. An empty path
// keeps the store purely in memory.
func WithPath(path string) Option {
	return func(s *Store) {
		s.path = path
	}
}

// WithLogger sets the store's logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates a Store with every category enabled.
func New(opts ...Option) *Store {
	s := &Store{
		logger:    zap.NewNop(),
		observers: make(map[uint64]Observer),
	}
	for _, c := range item.Categories() {
		s.enabled[c] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether the category is enabled.
func (s *Store) Enabled(c item.Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !c.Valid() {
		return false
	}
	return s.enabled[c]
}

// EnabledSet returns the currently enabled categories.
func (s *Store) EnabledSet() item.CategorySet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var set item.CategorySet
	for _, c := range item.Categories() {
		if s.enabled[c] {
			set = set.With(c)
		}
	}
	return set
}

// SetEnabled updates a category's enabled state. Observers are notified
// only when the state actually changes, after the store's lock is
// released. Persistence is separate; call Save.
func (s *Store) SetEnabled(c item.Category, enabled bool) {
	if !c.Valid() {
		return
	}

	s.mu.Lock()
	if s.enabled[c] == enabled {
		s.mu.Unlock()
		return
	}
	s.enabled[c] = enabled

	observers := make([]Observer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.mu.Unlock()

	s.logger.Debug("category preference changed",
		zap.Stringer("category", c), zap.Bool("enabled", enabled))

	for _, obs := range observers {
		obs(c, enabled)
	}
}

// Subscribe registers an observer for preference changes.
func (s *Store) Subscribe(obs Observer) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = obs

	return &Subscription{id: id, store: s}
}

func (s *Store) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, id)
}

// Load reads the JSON document at the configured path. A missing file
// leaves the defaults in place. Load does not notify observers; call it
// before subscribers attach.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read preferences: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range item.Categories() {
		if v := gjson.GetBytes(data, "categories."+c.String()); v.Exists() {
			s.enabled[c] = v.Bool()
		}
	}
	return nil
}

// Save writes the JSON document to the configured path, creating parent
// directories as needed. A Store with no path saves nothing.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	doc := "{}"
	var err error
	for _, c := range item.Categories() {
		doc, err = sjson.Set(doc, "categories."+c.String(), s.enabled[c])
		if err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("failed to build preferences document: %w", err)
		}
	}
	s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(doc), 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}
