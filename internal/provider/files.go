package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
)

// defaultMaxFiles caps a Files delivery when no limit is configured.
const defaultMaxFiles = 10

// Files watches a directory and delivers its most recently touched files,
// newest first. The recency index is seeded from directory modification
// times on Start and updated from filesystem events afterwards. Hidden
// files and subdirectories are ignored.
type Files struct {
	sink   Sink
	dir    string
	max    int
	logger *zap.Logger

	mu      sync.Mutex
	touched map[string]time.Time
	closed  bool

	watcher *fsnotify.Watcher
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewFiles creates a file provider over dir. maxItems caps each delivery;
// zero or negative means the default.
func NewFiles(sink Sink, dir string, maxItems int, logger *zap.Logger) *Files {
	if maxItems <= 0 {
		maxItems = defaultMaxFiles
	}
	return &Files{
		sink:    sink,
		dir:     dir,
		max:     maxItems,
		logger:  namedLogger(logger, "files"),
		touched: make(map[string]time.Time),
		closeCh: make(chan struct{}),
	}
}

// Start seeds the recency index and begins watching the directory.
func (f *Files) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", f.dir, err)
	}
	if err := w.Add(f.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", f.dir, err)
	}
	f.watcher = w

	f.seed()

	f.wg.Add(1)
	go f.processLoop()
	return nil
}

// seed indexes the directory's current contents by modification time.
func (f *Files) seed() {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		f.logger.Warn("initial scan failed", zap.String("dir", f.dir), zap.Error(err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() || hidden(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		f.touched[filepath.Join(f.dir, e.Name())] = info.ModTime()
	}
}

func (f *Files) processLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.closeCh:
			return

		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			f.handleEvent(ev)

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (f *Files) handleEvent(ev fsnotify.Event) {
	if hidden(filepath.Base(ev.Name)) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		f.mu.Lock()
		delete(f.touched, ev.Name)
		f.mu.Unlock()

	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return
		}
		f.mu.Lock()
		f.touched[ev.Name] = time.Now()
		f.mu.Unlock()
	}
}

// RequestDataFetch implements suggest.DataProvider.
func (f *Files) RequestDataFetch() {
	go func() {
		f.sink.SetFileSuggestItems(f.recentItems())
	}()
}

func (f *Files) recentItems() []*item.FileItem {
	type rec struct {
		path string
		ts   time.Time
	}

	f.mu.Lock()
	recs := make([]rec, 0, len(f.touched))
	for p, ts := range f.touched {
		recs = append(recs, rec{path: p, ts: ts})
	}
	f.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].ts.After(recs[j].ts) })
	if len(recs) > f.max {
		recs = recs[:f.max]
	}

	items := make([]*item.FileItem, len(recs))
	for i, r := range recs {
		items[i] = item.NewFileItem(filepath.Base(r.path), "", r.path, r.ts)
	}
	return items
}

// Close stops the watcher. Safe to call more than once, or without Start.
func (f *Files) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	if f.watcher == nil {
		return nil
	}
	close(f.closeCh)
	f.wg.Wait()
	return f.watcher.Close()
}

func hidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
