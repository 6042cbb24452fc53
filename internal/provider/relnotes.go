package provider

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
)

// ReleaseNotes surfaces the newest entry of an RSS or Atom release feed.
// Any failure delivers empty.
type ReleaseNotes struct {
	sink    Sink
	feedURL string
	client  *http.Client
	parser  *gofeed.Parser
	logger  *zap.Logger

	// firstSeen pins entries with no published time to the first fetch
	// that saw them.
	mu        sync.Mutex
	firstSeen map[string]time.Time
}

// NewReleaseNotes creates a release notes provider against feedURL. A zero
// timeout means the default.
func NewReleaseNotes(sink Sink, feedURL string, timeout time.Duration, logger *zap.Logger) *ReleaseNotes {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &ReleaseNotes{
		sink:      sink,
		feedURL:   feedURL,
		client:    &http.Client{Timeout: timeout},
		parser:    gofeed.NewParser(),
		logger:    namedLogger(logger, "relnotes"),
		firstSeen: make(map[string]time.Time),
	}
}

// RequestDataFetch implements suggest.DataProvider.
func (r *ReleaseNotes) RequestDataFetch() {
	go r.fetch()
}

func (r *ReleaseNotes) fetch() {
	notes, err := r.latest()
	if err != nil {
		r.logger.Warn("release feed fetch failed", zap.String("feed_url", r.feedURL), zap.Error(err))
		r.sink.SetReleaseNotesItems(nil)
		return
	}
	r.sink.SetReleaseNotesItems([]*item.ReleaseNotesItem{notes})
}

func (r *ReleaseNotes) latest() (*item.ReleaseNotesItem, error) {
	req, err := http.NewRequest(http.MethodGet, r.feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "glint/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from feed", resp.StatusCode)
	}

	feed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entry := newestEntry(feed)
	if entry == nil {
		return nil, errors.New("feed has no entries")
	}

	return item.NewReleaseNotesItem(entry.Title, feed.Title, entry.Link, r.entryFirstSeen(entry)), nil
}

func newestEntry(feed *gofeed.Feed) *gofeed.Item {
	var newest *gofeed.Item
	var newestAt time.Time
	for _, entry := range feed.Items {
		at := entryTime(entry)
		if newest == nil || at.After(newestAt) {
			newest, newestAt = entry, at
		}
	}
	return newest
}

func entryTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Time{}
}

// entryFirstSeen reports when the notes became available: the feed's
// published time when it carries one, otherwise the first fetch that
// returned this entry.
func (r *ReleaseNotes) entryFirstSeen(entry *gofeed.Item) time.Time {
	if at := entryTime(entry); !at.IsZero() {
		return at
	}

	key := entry.Link
	if key == "" {
		key = entry.Title
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if at, ok := r.firstSeen[key]; ok {
		return at
	}
	at := time.Now()
	r.firstSeen[key] = at
	return at
}
