package provider

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSessions = `{
  "sessions": [
    {
      "name": "work laptop",
      "tabs": [
        {"title": "API docs", "url": "https://docs.example.com", "last_active": "2026-03-10T11:40:00Z", "favicon_url": "https://docs.example.com/favicon.ico"},
        {"title": "no url tab"}
      ]
    },
    {
      "name": "phone",
      "tabs": [
        {"title": "News", "url": "https://news.example.com", "last_active": "not a time"}
      ]
    }
  ]
}`

func TestTabs_ParsesSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte(testSessions), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sink := newCaptureSink()
	NewTabs(sink, path, nil).RequestDataFetch()
	sink.wait(t, "tab")

	sink.mu.Lock()
	defer sink.mu.Unlock()

	if len(sink.tabs) != 2 {
		t.Fatalf("got %d tabs, want 2 (url-less tab skipped)", len(sink.tabs))
	}

	docs := sink.tabs[0]
	if docs.URL != "https://docs.example.com" || docs.SessionName != "work laptop" {
		t.Errorf("first tab = %q from %q, want docs tab from work laptop", docs.URL, docs.SessionName)
	}
	if docs.FaviconURL != "https://docs.example.com/favicon.ico" {
		t.Errorf("favicon = %q, not parsed", docs.FaviconURL)
	}
	wantActive := time.Date(2026, time.March, 10, 11, 40, 0, 0, time.UTC)
	if !docs.Timestamp.Equal(wantActive) {
		t.Errorf("timestamp = %v, want %v", docs.Timestamp, wantActive)
	}

	news := sink.tabs[1]
	if news.SessionName != "phone" {
		t.Errorf("second tab session = %q, want phone", news.SessionName)
	}
	if !news.Timestamp.IsZero() {
		t.Errorf("unparseable last_active gave %v, want zero time", news.Timestamp)
	}
}

func TestTabs_MissingExportDeliversEmpty(t *testing.T) {
	sink := newCaptureSink()
	NewTabs(sink, filepath.Join(t.TempDir(), "absent.json"), nil).RequestDataFetch()
	sink.wait(t, "tab")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.tabs) != 0 {
		t.Errorf("got %d tabs, want empty", len(sink.tabs))
	}
}
