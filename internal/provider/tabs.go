package provider

import (
	"os"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
)

// Tabs reads a browser session export and delivers recently active tabs.
// The export is a JSON document:
//
//	{"sessions": [{
//	  "name": "work laptop",
//	  "tabs": [{
//	    "title": "API docs", "url": "https://docs.example.com",
//	    "last_active": "2026-03-10T11:40:00Z",
//	    "favicon_url": "https://docs.example.com/favicon.ico"
//	  }]
//	}]}
//
// Tabs without a url are skipped; a missing or unparseable last_active
// leaves the timestamp zero.
type Tabs struct {
	sink   Sink
	path   string
	logger *zap.Logger
}

// NewTabs creates a tab provider reading the session export at path.
func NewTabs(sink Sink, path string, logger *zap.Logger) *Tabs {
	return &Tabs{
		sink:   sink,
		path:   path,
		logger: namedLogger(logger, "tabs"),
	}
}

// RequestDataFetch implements suggest.DataProvider.
func (t *Tabs) RequestDataFetch() {
	go t.fetch()
}

func (t *Tabs) fetch() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		t.logger.Warn("session export unavailable", zap.String("path", t.path), zap.Error(err))
		t.sink.SetRecentTabItems(nil)
		return
	}
	t.sink.SetRecentTabItems(parseSessions(data))
}

func parseSessions(data []byte) []*item.TabItem {
	var tabs []*item.TabItem

	gjson.GetBytes(data, "sessions").ForEach(func(_, session gjson.Result) bool {
		name := session.Get("name").String()
		session.Get("tabs").ForEach(func(_, tab gjson.Result) bool {
			url := tab.Get("url").String()
			if url == "" {
				return true
			}
			lastActive, _ := time.Parse(time.RFC3339, tab.Get("last_active").String())
			tabs = append(tabs, item.NewTabItem(tab.Get("title").String(), url, lastActive).
				WithFaviconURL(tab.Get("favicon_url").String()).
				WithSessionName(name))
			return true
		})
		return true
	})

	return tabs
}
