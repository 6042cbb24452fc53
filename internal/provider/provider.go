// Package provider ships the data sources behind the suggestion model.
//
// Each provider implements suggest.DataProvider: RequestDataFetch returns
// immediately and the provider delivers on its own goroutine through a
// Sink. Failures deliver empty rather than nothing; an empty delivery
// still marks the category fresh, so a degraded source completes fetch
// cycles instead of timing them out.
package provider

import (
	"time"

	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
	"github.com/kestrelsoft/glint/internal/suggest"
)

// defaultHTTPTimeout bounds the network providers when no timeout is
// configured.
const defaultHTTPTimeout = 10 * time.Second

// Sink receives provider deliveries. *suggest.Model satisfies it.
type Sink interface {
	SetCalendarItems(items []*item.CalendarItem)
	SetAttachmentItems(items []*item.AttachmentItem)
	SetFileSuggestItems(items []*item.FileItem)
	SetRecentTabItems(items []*item.TabItem)
	SetWeatherItems(items []*item.WeatherItem)
	SetReleaseNotesItems(items []*item.ReleaseNotesItem)
}

// Clients wires one provider into each slot of suggest.Client. Nil slots
// never deliver and their categories resolve by timeout.
type Clients struct {
	Calendar     suggest.DataProvider
	FileSuggest  suggest.DataProvider
	RecentTabs   suggest.DataProvider
	Weather      suggest.DataProvider
	ReleaseNotes suggest.DataProvider
}

// CalendarProvider implements suggest.Client.
func (c *Clients) CalendarProvider() suggest.DataProvider { return c.Calendar }

// FileSuggestProvider implements suggest.Client.
func (c *Clients) FileSuggestProvider() suggest.DataProvider { return c.FileSuggest }

// RecentTabsProvider implements suggest.Client.
func (c *Clients) RecentTabsProvider() suggest.DataProvider { return c.RecentTabs }

// WeatherProvider implements suggest.Client.
func (c *Clients) WeatherProvider() suggest.DataProvider { return c.Weather }

// ReleaseNotesProvider implements suggest.Client.
func (c *Clients) ReleaseNotesProvider() suggest.DataProvider { return c.ReleaseNotes }

var (
	_ suggest.Client = (*Clients)(nil)
	_ Sink           = (*suggest.Model)(nil)

	_ suggest.DataProvider = (*Calendar)(nil)
	_ suggest.DataProvider = (*Files)(nil)
	_ suggest.DataProvider = (*Tabs)(nil)
	_ suggest.DataProvider = (*Weather)(nil)
	_ suggest.DataProvider = (*ReleaseNotes)(nil)
	_ suggest.DataProvider = (*Static)(nil)
)

func namedLogger(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.Named(name)
}
