package suggest

import "github.com/kestrelsoft/glint/internal/item"

// DataProvider is one category's fetch trigger. RequestDataFetch must not
// block: implementations fetch on their own goroutines and deliver results
// through the matching Set method on the Model.
type DataProvider interface {
	RequestDataFetch()
}

// Client bundles the data providers behind the model. The calendar provider
// delivers both calendar events and their attachments. Any method may
// return nil; a nil provider simply never delivers and its categories
// resolve by timeout.
type Client interface {
	CalendarProvider() DataProvider
	FileSuggestProvider() DataProvider
	RecentTabsProvider() DataProvider
	WeatherProvider() DataProvider
	ReleaseNotesProvider() DataProvider
}

// Ranker assigns display rankings in place. Lower rankings sort earlier;
// items left at item.RankingNone are dropped from display output.
//
// Rank is called with the model's lock held, so implementations must not
// call back into the Model.
type Ranker interface {
	Rank(items []item.Item)
}
