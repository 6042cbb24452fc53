// Package item defines the suggestion item variants produced by data
// providers and aggregated for display. Every variant carries a stable key
// used for deduplication and removal, and a mutable ranking assigned by a
// ranker before display.
package item

import "math"

// RankingNone marks an item that has not been ranked. Lower rankings sort
// earlier, so unranked items sort last and are dropped from display lists.
const RankingNone = math.MaxFloat64

// Item is implemented by every suggestion variant.
type Item interface {
	// Category identifies the data source the item came from.
	Category() Category

	// Key returns a stable identifier of the form "<category>:<id>".
	// Keys survive re-fetches of the same underlying entity and feed the
	// removal index and display deduplication.
	Key() string

	// Title returns the primary display text.
	Title() string

	// Ranking returns the current ranking, or RankingNone if unranked.
	Ranking() float64

	// SetRanking assigns the ranking. Lower is better.
	SetRanking(float64)
}

// base carries the fields every variant shares. Variants embed it by
// pointer receiver so SetRanking mutates the item in place.
type base struct {
	title   string
	ranking float64
}

func newBase(title string) base {
	return base{title: title, ranking: RankingNone}
}

// Title returns the primary display text.
func (b *base) Title() string { return b.title }

// Ranking returns the current ranking, or RankingNone if unranked.
func (b *base) Ranking() float64 { return b.ranking }

// SetRanking assigns the ranking. Lower is better.
func (b *base) SetRanking(r float64) { b.ranking = r }
