// Package rank assigns display rankings to suggestion items.
//
// A Ranker mutates items in place through SetRanking; the model sorts,
// deduplicates, and truncates afterwards. Lower values sort earlier. An
// item left at item.RankingNone is dropped from display, so a ranker
// expresses "not now" by not ranking.
package rank

import (
	"time"

	"github.com/kestrelsoft/glint/internal/item"
)

// Ranker assigns rankings to a batch of items in place. Every item in the
// batch arrives at item.RankingNone. Rankers run under the model's lock and
// must not call back into it.
type Ranker interface {
	Rank(items []item.Item)
}

// Default windows for TimeWindow.
const (
	// DefaultLookahead bounds how far ahead calendar events are surfaced.
	DefaultLookahead = 4 * time.Hour

	// DefaultRecencyWindow bounds how old files and tabs may be.
	DefaultRecencyWindow = 24 * time.Hour

	// DefaultReleaseWindow bounds how long release notes stay surfaced
	// after they are first seen.
	DefaultReleaseWindow = 72 * time.Hour
)

// Rank bands, lower is better. Each formula stays inside its band so
// categories interleave the same way regardless of window tuning.
const (
	rankOngoingBase    = 0.0  // ongoing events: base + elapsed fraction
	rankWeatherMorning = 5.0  // weather during morning hours
	rankReleaseBase    = 6.0  // release notes: base + age fraction
	rankUpcomingBase   = 10.0 // upcoming events: base + 10 * proximity
	attachmentOffset   = 20.0 // attachments trail their event's score
	rankAllDay         = 25.0 // all-day events in progress
	rankRecentBase     = 40.0 // files, tabs: base + hours since last use
	rankWeatherDefault = 65.0 // weather outside morning hours
)

// Morning hours for the prominent weather slot, local time of the clock.
const (
	morningStartHour = 5
	morningEndHour   = 10
)

// TimeWindow is the reference ranking policy. Calendar events rank by
// proximity of their start time inside a lookahead window, with ongoing
// events first. Attachments shadow their event's window at an offset.
// Files and tabs rank by recency, decaying one point per hour. Weather
// holds a prominent slot during morning hours and a modest one otherwise.
// Release notes rank while recently first seen. Anything outside its
// window stays unranked.
type TimeWindow struct {
	lookahead     time.Duration
	recencyWindow time.Duration
	releaseWindow time.Duration
	now           func() time.Time
}

// TimeWindowOption configures a TimeWindow.
type TimeWindowOption func(*TimeWindow)

// WithLookahead sets the calendar lookahead window.
func WithLookahead(d time.Duration) TimeWindowOption {
	return func(r *TimeWindow) {
		r.lookahead = d
	}
}

// WithRecencyWindow sets the file and tab recency window.
func WithRecencyWindow(d time.Duration) TimeWindowOption {
	return func(r *TimeWindow) {
		r.recencyWindow = d
	}
}

// WithReleaseWindow sets how long release notes stay ranked.
func WithReleaseWindow(d time.Duration) TimeWindowOption {
	return func(r *TimeWindow) {
		r.releaseWindow = d
	}
}

// WithClock sets the time source. Tests pin this to a fixed instant.
func WithClock(now func() time.Time) TimeWindowOption {
	return func(r *TimeWindow) {
		r.now = now
	}
}

// NewTimeWindow creates the reference ranker.
func NewTimeWindow(opts ...TimeWindowOption) *TimeWindow {
	r := &TimeWindow{
		lookahead:     DefaultLookahead,
		recencyWindow: DefaultRecencyWindow,
		releaseWindow: DefaultReleaseWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank implements Ranker.
func (r *TimeWindow) Rank(items []item.Item) {
	now := r.now()
	for _, it := range items {
		if score, ok := r.score(it, now); ok {
			it.SetRanking(score)
		}
	}
}

func (r *TimeWindow) score(it item.Item, now time.Time) (float64, bool) {
	switch v := it.(type) {
	case *item.CalendarItem:
		if v.AllDay {
			if v.Ongoing(now) {
				return rankAllDay, true
			}
			return 0, false
		}
		return r.eventProximity(v.StartTime, v.EndTime, now)
	case *item.AttachmentItem:
		s, ok := r.eventProximity(v.StartTime, v.EndTime, now)
		if !ok {
			return 0, false
		}
		return s + attachmentOffset, true
	case *item.FileItem:
		return r.recency(v.Timestamp, now)
	case *item.TabItem:
		return r.recency(v.Timestamp, now)
	case *item.WeatherItem:
		if h := now.Hour(); h >= morningStartHour && h < morningEndHour {
			return rankWeatherMorning, true
		}
		return rankWeatherDefault, true
	case *item.ReleaseNotesItem:
		age := now.Sub(v.FirstSeen)
		if age < 0 {
			age = 0
		}
		if age > r.releaseWindow {
			return 0, false
		}
		return rankReleaseBase + float64(age)/float64(r.releaseWindow), true
	}
	return 0, false
}

// eventProximity scores an event window against now. Ongoing events score
// by elapsed fraction; events starting within the lookahead score by how
// far off they are. Ended events and events past the lookahead do not
// score.
func (r *TimeWindow) eventProximity(start, end, now time.Time) (float64, bool) {
	if !now.Before(start) && now.Before(end) {
		dur := end.Sub(start)
		if dur <= 0 {
			return rankOngoingBase, true
		}
		return rankOngoingBase + float64(now.Sub(start))/float64(dur), true
	}
	if now.Before(start) {
		if until := start.Sub(now); until <= r.lookahead {
			return rankUpcomingBase + 10*float64(until)/float64(r.lookahead), true
		}
	}
	return 0, false
}

// recency scores by hours since last use. Timestamps in the future clamp
// to zero age.
func (r *TimeWindow) recency(ts, now time.Time) (float64, bool) {
	age := now.Sub(ts)
	if age < 0 {
		age = 0
	}
	if age > r.recencyWindow {
		return 0, false
	}
	return rankRecentBase + age.Hours(), true
}
