package provider

import (
	"time"

	"github.com/kestrelsoft/glint/internal/item"
)

// Static delivers a canned payload for one provider slot. Demos and tests
// wire it where no real backend is available.
type Static struct {
	deliver func()
}

// RequestDataFetch implements suggest.DataProvider.
func (s *Static) RequestDataFetch() {
	go s.deliver()
}

// StaticCalendar cans calendar events and their attachments.
func StaticCalendar(sink Sink, events []*item.CalendarItem, attachments []*item.AttachmentItem) *Static {
	return &Static{deliver: func() {
		sink.SetCalendarItems(events)
		sink.SetAttachmentItems(attachments)
	}}
}

// StaticFiles cans file suggestions.
func StaticFiles(sink Sink, items ...*item.FileItem) *Static {
	return &Static{deliver: func() { sink.SetFileSuggestItems(items) }}
}

// StaticTabs cans recent tabs.
func StaticTabs(sink Sink, items ...*item.TabItem) *Static {
	return &Static{deliver: func() { sink.SetRecentTabItems(items) }}
}

// StaticWeather cans weather conditions.
func StaticWeather(sink Sink, items ...*item.WeatherItem) *Static {
	return &Static{deliver: func() { sink.SetWeatherItems(items) }}
}

// StaticReleaseNotes cans release notes.
func StaticReleaseNotes(sink Sink, items ...*item.ReleaseNotesItem) *Static {
	return &Static{deliver: func() { sink.SetReleaseNotesItems(items) }}
}

// Demo bundles sample data for every slot, anchored at the current time.
// The serve command falls back to it when no providers are configured.
func Demo(sink Sink) *Clients {
	now := time.Now()

	standup := item.NewCalendarItem("Team standup", "demo-ev1",
		now.Add(10*time.Minute), now.Add(25*time.Minute), false).
		WithConferenceURL("https://meet.example.com/standup")
	review := item.NewCalendarItem("Design review", "demo-ev2",
		now.Add(2*time.Hour), now.Add(3*time.Hour), false).
		WithCalendarURL("https://calendar.example.com/demo-ev2")
	slides := item.NewAttachmentItem("Review slides", "demo-f1",
		"https://drive.example.com/d/demo-f1", review.StartTime, review.EndTime)

	report := item.NewFileItem("quarterly-report.md", "demo-f2",
		"/home/demo/quarterly-report.md", now.Add(-45*time.Minute)).
		WithJustification("Edited this morning")
	notes := item.NewFileItem("meeting-notes.md", "demo-f3",
		"/home/demo/meeting-notes.md", now.Add(-3*time.Hour))

	docs := item.NewTabItem("Go documentation", "https://go.dev/doc/",
		now.Add(-20*time.Minute)).WithSessionName("work laptop")

	weather := item.NewWeatherItem("Partly cloudy", 63, "")

	relnotes := item.NewReleaseNotesItem("What's new in glint",
		"Highlights from the latest update", "https://example.com/glint/notes",
		now.Add(-6*time.Hour))

	return &Clients{
		Calendar: StaticCalendar(sink,
			[]*item.CalendarItem{standup, review},
			[]*item.AttachmentItem{slides}),
		FileSuggest:  StaticFiles(sink, report, notes),
		RecentTabs:   StaticTabs(sink, docs),
		Weather:      StaticWeather(sink, weather),
		ReleaseNotes: StaticReleaseNotes(sink, relnotes),
	}
}
