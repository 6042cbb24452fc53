package provider

import (
	"os"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
)

// Calendar reads a local agenda export and delivers calendar events
// alongside their attachments. The agenda is a JSON document:
//
//	{"events": [{
//	  "id": "ev1", "summary": "Design review",
//	  "start": "2026-03-10T14:00:00Z", "end": "2026-03-10T15:00:00Z",
//	  "all_day": false,
//	  "calendar_url": "https://cal/ev1", "conference_url": "https://meet/ev1",
//	  "attachments": [
//	    {"id": "f1", "title": "Slides", "url": "https://drive/f1", "icon_url": ""}
//	  ]
//	}]}
//
// A missing or unreadable agenda delivers empty. Events with unparseable
// times are skipped.
type Calendar struct {
	sink   Sink
	path   string
	logger *zap.Logger
}

// NewCalendar creates a calendar provider reading the agenda at path.
func NewCalendar(sink Sink, path string, logger *zap.Logger) *Calendar {
	return &Calendar{
		sink:   sink,
		path:   path,
		logger: namedLogger(logger, "calendar"),
	}
}

// RequestDataFetch implements suggest.DataProvider.
func (c *Calendar) RequestDataFetch() {
	go c.fetch()
}

func (c *Calendar) fetch() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		c.logger.Warn("agenda unavailable", zap.String("path", c.path), zap.Error(err))
		c.sink.SetCalendarItems(nil)
		c.sink.SetAttachmentItems(nil)
		return
	}

	events, attachments := c.parseAgenda(data)
	c.sink.SetCalendarItems(events)
	c.sink.SetAttachmentItems(attachments)
}

func (c *Calendar) parseAgenda(data []byte) ([]*item.CalendarItem, []*item.AttachmentItem) {
	var events []*item.CalendarItem
	var attachments []*item.AttachmentItem

	gjson.GetBytes(data, "events").ForEach(func(_, ev gjson.Result) bool {
		start, startErr := time.Parse(time.RFC3339, ev.Get("start").String())
		end, endErr := time.Parse(time.RFC3339, ev.Get("end").String())
		if startErr != nil || endErr != nil {
			c.logger.Debug("skipping event with unparseable times",
				zap.String("summary", ev.Get("summary").String()))
			return true
		}

		cal := item.NewCalendarItem(
			ev.Get("summary").String(),
			ev.Get("id").String(),
			start, end,
			ev.Get("all_day").Bool(),
		).WithCalendarURL(ev.Get("calendar_url").String()).
			WithConferenceURL(ev.Get("conference_url").String())
		events = append(events, cal)

		// Attachments mirror the window of their owning event.
		ev.Get("attachments").ForEach(func(_, att gjson.Result) bool {
			attachments = append(attachments, item.NewAttachmentItem(
				att.Get("title").String(),
				att.Get("id").String(),
				att.Get("url").String(),
				start, end,
			).WithIconURL(att.Get("icon_url").String()))
			return true
		})
		return true
	})

	return events, attachments
}
