package httpapi

import (
	"time"

	"github.com/kestrelsoft/glint/internal/item"
)

// itemsResponse is the body of every endpoint that returns an item list,
// and of watch pushes.
type itemsResponse struct {
	Items []Payload `json:"items"`
}

// Payload is the wire form of a suggestion item, shared by the REST
// responses, watch pushes and the CLI's JSON output. Common fields are
// always present; variant fields are set only for the matching category.
// Ranking is omitted for unranked items.
type Payload struct {
	Key      string   `json:"key"`
	Category string   `json:"category"`
	Title    string   `json:"title"`
	Ranking  *float64 `json:"ranking,omitempty"`

	StartTime     string   `json:"start_time,omitempty"`
	EndTime       string   `json:"end_time,omitempty"`
	AllDay        bool     `json:"all_day,omitempty"`
	CalendarURL   string   `json:"calendar_url,omitempty"`
	ConferenceURL string   `json:"conference_url,omitempty"`
	FileID        string   `json:"file_id,omitempty"`
	FileURL       string   `json:"file_url,omitempty"`
	IconURL       string   `json:"icon_url,omitempty"`
	Path          string   `json:"path,omitempty"`
	Justification string   `json:"justification,omitempty"`
	URL           string   `json:"url,omitempty"`
	FaviconURL    string   `json:"favicon_url,omitempty"`
	SessionName   string   `json:"session_name,omitempty"`
	Timestamp     string   `json:"timestamp,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Subtitle      string   `json:"subtitle,omitempty"`
	FirstSeen     string   `json:"first_seen,omitempty"`
}

// Render converts items into their wire form, preserving order.
func Render(items []item.Item) []Payload {
	out := make([]Payload, 0, len(items))
	for _, it := range items {
		out = append(out, render(it))
	}
	return out
}

func render(it item.Item) Payload {
	p := Payload{
		Key:      it.Key(),
		Category: it.Category().String(),
		Title:    it.Title(),
	}
	if r := it.Ranking(); r != item.RankingNone {
		p.Ranking = &r
	}

	switch v := it.(type) {
	case *item.CalendarItem:
		p.StartTime = rfc3339(v.StartTime)
		p.EndTime = rfc3339(v.EndTime)
		p.AllDay = v.AllDay
		p.CalendarURL = v.CalendarURL
		p.ConferenceURL = v.ConferenceURL
	case *item.AttachmentItem:
		p.FileID = v.FileID
		p.FileURL = v.FileURL
		p.IconURL = v.IconURL
		p.StartTime = rfc3339(v.StartTime)
		p.EndTime = rfc3339(v.EndTime)
	case *item.FileItem:
		p.FileID = v.FileID
		p.Path = v.Path
		p.Justification = v.Justification
		p.Timestamp = rfc3339(v.Timestamp)
	case *item.TabItem:
		p.URL = v.URL
		p.FaviconURL = v.FaviconURL
		p.SessionName = v.SessionName
		p.Timestamp = rfc3339(v.Timestamp)
	case *item.WeatherItem:
		t := v.Temperature
		p.Temperature = &t
		p.IconURL = v.IconURL
	case *item.ReleaseNotesItem:
		p.Subtitle = v.Subtitle
		p.URL = v.URL
		p.FirstSeen = rfc3339(v.FirstSeen)
	}
	return p
}

func rfc3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
