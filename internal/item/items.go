package item

import (
	"strconv"
	"time"
)

// CalendarItem is an upcoming or ongoing calendar event.
type CalendarItem struct {
	base

	// EventID is the provider's stable event identifier.
	EventID string

	// StartTime is when the event starts.
	StartTime time.Time

	// EndTime is when the event ends.
	EndTime time.Time

	// AllDay indicates an all-day event.
	AllDay bool

	// CalendarURL opens the event in the calendar frontend.
	CalendarURL string

	// ConferenceURL joins the event's video call, if any.
	ConferenceURL string
}

// NewCalendarItem creates a calendar event item.
func NewCalendarItem(title, eventID string, start, end time.Time, allDay bool) *CalendarItem {
	return &CalendarItem{
		base:      newBase(title),
		EventID:   eventID,
		StartTime: start,
		EndTime:   end,
		AllDay:    allDay,
	}
}

// WithCalendarURL sets the calendar frontend URL.
func (i *CalendarItem) WithCalendarURL(u string) *CalendarItem {
	i.CalendarURL = u
	return i
}

// WithConferenceURL sets the video call URL.
func (i *CalendarItem) WithConferenceURL(u string) *CalendarItem {
	i.ConferenceURL = u
	return i
}

// Category returns CategoryCalendar.
func (i *CalendarItem) Category() Category { return CategoryCalendar }

// Key returns "calendar:<event id>". Events without an id key on title and
// start time instead.
func (i *CalendarItem) Key() string {
	if i.EventID != "" {
		return "calendar:" + i.EventID
	}
	return "calendar:" + i.title + ":" + strconv.FormatInt(i.StartTime.Unix(), 10)
}

// Ongoing reports whether the event is in progress at the given time.
func (i *CalendarItem) Ongoing(now time.Time) bool {
	return !now.Before(i.StartTime) && now.Before(i.EndTime)
}

// AttachmentItem is a file attached to an upcoming calendar event. The
// calendar source produces attachments alongside the events they belong to.
type AttachmentItem struct {
	base

	// FileID is the provider's stable file identifier.
	FileID string

	// FileURL opens the attachment.
	FileURL string

	// IconURL is the attachment's thumbnail or type icon.
	IconURL string

	// StartTime and EndTime mirror the window of the owning event.
	StartTime time.Time
	EndTime   time.Time
}

// NewAttachmentItem creates a calendar attachment item.
func NewAttachmentItem(title, fileID, fileURL string, start, end time.Time) *AttachmentItem {
	return &AttachmentItem{
		base:      newBase(title),
		FileID:    fileID,
		FileURL:   fileURL,
		StartTime: start,
		EndTime:   end,
	}
}

// WithIconURL sets the attachment icon.
func (i *AttachmentItem) WithIconURL(u string) *AttachmentItem {
	i.IconURL = u
	return i
}

// Category returns CategoryAttachment.
func (i *AttachmentItem) Category() Category { return CategoryAttachment }

// Key returns "attachment:<file id>".
func (i *AttachmentItem) Key() string { return "attachment:" + i.FileID }

// FileItem is a recently used or suggested file.
type FileItem struct {
	base

	// FileID is the provider's stable file identifier, empty for purely
	// local files.
	FileID string

	// Path is the file's location on disk.
	Path string

	// Justification is a short human-readable reason for the suggestion,
	// such as "Edited yesterday".
	Justification string

	// Timestamp is the last interaction with the file.
	Timestamp time.Time
}

// NewFileItem creates a file suggestion item.
func NewFileItem(title, fileID, path string, timestamp time.Time) *FileItem {
	return &FileItem{
		base:      newBase(title),
		FileID:    fileID,
		Path:      path,
		Timestamp: timestamp,
	}
}

// WithJustification sets the suggestion reason text.
func (i *FileItem) WithJustification(j string) *FileItem {
	i.Justification = j
	return i
}

// Category returns CategoryFileSuggestion.
func (i *FileItem) Category() Category { return CategoryFileSuggestion }

// Key returns "file:<file id>", falling back to the path for files with no
// provider id.
func (i *FileItem) Key() string {
	if i.FileID != "" {
		return "file:" + i.FileID
	}
	return "file:" + i.Path
}

// TabItem is a browser tab recently open on this or another device.
type TabItem struct {
	base

	// URL is the tab's address and the item's identity.
	URL string

	// Timestamp is when the tab was last active.
	Timestamp time.Time

	// FaviconURL is the site icon.
	FaviconURL string

	// SessionName names the device or session the tab came from.
	SessionName string
}

// NewTabItem creates a recent tab item.
func NewTabItem(title, url string, timestamp time.Time) *TabItem {
	return &TabItem{
		base:      newBase(title),
		URL:       url,
		Timestamp: timestamp,
	}
}

// WithFaviconURL sets the site icon URL.
func (i *TabItem) WithFaviconURL(u string) *TabItem {
	i.FaviconURL = u
	return i
}

// WithSessionName sets the originating session name.
func (i *TabItem) WithSessionName(name string) *TabItem {
	i.SessionName = name
	return i
}

// Category returns CategoryRecentTab.
func (i *TabItem) Category() Category { return CategoryRecentTab }

// Key returns "tab:<url>".
func (i *TabItem) Key() string { return "tab:" + i.URL }

// WeatherItem is the current weather conditions. At most one is expected
// per fetch.
type WeatherItem struct {
	base

	// Temperature is in degrees Fahrenheit.
	Temperature float64

	// IconURL is the conditions icon.
	IconURL string
}

// NewWeatherItem creates a weather item. The title is the conditions
// description, such as "Partly cloudy".
func NewWeatherItem(title string, temperature float64, iconURL string) *WeatherItem {
	return &WeatherItem{
		base:        newBase(title),
		Temperature: temperature,
		IconURL:     iconURL,
	}
}

// Category returns CategoryWeather.
func (i *WeatherItem) Category() Category { return CategoryWeather }

// Key returns "weather:<description>".
func (i *WeatherItem) Key() string { return "weather:" + i.title }

// ReleaseNotesItem points at release notes for a recent system update.
type ReleaseNotesItem struct {
	base

	// Subtitle is secondary display text.
	Subtitle string

	// URL opens the release notes.
	URL string

	// FirstSeen is when the notes first became available on this device.
	FirstSeen time.Time
}

// NewReleaseNotesItem creates a release notes item.
func NewReleaseNotesItem(title, subtitle, url string, firstSeen time.Time) *ReleaseNotesItem {
	return &ReleaseNotesItem{
		base:      newBase(title),
		Subtitle:  subtitle,
		URL:       url,
		FirstSeen: firstSeen,
	}
}

// Category returns CategoryReleaseNotes.
func (i *ReleaseNotesItem) Category() Category { return CategoryReleaseNotes }

// Key returns "relnotes:<url>".
func (i *ReleaseNotesItem) Key() string { return "relnotes:" + i.URL }
