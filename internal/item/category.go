package item

import "strings"

// Category identifies which data source a suggestion item came from.
type Category uint8

const (
	// CategoryCalendar is upcoming or ongoing calendar events.
	CategoryCalendar Category = iota

	// CategoryAttachment is files attached to calendar events.
	CategoryAttachment

	// CategoryFileSuggestion is recently used or suggested files.
	CategoryFileSuggestion

	// CategoryRecentTab is browser tabs recently open on other devices.
	CategoryRecentTab

	// CategoryWeather is the current weather conditions.
	CategoryWeather

	// CategoryReleaseNotes is release notes for recent system updates.
	CategoryReleaseNotes
)

// NumCategories is the number of distinct categories.
const NumCategories = 6

// String returns the canonical name of the category. The name doubles as
// the item key prefix and the preference document key.
func (c Category) String() string {
	switch c {
	case CategoryCalendar:
		return "calendar"
	case CategoryAttachment:
		return "attachment"
	case CategoryFileSuggestion:
		return "file"
	case CategoryRecentTab:
		return "tab"
	case CategoryWeather:
		return "weather"
	case CategoryReleaseNotes:
		return "relnotes"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	return c < NumCategories
}

// categoryNameMap maps accepted names (lowercase) to Category values.
var categoryNameMap = map[string]Category{
	"calendar":      CategoryCalendar,
	"attachment":    CategoryAttachment,
	"attachments":   CategoryAttachment,
	"file":          CategoryFileSuggestion,
	"files":         CategoryFileSuggestion,
	"tab":           CategoryRecentTab,
	"tabs":          CategoryRecentTab,
	"weather":       CategoryWeather,
	"relnotes":      CategoryReleaseNotes,
	"release_notes": CategoryReleaseNotes,
}

// ParseCategory returns the Category for a given name (case-insensitive).
// The second return value is false if the name is not recognized.
func ParseCategory(name string) (Category, bool) {
	c, ok := categoryNameMap[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Categories returns all categories in their canonical order.
func Categories() []Category {
	return []Category{
		CategoryCalendar,
		CategoryAttachment,
		CategoryFileSuggestion,
		CategoryRecentTab,
		CategoryWeather,
		CategoryReleaseNotes,
	}
}

// CategorySet is a bitmask of categories.
type CategorySet uint8

// NewCategorySet returns a set containing the given categories.
func NewCategorySet(cats ...Category) CategorySet {
	var s CategorySet
	for _, c := range cats {
		s = s.With(c)
	}
	return s
}

// AllCategories returns a set containing every category.
func AllCategories() CategorySet {
	return NewCategorySet(Categories()...)
}

// Has returns true if the set contains the category.
func (s CategorySet) Has(c Category) bool {
	return s&(1<<c) != 0
}

// With returns a new set with the category added.
func (s CategorySet) With(c Category) CategorySet {
	return s | (1 << c)
}

// Without returns a new set with the category removed.
func (s CategorySet) Without(c Category) CategorySet {
	return s &^ (1 << c)
}

// Intersect returns the categories present in both sets.
func (s CategorySet) Intersect(o CategorySet) CategorySet {
	return s & o
}

// IsEmpty returns true if the set contains no categories.
func (s CategorySet) IsEmpty() bool {
	return s == 0
}

// Len returns the number of categories in the set.
func (s CategorySet) Len() int {
	n := 0
	for _, c := range Categories() {
		if s.Has(c) {
			n++
		}
	}
	return n
}

// Categories returns the set's members in canonical order.
func (s CategorySet) Categories() []Category {
	out := make([]Category, 0, s.Len())
	for _, c := range Categories() {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// String returns a representation like "calendar+weather".
func (s CategorySet) String() string {
	if s.IsEmpty() {
		return "none"
	}
	parts := make([]string, 0, s.Len())
	for _, c := range s.Categories() {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, "+")
}
