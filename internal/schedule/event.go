// Package schedule turns a household's raw calendar entries into a
// week view: normalized events, detected conflicts, a week summary,
// and the parent workload balance. Everything here is pure; analyzing
// the same entries twice yields byte-identical results, which is what
// keeps conflict identifiers comparable across both parents' views.
package schedule

import (
	"errors"
	"fmt"
	"strings"
)

type Day string

const (
	Monday    Day = "mon"
	Tuesday   Day = "tue"
	Wednesday Day = "wed"
	Thursday  Day = "thu"
	Friday    Day = "fri"
	Saturday  Day = "sat"
	Sunday    Day = "sun"
)

// weekOrder fixes iteration order for everything derived per-day.
var weekOrder = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayNames = map[Day]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

// parseDay accepts the short form ("mon") or the full name, any case.
func parseDay(s string) (Day, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mon", "monday":
		return Monday, true
	case "tue", "tues", "tuesday":
		return Tuesday, true
	case "wed", "wednesday":
		return Wednesday, true
	case "thu", "thur", "thurs", "thursday":
		return Thursday, true
	case "fri", "friday":
		return Friday, true
	case "sat", "saturday":
		return Saturday, true
	case "sun", "sunday":
		return Sunday, true
	}
	return "", false
}

// Name returns the display name ("Monday") used in conflict context text.
func (d Day) Name() string {
	return dayNames[d]
}

type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
	Evening   Period = "evening"
)

const (
	afternoonStart = 12 * 60
	eveningStart   = 17 * 60
)

func periodOf(startMin int) Period {
	switch {
	case startMin < afternoonStart:
		return Morning
	case startMin < eveningStart:
		return Afternoon
	default:
		return Evening
	}
}

// Owner names the actor responsible for an event: one of the two
// parent slots, or both of them together.
type Owner string

const (
	ParentA Owner = "parent_a"
	ParentB Owner = "parent_b"
	Both    Owner = "both"
)

func parseOwner(s string) (Owner, bool) {
	switch Owner(strings.ToLower(strings.TrimSpace(s))) {
	case ParentA:
		return ParentA, true
	case ParentB:
		return ParentB, true
	case Both:
		return Both, true
	}
	return "", false
}

// Individual reports whether the owner is a single parent.
func (o Owner) Individual() bool {
	return o == ParentA || o == ParentB
}

type Category string

const (
	Kids     Category = "kids"
	Work     Category = "work"
	Personal Category = "personal"
)

// DefaultDurationMinutes is assumed when an entry carries no duration.
const DefaultDurationMinutes = 60

// RawEntry is a calendar entry as delivered by the calendar-sync
// collaborator: day and 12-hour time as strings, owner already resolved
// to a slot. Normalize is the only way into the analyzer.
type RawEntry struct {
	ID              string `json:"id"`
	Day             string `json:"day"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Owner           string `json:"owner"`
	Category        string `json:"category"`
	Title           string `json:"title"`
	Calendar        string `json:"calendar"`
}

// Event is one normalized calendar occurrence within a week.
type Event struct {
	ID       string   `json:"id"`
	Day      Day      `json:"day"`
	Time     string   `json:"time"`
	Start    int      `json:"start_minute"`
	End      int      `json:"end_minute"`
	Period   Period   `json:"period"`
	Owner    Owner    `json:"owner"`
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Calendar string   `json:"calendar"`
}

// ErrInvalidEntry wraps every normalization failure so the HTTP
// boundary can map the whole family to one rejection class.
var ErrInvalidEntry = errors.New("invalid calendar entry")

// Normalize validates a raw entry and derives the internal event shape.
// Missing or unknown day, time, and owner are rejected; an unknown
// category falls back to personal since third-party calendars rarely
// tag one.
func Normalize(raw RawEntry) (Event, error) {
	day, ok := parseDay(raw.Day)
	if !ok {
		return Event{}, fmt.Errorf("%w: missing or unknown day %q", ErrInvalidEntry, raw.Day)
	}

	if strings.TrimSpace(raw.Time) == "" {
		return Event{}, fmt.Errorf("%w: missing time", ErrInvalidEntry)
	}
	start, err := ParseClock(raw.Time)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	owner, ok := parseOwner(raw.Owner)
	if !ok {
		return Event{}, fmt.Errorf("%w: missing or unknown owner %q", ErrInvalidEntry, raw.Owner)
	}

	category := Category(strings.ToLower(strings.TrimSpace(string(raw.Category))))
	switch category {
	case Kids, Work, Personal:
	default:
		category = Personal
	}

	duration := raw.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = fmt.Sprintf("%s-%04d-%s", day, start, slug(raw.Title))
	}

	return Event{
		ID:       id,
		Day:      day,
		Time:     FormatMinutes(start),
		Start:    start,
		End:      start + duration,
		Period:   periodOf(start),
		Owner:    owner,
		Category: category,
		Title:    strings.TrimSpace(raw.Title),
		Calendar: raw.Calendar,
	}, nil
}

// NormalizeAll normalizes every entry, failing on the first bad one so
// a malformed import is rejected as a unit.
func NormalizeAll(entries []RawEntry) ([]Event, error) {
	events := make([]Event, 0, len(entries))
	for i, raw := range entries {
		ev, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%q): %w", i, raw.Title, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
