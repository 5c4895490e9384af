package schedule

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	ev, err := Normalize(RawEntry{
		ID:              "evt-1",
		Day:             "tue",
		Time:            "2:30 PM",
		DurationMinutes: 45,
		Owner:           "parent_b",
		Category:        "kids",
		Title:           "  Swim lessons ",
		Calendar:        "family",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.ID != "evt-1" {
		t.Errorf("id = %q, want %q", ev.ID, "evt-1")
	}
	if ev.Day != Tuesday {
		t.Errorf("day = %q, want %q", ev.Day, Tuesday)
	}
	if ev.Start != 870 || ev.End != 915 {
		t.Errorf("range = [%d,%d), want [870,915)", ev.Start, ev.End)
	}
	if ev.Time != "2:30 PM" {
		t.Errorf("time = %q, want %q", ev.Time, "2:30 PM")
	}
	if ev.Period != Afternoon {
		t.Errorf("period = %q, want %q", ev.Period, Afternoon)
	}
	if ev.Owner != ParentB {
		t.Errorf("owner = %q, want %q", ev.Owner, ParentB)
	}
	if ev.Category != Kids {
		t.Errorf("category = %q, want %q", ev.Category, Kids)
	}
	if ev.Title != "Swim lessons" {
		t.Errorf("title = %q, want %q", ev.Title, "Swim lessons")
	}
}

func TestNormalizeDefaults(t *testing.T) {
	ev, err := Normalize(RawEntry{
		Day:      "Monday",
		Time:     "9:00 AM",
		Owner:    "parent_a",
		Category: "appointments",
		Title:    "Soccer Practice",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.End-ev.Start != DefaultDurationMinutes {
		t.Errorf("duration = %d, want %d", ev.End-ev.Start, DefaultDurationMinutes)
	}
	if ev.Category != Personal {
		t.Errorf("category = %q, want fallback %q", ev.Category, Personal)
	}
	if ev.ID != "mon-0540-soccer-practice" {
		t.Errorf("derived id = %q, want %q", ev.ID, "mon-0540-soccer-practice")
	}

	again, err := Normalize(RawEntry{Day: "Monday", Time: "9:00 AM", Owner: "parent_a", Title: "Soccer Practice"})
	if err != nil {
		t.Fatalf("normalize again: %v", err)
	}
	if again.ID != ev.ID {
		t.Errorf("derived id not stable: %q vs %q", again.ID, ev.ID)
	}
}

func TestNormalizeRejectsBadEntries(t *testing.T) {
	cases := []struct {
		name string
		raw  RawEntry
	}{
		{"missing day", RawEntry{Time: "9:00 AM", Owner: "parent_a"}},
		{"unknown day", RawEntry{Day: "someday", Time: "9:00 AM", Owner: "parent_a"}},
		{"missing time", RawEntry{Day: "mon", Owner: "parent_a"}},
		{"bad time", RawEntry{Day: "mon", Time: "25:00", Owner: "parent_a"}},
		{"missing owner", RawEntry{Day: "mon", Time: "9:00 AM"}},
		{"unknown owner", RawEntry{Day: "mon", Time: "9:00 AM", Owner: "grandma"}},
	}
	for _, tc := range cases {
		if _, err := Normalize(tc.raw); !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("%s: error = %v, want ErrInvalidEntry", tc.name, err)
		}
	}
}

func TestNormalizeAllFailsAsUnit(t *testing.T) {
	entries := []RawEntry{
		{Day: "mon", Time: "9:00 AM", Owner: "parent_a", Title: "Fine"},
		{Day: "mon", Time: "nope", Owner: "parent_a", Title: "Broken"},
	}
	events, err := NormalizeAll(entries)
	if !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("error = %v, want ErrInvalidEntry", err)
	}
	if events != nil {
		t.Fatalf("events = %v, want nil on failure", events)
	}

	events, err = NormalizeAll(entries[:1])
	if err != nil {
		t.Fatalf("valid entries: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
}

func TestPeriodBoundaries(t *testing.T) {
	cases := []struct {
		clock string
		want  Period
	}{
		{"11:59 AM", Morning},
		{"12:00 PM", Afternoon},
		{"4:59 PM", Afternoon},
		{"5:00 PM", Evening},
	}
	for _, tc := range cases {
		ev, err := Normalize(RawEntry{Day: "fri", Time: tc.clock, Owner: "both", Title: "x"})
		if err != nil {
			t.Fatalf("normalize %q: %v", tc.clock, err)
		}
		if ev.Period != tc.want {
			t.Errorf("period(%q) = %q, want %q", tc.clock, ev.Period, tc.want)
		}
	}
}
