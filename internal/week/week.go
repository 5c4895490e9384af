// Package week defines the canonical key for one planning week.
//
// A key is the date of the Monday the week starts on, formatted
// 2006-01-02. Weeks run Monday through Sunday; all per-week state
// (ritual progress, calendar entries, household status) is scoped by
// one of these keys.
package week

import (
	"fmt"
	"time"
)

const layout = "2006-01-02"

type Key string

// Of returns the key for the week containing t, in t's location.
func Of(t time.Time) Key {
	// time.Weekday counts Sunday as 0; shift so Monday is the anchor.
	offset := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -offset)
	return Key(monday.Format(layout))
}

// Parse validates s as a week key: a real date that falls on a Monday.
func Parse(s string) (Key, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", fmt.Errorf("invalid week %q: %w", s, err)
	}
	if t.Weekday() != time.Monday {
		return "", fmt.Errorf("invalid week %q: not a Monday", s)
	}
	return Key(s), nil
}

// Time returns the Monday this key names, at midnight UTC.
func (k Key) Time() time.Time {
	t, err := time.Parse(layout, string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (k Key) Next() Key {
	return Key(k.Time().AddDate(0, 0, 7).Format(layout))
}

func (k Key) Prev() Key {
	return Key(k.Time().AddDate(0, 0, -7).Format(layout))
}

func (k Key) String() string {
	return string(k)
}
