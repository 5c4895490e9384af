package model

import "time"

// WeekEvent is one stored calendar entry for a household's week, in the
// already-normalized shape the calendar-sync collaborator delivers: a
// weekday plus a 12-hour clock time, owner resolved to a member slot or
// "both". Day, Owner, and Category are validated against the schedule
// package's vocabularies before a row is written.
type WeekEvent struct {
	ID              int64     `json:"id"`
	HouseholdID     int64     `json:"household_id"`
	Week            string    `json:"week"`
	Day             string    `json:"day"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	Owner           string    `json:"owner"`
	Category        string    `json:"category"`
	Title           string    `json:"title"`
	Calendar        string    `json:"calendar"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
