package model

import "time"

// WeekArchive records one archived week: the encrypted plan document
// uploaded to object storage once the household completed the ritual.
type WeekArchive struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Week        string    `json:"week"`
	ObjectKey   string    `json:"object_key"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum"`
	ArchivedAt  time.Time `json:"archived_at"`
}
