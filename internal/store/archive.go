package store

import (
	"database/sql"
	"fmt"

	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/week"
)

type ArchiveStore struct {
	db *sql.DB
}

func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

func scanArchive(scanner interface{ Scan(...any) error }) (*model.WeekArchive, error) {
	var a model.WeekArchive
	err := scanner.Scan(&a.ID, &a.HouseholdID, &a.Week, &a.ObjectKey, &a.SizeBytes, &a.Checksum, &a.ArchivedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const archiveCols = `id, household_id, week, object_key, size_bytes, checksum, archived_at`

// Record upserts the archive row for a week. Re-archiving a week
// replaces the prior record rather than accumulating duplicates.
func (s *ArchiveStore) Record(householdID int64, wk week.Key, objectKey string, sizeBytes int64, checksum string) (*model.WeekArchive, error) {
	if _, err := s.db.Exec(
		`INSERT INTO week_archives (household_id, week, object_key, size_bytes, checksum) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (household_id, week) DO UPDATE SET
		   object_key = excluded.object_key,
		   size_bytes = excluded.size_bytes,
		   checksum = excluded.checksum,
		   archived_at = datetime('now')`,
		householdID, wk, objectKey, sizeBytes, checksum,
	); err != nil {
		return nil, fmt.Errorf("record archive: %w", err)
	}
	return s.Get(householdID, wk)
}

func (s *ArchiveStore) Get(householdID int64, wk week.Key) (*model.WeekArchive, error) {
	row := s.db.QueryRow(
		`SELECT `+archiveCols+` FROM week_archives WHERE household_id = ? AND week = ?`,
		householdID, wk,
	)
	a, err := scanArchive(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	return a, nil
}

func (s *ArchiveStore) List(householdID int64) ([]model.WeekArchive, error) {
	rows, err := s.db.Query(
		`SELECT `+archiveCols+` FROM week_archives WHERE household_id = ? ORDER BY week DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("query archives: %w", err)
	}
	defer rows.Close()

	var archives []model.WeekArchive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		archives = append(archives, *a)
	}
	return archives, rows.Err()
}
