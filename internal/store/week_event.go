package store

import (
	"database/sql"
	"fmt"

	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/week"
)

type WeekEventStore struct {
	db *sql.DB
}

func NewWeekEventStore(db *sql.DB) *WeekEventStore {
	return &WeekEventStore{db: db}
}

func scanWeekEvent(scanner interface{ Scan(...any) error }) (*model.WeekEvent, error) {
	var e model.WeekEvent
	err := scanner.Scan(
		&e.ID, &e.HouseholdID, &e.Week, &e.Day, &e.Time, &e.DurationMinutes,
		&e.Owner, &e.Category, &e.Title, &e.Calendar, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const weekEventCols = `id, household_id, week, day, time, duration_minutes, owner, category, title, calendar, created_at, updated_at`

func (s *WeekEventStore) Create(householdID int64, wk week.Key, day, clock string, durationMinutes int, owner, category, title, calendar string) (*model.WeekEvent, error) {
	result, err := s.db.Exec(
		`INSERT INTO week_events (household_id, week, day, time, duration_minutes, owner, category, title, calendar)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		householdID, wk, day, clock, durationMinutes, owner, category, title, calendar,
	)
	if err != nil {
		return nil, fmt.Errorf("insert week event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *WeekEventStore) GetByID(id int64) (*model.WeekEvent, error) {
	row := s.db.QueryRow(`SELECT `+weekEventCols+` FROM week_events WHERE id = ?`, id)
	e, err := scanWeekEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get week event: %w", err)
	}
	return e, nil
}

func (s *WeekEventStore) ListWeek(householdID int64, wk week.Key) ([]model.WeekEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+weekEventCols+` FROM week_events WHERE household_id = ? AND week = ? ORDER BY id ASC`,
		householdID, wk,
	)
	if err != nil {
		return nil, fmt.Errorf("query week events: %w", err)
	}
	defer rows.Close()

	var events []model.WeekEvent
	for rows.Next() {
		e, err := scanWeekEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan week event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *WeekEventStore) Update(id int64, day, clock string, durationMinutes int, owner, category, title, calendar string) (*model.WeekEvent, error) {
	_, err := s.db.Exec(
		`UPDATE week_events
		 SET day = ?, time = ?, duration_minutes = ?, owner = ?, category = ?, title = ?, calendar = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		day, clock, durationMinutes, owner, category, title, calendar, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update week event: %w", err)
	}
	return s.GetByID(id)
}

func (s *WeekEventStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM week_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete week event: %w", err)
	}
	return nil
}

// ReplaceCalendar swaps one calendar source's entries for the week in
// a single transaction, so a feed import lands all-or-nothing without
// touching events from other sources.
func (s *WeekEventStore) ReplaceCalendar(householdID int64, wk week.Key, calendar string, events []model.WeekEvent) ([]model.WeekEvent, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM week_events WHERE household_id = ? AND week = ? AND calendar = ?`,
		householdID, wk, calendar,
	); err != nil {
		return nil, fmt.Errorf("clear calendar source: %w", err)
	}

	for _, e := range events {
		if _, err := tx.Exec(
			`INSERT INTO week_events (household_id, week, day, time, duration_minutes, owner, category, title, calendar)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			householdID, wk, e.Day, e.Time, e.DurationMinutes, e.Owner, e.Category, e.Title, calendar,
		); err != nil {
			return nil, fmt.Errorf("insert week event %q: %w", e.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.ListWeek(householdID, wk)
}
