package store

import (
	"database/sql"
	"fmt"

	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/week"
)

// HouseholdWeekStore caches the derived household status per week.
// Rows here are projections; the status aggregator recomputes them
// from ritual state and never treats them as a source of truth.
type HouseholdWeekStore struct {
	db *sql.DB
}

func NewHouseholdWeekStore(db *sql.DB) *HouseholdWeekStore {
	return &HouseholdWeekStore{db: db}
}

func scanHouseholdWeek(scanner interface{ Scan(...any) error }) (*model.HouseholdRitualWeek, error) {
	var w model.HouseholdRitualWeek
	err := scanner.Scan(&w.ID, &w.HouseholdID, &w.Week, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

const householdWeekCols = `id, household_id, week, status, created_at, updated_at`

func (s *HouseholdWeekStore) Get(householdID int64, wk week.Key) (*model.HouseholdRitualWeek, error) {
	row := s.db.QueryRow(
		`SELECT `+householdWeekCols+` FROM household_ritual_weeks WHERE household_id = ? AND week = ?`,
		householdID, wk,
	)
	w, err := scanHouseholdWeek(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household week: %w", err)
	}
	return w, nil
}

func (s *HouseholdWeekStore) Upsert(householdID int64, wk week.Key, status model.WeekStatus) (*model.HouseholdRitualWeek, error) {
	if _, err := s.db.Exec(
		`INSERT INTO household_ritual_weeks (household_id, week, status) VALUES (?, ?, ?)
		 ON CONFLICT (household_id, week) DO UPDATE SET status = excluded.status, updated_at = datetime('now')`,
		householdID, wk, status,
	); err != nil {
		return nil, fmt.Errorf("upsert household week: %w", err)
	}
	return s.Get(householdID, wk)
}

func (s *HouseholdWeekStore) Delete(householdID int64, wk week.Key) error {
	_, err := s.db.Exec(
		`DELETE FROM household_ritual_weeks WHERE household_id = ? AND week = ?`,
		householdID, wk,
	)
	if err != nil {
		return fmt.Errorf("delete household week: %w", err)
	}
	return nil
}
