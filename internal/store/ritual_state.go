package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/week"
)

// ErrStaleVersion reports that a version-guarded write lost a race
// with a concurrent update to the same row.
var ErrStaleVersion = errors.New("ritual state version changed")

type RitualStateStore struct {
	db *sql.DB
}

func NewRitualStateStore(db *sql.DB) *RitualStateStore {
	return &RitualStateStore{db: db}
}

func scanRitualState(scanner interface{ Scan(...any) error }) (*model.RitualState, error) {
	var st model.RitualState
	var prepJSON, decisionsJSON string
	var completed sql.NullTime

	err := scanner.Scan(
		&st.ID, &st.UserID, &st.HouseholdID, &st.Week, &st.Step,
		&prepJSON, &decisionsJSON, &completed, &st.Version, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prepJSON), &st.PrepItems); err != nil {
		return nil, fmt.Errorf("decode prep items: %w", err)
	}
	if err := json.Unmarshal([]byte(decisionsJSON), &st.Decisions); err != nil {
		return nil, fmt.Errorf("decode decisions: %w", err)
	}
	if completed.Valid {
		t := completed.Time
		st.CompletedAt = &t
	}
	return &st, nil
}

const ritualStateCols = `id, user_id, household_id, week, step, prep_items, decisions, completed_at, version, created_at, updated_at`

func (s *RitualStateStore) Get(userID int64, wk week.Key) (*model.RitualState, error) {
	row := s.db.QueryRow(
		`SELECT `+ritualStateCols+` FROM ritual_states WHERE user_id = ? AND week = ?`,
		userID, wk,
	)
	st, err := scanRitualState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ritual state: %w", err)
	}
	return st, nil
}

func (s *RitualStateStore) GetByID(id int64) (*model.RitualState, error) {
	row := s.db.QueryRow(`SELECT `+ritualStateCols+` FROM ritual_states WHERE id = ?`, id)
	st, err := scanRitualState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ritual state: %w", err)
	}
	return st, nil
}

// GetOrCreate returns the user's row for the week, inserting the
// step-one default first if none exists. Safe under concurrent calls
// for the same (user, week).
func (s *RitualStateStore) GetOrCreate(userID, householdID int64, wk week.Key) (*model.RitualState, error) {
	if _, err := s.db.Exec(
		`INSERT INTO ritual_states (user_id, household_id, week) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, week) DO NOTHING`,
		userID, householdID, wk,
	); err != nil {
		return nil, fmt.Errorf("ensure ritual state: %w", err)
	}
	return s.Get(userID, wk)
}

// ListHouseholdWeek returns every member's row for the week, ordered
// by user so output is stable.
func (s *RitualStateStore) ListHouseholdWeek(householdID int64, wk week.Key) ([]model.RitualState, error) {
	rows, err := s.db.Query(
		`SELECT `+ritualStateCols+` FROM ritual_states WHERE household_id = ? AND week = ? ORDER BY user_id ASC`,
		householdID, wk,
	)
	if err != nil {
		return nil, fmt.Errorf("query ritual states: %w", err)
	}
	defer rows.Close()

	var states []model.RitualState
	for rows.Next() {
		st, err := scanRitualState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ritual state: %w", err)
		}
		states = append(states, *st)
	}
	return states, rows.Err()
}

func (s *RitualStateStore) UpdateStep(id int64, step int, completedAt *time.Time) (*model.RitualState, error) {
	var done sql.NullTime
	if completedAt != nil {
		done = sql.NullTime{Time: completedAt.UTC(), Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE ritual_states SET step = ?, completed_at = ?, version = version + 1, updated_at = datetime('now') WHERE id = ?`,
		step, done, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update step: %w", err)
	}
	return s.GetByID(id)
}

func (s *RitualStateStore) UpdatePrepItems(id int64, items map[string]bool) (*model.RitualState, error) {
	if items == nil {
		items = map[string]bool{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode prep items: %w", err)
	}
	if _, err := s.db.Exec(
		`UPDATE ritual_states SET prep_items = ?, version = version + 1, updated_at = datetime('now') WHERE id = ?`,
		string(itemsJSON), id,
	); err != nil {
		return nil, fmt.Errorf("update prep items: %w", err)
	}
	return s.GetByID(id)
}

func (s *RitualStateStore) UpdateDecisions(id int64, decisions map[string]model.Decision) (*model.RitualState, error) {
	if decisions == nil {
		decisions = map[string]model.Decision{}
	}
	decisionsJSON, err := json.Marshal(decisions)
	if err != nil {
		return nil, fmt.Errorf("encode decisions: %w", err)
	}
	if _, err := s.db.Exec(
		`UPDATE ritual_states SET decisions = ?, version = version + 1, updated_at = datetime('now') WHERE id = ?`,
		string(decisionsJSON), id,
	); err != nil {
		return nil, fmt.Errorf("update decisions: %w", err)
	}
	return s.GetByID(id)
}

// UpdateDecisionsTx writes a decision map inside a caller-owned
// transaction, guarded by the version observed at read time. Returns
// ErrStaleVersion without writing if the row moved on since.
func (s *RitualStateStore) UpdateDecisionsTx(tx *sql.Tx, id int64, decisions map[string]model.Decision, expectVersion int64) error {
	if decisions == nil {
		decisions = map[string]model.Decision{}
	}
	decisionsJSON, err := json.Marshal(decisions)
	if err != nil {
		return fmt.Errorf("encode decisions: %w", err)
	}
	result, err := tx.Exec(
		`UPDATE ritual_states SET decisions = ?, version = version + 1, updated_at = datetime('now') WHERE id = ? AND version = ?`,
		string(decisionsJSON), id, expectVersion,
	)
	if err != nil {
		return fmt.Errorf("update decisions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStaleVersion
	}
	return nil
}

// Delete removes the row entirely. Step, prep items, and decisions all
// reset together; the next interaction starts a fresh week.
func (s *RitualStateStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM ritual_states WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ritual state: %w", err)
	}
	return nil
}
