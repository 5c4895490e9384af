package model

import "time"

// Ritual steps, in workflow order.
const (
	StepOverview  = 1
	StepConflicts = 2
	StepPrep      = 3
	StepDecisions = 4
	StepReady     = 5
)

// Decision records one member's call on a single conflict. A decision
// exists in the map only once made; clearing it removes the entry.
type Decision struct {
	Resolved   bool   `json:"resolved"`
	Resolution string `json:"resolution,omitempty"`
}

// RitualState is one member's progress through the weekly planning
// ritual. One row per (user, week); the week rolls over by a new row
// being created, never by mutating an old one. Version backs the
// optimistic guard used by the decision-sync transaction.
type RitualState struct {
	ID          int64               `json:"id"`
	UserID      int64               `json:"user_id"`
	HouseholdID int64               `json:"household_id"`
	Week        string              `json:"week"`
	Step        int                 `json:"step"`
	PrepItems   map[string]bool     `json:"prep_items"`
	Decisions   map[string]Decision `json:"decisions"`
	CompletedAt *time.Time          `json:"completed_at"`
	Version     int64               `json:"-"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Completed reports whether this member finished step 5.
func (s *RitualState) Completed() bool {
	return s != nil && s.CompletedAt != nil
}

// WeekStatus is the household-level aggregate status. It is derived
// from both members' RitualState rows plus the diverging-decision
// count, and cached in HouseholdRitualWeek for cheap reads.
type WeekStatus string

const (
	WeekPending    WeekStatus = "pending"
	WeekInProgress WeekStatus = "in_progress"
	WeekNeedsSync  WeekStatus = "needs_sync"
	WeekCompleted  WeekStatus = "completed"
)

// HouseholdRitualWeek is the cached status projection for one
// (household, week). Write-only from the aggregator's recomputation;
// briefly stale reads are acceptable, decisions that require
// correctness re-derive instead.
type HouseholdRitualWeek struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	Week        string     `json:"week"`
	Status      WeekStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
