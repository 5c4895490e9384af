// Package ritual implements the weekly planning engine: each parent's
// five-step progress, their per-conflict decisions, partner decision
// sync with an atomic two-row reconciliation write, and the derived
// household status.
package ritual

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/store"
	"github.com/prime3679/family-os-sub001/internal/week"
)

// Notifier receives household status transitions worth telling the
// other member about. The server wires the websocket hub in here;
// tests use a recorder. Delivery is fire-and-forget.
type Notifier interface {
	NotifyStatus(householdID int64, wk week.Key, status model.WeekStatus)
}

type Service struct {
	db       *sql.DB
	states   *store.RitualStateStore
	weeks    *store.HouseholdWeekStore
	members  *store.HouseholdStore
	users    *store.UserStore
	events   *store.WeekEventStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	// beforeSyncWrite, when set, runs between reading both members'
	// rows and opening the reconciliation transaction. Tests use it
	// to interleave a concurrent edit.
	beforeSyncWrite func()
}

func NewService(db *sql.DB, states *store.RitualStateStore, weeks *store.HouseholdWeekStore, members *store.HouseholdStore, users *store.UserStore, events *store.WeekEventStore, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		states:   states,
		weeks:    weeks,
		members:  members,
		users:    users,
		events:   events,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// State returns the user's row for the week, or an unsaved step-one
// default if they have not started. Reading never creates a row; the
// household stays pending until someone actually acts.
func (s *Service) State(userID, householdID int64, wk week.Key) (*model.RitualState, error) {
	st, err := s.states.Get(userID, wk)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = defaultState(userID, householdID, wk)
	}
	return st, nil
}

func defaultState(userID, householdID int64, wk week.Key) *model.RitualState {
	return &model.RitualState{
		UserID:      userID,
		HouseholdID: householdID,
		Week:        string(wk),
		Step:        model.StepOverview,
		PrepItems:   map[string]bool{},
		Decisions:   map[string]model.Decision{},
	}
}

// Apply runs one action against the acting user's row and refreshes
// the household projection. Safe to replay with the same arguments.
func (s *Service) Apply(userID, householdID int64, wk week.Key, action Action) (*model.RitualState, error) {
	if action == nil {
		return nil, fmt.Errorf("%w: action required", ErrInvalidInput)
	}

	var (
		st  *model.RitualState
		err error
	)
	if _, ok := action.(ResetWeek); ok {
		st, err = s.resetWeek(userID, householdID, wk)
	} else {
		st, err = s.applyToRow(userID, householdID, wk, action)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("applied ritual action",
		"action", action.actionName(),
		"user_id", userID,
		"week", wk,
		"step", st.Step,
	)
	s.refreshStatus(householdID, wk)
	return st, nil
}

func (s *Service) applyToRow(userID, householdID int64, wk week.Key, action Action) (*model.RitualState, error) {
	st, err := s.states.GetOrCreate(userID, householdID, wk)
	if err != nil {
		return nil, err
	}

	switch a := action.(type) {
	case AdvanceStep:
		return s.advance(st, a.Step)
	case RetreatStep:
		return s.retreat(st, a.Step)
	case TogglePrepItem:
		return s.togglePrep(st, a.ItemID)
	case SetDecision:
		return s.setDecision(st, a.ConflictID, a.Resolution)
	case CompleteRitual:
		return s.complete(st)
	default:
		return nil, fmt.Errorf("%w: unknown action", ErrInvalidInput)
	}
}

func clampStep(step int) int {
	if step < model.StepOverview {
		return model.StepOverview
	}
	if step > model.StepReady {
		return model.StepReady
	}
	return step
}

func (s *Service) advance(st *model.RitualState, target int) (*model.RitualState, error) {
	target = clampStep(target)
	if target <= st.Step {
		return st, nil
	}
	return s.states.UpdateStep(st.ID, target, st.CompletedAt)
}

func (s *Service) retreat(st *model.RitualState, target int) (*model.RitualState, error) {
	target = clampStep(target)
	if target >= st.Step {
		return st, nil
	}
	completed := st.CompletedAt
	if target < model.StepReady {
		completed = nil
	}
	return s.states.UpdateStep(st.ID, target, completed)
}

func (s *Service) togglePrep(st *model.RitualState, itemID string) (*model.RitualState, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, fmt.Errorf("%w: prep item id required", ErrInvalidInput)
	}
	items := make(map[string]bool, len(st.PrepItems)+1)
	for k, v := range st.PrepItems {
		items[k] = v
	}
	items[itemID] = !items[itemID]
	return s.states.UpdatePrepItems(st.ID, items)
}

func (s *Service) setDecision(st *model.RitualState, conflictID string, resolution *string) (*model.RitualState, error) {
	conflictID = strings.TrimSpace(conflictID)
	if conflictID == "" {
		return nil, fmt.Errorf("%w: conflict id required", ErrInvalidInput)
	}

	decisions := copyDecisions(st.Decisions)
	if resolution == nil {
		if _, ok := decisions[conflictID]; !ok {
			return st, nil
		}
		delete(decisions, conflictID)
	} else {
		text := strings.TrimSpace(*resolution)
		if text == "" {
			return nil, fmt.Errorf("%w: resolution text required", ErrInvalidInput)
		}
		next := model.Decision{Resolved: true, Resolution: text}
		if decisions[conflictID] == next {
			return st, nil
		}
		decisions[conflictID] = next
	}
	return s.states.UpdateDecisions(st.ID, decisions)
}

func (s *Service) complete(st *model.RitualState) (*model.RitualState, error) {
	if st.Completed() {
		return st, nil
	}
	if st.Step != model.StepReady {
		return nil, fmt.Errorf("%w: complete is only valid on step %d", ErrInvalidInput, model.StepReady)
	}
	now := s.now().UTC()
	return s.states.UpdateStep(st.ID, st.Step, &now)
}

func (s *Service) resetWeek(userID, householdID int64, wk week.Key) (*model.RitualState, error) {
	st, err := s.states.Get(userID, wk)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := s.states.Delete(st.ID); err != nil {
			return nil, err
		}
	}
	return defaultState(userID, householdID, wk), nil
}

func copyDecisions(src map[string]model.Decision) map[string]model.Decision {
	out := make(map[string]model.Decision, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	return out
}

// PartnerProgress is the polling view of the other member's week:
// enough to render their progress without exposing their row for
// mutation.
type PartnerProgress struct {
	HasPartner  bool       `json:"has_partner"`
	UserID      int64      `json:"user_id,omitempty"`
	Name        string     `json:"name,omitempty"`
	Started     bool       `json:"started"`
	Step        int        `json:"step"`
	PrepDone    int        `json:"prep_done"`
	Decided     int        `json:"decided"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Partner reports the other member's progress for the week. When no
// partner has joined, HasPartner is false and the rest is zeroed.
func (s *Service) Partner(userID, householdID int64, wk week.Key) (*PartnerProgress, error) {
	member, err := s.members.Partner(householdID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return &PartnerProgress{}, nil
	}

	progress := &PartnerProgress{
		HasPartner: true,
		UserID:     member.UserID,
		Step:       model.StepOverview,
	}

	u, err := s.users.GetByID(member.UserID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		progress.Name = u.Name
	}

	st, err := s.states.Get(member.UserID, wk)
	if err != nil {
		return nil, err
	}
	if st != nil {
		progress.Started = true
		progress.Step = st.Step
		progress.CompletedAt = st.CompletedAt
		progress.Decided = len(st.Decisions)
		for _, done := range st.PrepItems {
			if done {
				progress.PrepDone++
			}
		}
	}
	return progress, nil
}
