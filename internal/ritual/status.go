package ritual

import (
	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/week"
)

// DeriveStatus folds member rows into the household's week status.
// No rows at all means nobody started. Once anyone acts the week is
// in progress until every member has completed; actively diverging
// decisions then hold the week at needs_sync.
func DeriveStatus(memberCount int, states []model.RitualState, diverging int) model.WeekStatus {
	if len(states) == 0 {
		return model.WeekPending
	}

	completed := 0
	for _, st := range states {
		if st.Completed() {
			completed++
		}
	}
	if completed < memberCount {
		return model.WeekInProgress
	}
	if diverging > 0 {
		return model.WeekNeedsSync
	}
	return model.WeekCompleted
}

// RefreshStatus recomputes the household's week status from member
// rows, stores the projection, and notifies on transitions into
// needs_sync or completed. The stored row is a cache; this derivation
// is the source of truth.
func (s *Service) RefreshStatus(householdID int64, wk week.Key) (model.WeekStatus, error) {
	memberRows, err := s.members.ListMembers(householdID)
	if err != nil {
		return "", err
	}
	states, err := s.states.ListHouseholdWeek(householdID, wk)
	if err != nil {
		return "", err
	}

	diverging := 0
	if len(memberRows) == 2 && len(states) == 2 {
		diverging = countDiverging(CompareDecisions(states[0].Decisions, states[1].Decisions))
	}

	status := DeriveStatus(len(memberRows), states, diverging)

	prev := model.WeekPending
	cached, err := s.weeks.Get(householdID, wk)
	if err != nil {
		return "", err
	}
	if cached != nil {
		prev = cached.Status
	}

	if cached == nil || status != prev {
		if _, err := s.weeks.Upsert(householdID, wk, status); err != nil {
			return "", err
		}
	}

	if s.notifier != nil && status != prev && (status == model.WeekNeedsSync || status == model.WeekCompleted) {
		s.notifier.NotifyStatus(householdID, wk, status)
	}
	return status, nil
}

// HouseholdStatus is the read path for the week projection. It
// recomputes rather than trusting the cached row, so a stale cache
// self-heals on the next read.
func (s *Service) HouseholdStatus(householdID int64, wk week.Key) (model.WeekStatus, error) {
	return s.RefreshStatus(householdID, wk)
}

func (s *Service) refreshStatus(householdID int64, wk week.Key) {
	if _, err := s.RefreshStatus(householdID, wk); err != nil {
		s.logger.Warn("refresh household week status",
			"household_id", householdID,
			"week", wk,
			"error", err,
		)
	}
}
