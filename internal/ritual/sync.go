package ritual

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/store"
	"github.com/prime3679/family-os-sub001/internal/week"
)

// DecisionComparison lines up one conflict's resolution across both
// members. A nil resolution means that member has not decided yet.
type DecisionComparison struct {
	ConflictID        string  `json:"conflict_id"`
	MyResolution      *string `json:"my_resolution"`
	PartnerResolution *string `json:"partner_resolution"`
	Matches           bool    `json:"matches"`
	FinalResolution   *string `json:"final_resolution"`
}

// Diverging reports whether both members decided and disagree. An
// undecided side never diverges; it just has not weighed in.
func (c DecisionComparison) Diverging() bool {
	return c.MyResolution != nil && c.PartnerResolution != nil && !c.Matches
}

// CompareDecisions builds the per-conflict comparison over the union
// of both decision maps, ordered by conflict id. Comparing A against B
// and B against A yields mirrored rows with identical Matches.
func CompareDecisions(mine, partner map[string]model.Decision) []DecisionComparison {
	ids := make(map[string]struct{}, len(mine)+len(partner))
	for id := range mine {
		ids[id] = struct{}{}
	}
	for id := range partner {
		ids[id] = struct{}{}
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	comparisons := make([]DecisionComparison, 0, len(sorted))
	for _, id := range sorted {
		c := DecisionComparison{
			ConflictID:        id,
			MyResolution:      resolutionOf(mine, id),
			PartnerResolution: resolutionOf(partner, id),
		}
		c.Matches = equalResolution(c.MyResolution, c.PartnerResolution)
		if c.Matches && c.MyResolution != nil {
			c.FinalResolution = c.MyResolution
		}
		comparisons = append(comparisons, c)
	}
	return comparisons
}

func resolutionOf(decisions map[string]model.Decision, conflictID string) *string {
	d, ok := decisions[conflictID]
	if !ok || !d.Resolved {
		return nil
	}
	return &d.Resolution
}

func equalResolution(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func countDiverging(comparisons []DecisionComparison) int {
	n := 0
	for _, c := range comparisons {
		if c.Diverging() {
			n++
		}
	}
	return n
}

// CompareWeek compares the acting user's decisions against their
// partner's for the week. Works with zero, one, or both rows present.
func (s *Service) CompareWeek(userID, householdID int64, wk week.Key) ([]DecisionComparison, error) {
	var mine map[string]model.Decision
	st, err := s.states.Get(userID, wk)
	if err != nil {
		return nil, err
	}
	if st != nil {
		mine = st.Decisions
	}

	partner, err := s.partnerDecisions(userID, householdID, wk)
	if err != nil {
		return nil, err
	}
	return CompareDecisions(mine, partner), nil
}

func (s *Service) partnerDecisions(userID, householdID int64, wk week.Key) (map[string]model.Decision, error) {
	member, err := s.members.Partner(householdID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, nil
	}
	st, err := s.states.Get(member.UserID, wk)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, nil
	}
	return st.Decisions, nil
}

type SyncResult struct {
	Success   bool `json:"success"`
	AllSynced bool `json:"all_synced"`
}

// SyncDecision writes the agreed resolution for one conflict into both
// members' rows in a single transaction. Either both rows move or
// neither does. A concurrent edit to either row aborts the write; the
// whole cycle is retried once before giving up.
func (s *Service) SyncDecision(userID, householdID int64, wk week.Key, conflictID, resolution string) (*SyncResult, error) {
	conflictID = strings.TrimSpace(conflictID)
	if conflictID == "" {
		return nil, fmt.Errorf("%w: conflict id required", ErrInvalidInput)
	}
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, fmt.Errorf("%w: resolution text required", ErrInvalidInput)
	}

	var (
		result *SyncResult
		err    error
	)
	for attempt := 0; attempt < 2; attempt++ {
		result, err = s.trySyncDecision(userID, householdID, wk, conflictID, resolution)
		if !errors.Is(err, store.ErrStaleVersion) {
			break
		}
		s.logger.Warn("decision sync hit concurrent edit, retrying",
			"conflict_id", conflictID,
			"week", wk,
		)
	}
	if errors.Is(err, store.ErrStaleVersion) {
		return nil, fmt.Errorf("%w: decisions changed during sync, try again", ErrConcurrentSync)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("decision synced",
		"conflict_id", conflictID,
		"household_id", householdID,
		"week", wk,
	)
	s.refreshStatus(householdID, wk)
	return result, nil
}

func (s *Service) trySyncDecision(userID, householdID int64, wk week.Key, conflictID, resolution string) (*SyncResult, error) {
	mine, err := s.states.GetOrCreate(userID, householdID, wk)
	if err != nil {
		return nil, err
	}

	var partnerState *model.RitualState
	member, err := s.members.Partner(householdID, userID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		partnerState, err = s.states.GetOrCreate(member.UserID, householdID, wk)
		if err != nil {
			return nil, err
		}
	}

	if !hasDecision(mine, conflictID) && !hasDecision(partnerState, conflictID) {
		return nil, fmt.Errorf("%w: conflict %s has no decision to sync", ErrNotFound, conflictID)
	}

	if s.beforeSyncWrite != nil {
		s.beforeSyncWrite()
	}

	agreed := model.Decision{Resolved: true, Resolution: resolution}
	if mine.Decisions[conflictID] == agreed && (partnerState == nil || partnerState.Decisions[conflictID] == agreed) {
		return s.syncResult(userID, householdID, wk)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.applyAgreed(tx, mine, conflictID, agreed); err != nil {
		return nil, err
	}
	if partnerState != nil {
		if err := s.applyAgreed(tx, partnerState, conflictID, agreed); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sync transaction: %w", err)
	}

	return s.syncResult(userID, householdID, wk)
}

func (s *Service) applyAgreed(tx *sql.Tx, st *model.RitualState, conflictID string, agreed model.Decision) error {
	decisions := copyDecisions(st.Decisions)
	decisions[conflictID] = agreed
	return s.states.UpdateDecisionsTx(tx, st.ID, decisions, st.Version)
}

func hasDecision(st *model.RitualState, conflictID string) bool {
	if st == nil {
		return false
	}
	_, ok := st.Decisions[conflictID]
	return ok
}

func (s *Service) syncResult(userID, householdID int64, wk week.Key) (*SyncResult, error) {
	comparisons, err := s.CompareWeek(userID, householdID, wk)
	if err != nil {
		return nil, err
	}
	return &SyncResult{
		Success:   true,
		AllSynced: countDiverging(comparisons) == 0,
	}, nil
}
