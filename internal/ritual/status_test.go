package ritual

import (
	"testing"
	"time"

	"github.com/prime3679/family-os-sub001/internal/model"
)

func TestDeriveStatus(t *testing.T) {
	done := time.Date(2026, 3, 4, 20, 0, 0, 0, time.UTC)
	completed := model.RitualState{Step: model.StepReady, CompletedAt: &done}
	started := model.RitualState{Step: model.StepPrep}

	cases := []struct {
		name      string
		members   int
		states    []model.RitualState
		diverging int
		want      model.WeekStatus
	}{
		{"no rows", 2, nil, 0, model.WeekPending},
		{"one started", 2, []model.RitualState{started}, 0, model.WeekInProgress},
		{"one completed one missing", 2, []model.RitualState{completed}, 0, model.WeekInProgress},
		{"one completed one behind", 2, []model.RitualState{completed, started}, 0, model.WeekInProgress},
		{"both completed", 2, []model.RitualState{completed, completed}, 0, model.WeekCompleted},
		{"both completed still diverging", 2, []model.RitualState{completed, completed}, 1, model.WeekNeedsSync},
		{"solo started", 1, []model.RitualState{started}, 0, model.WeekInProgress},
		{"solo completed", 1, []model.RitualState{completed}, 0, model.WeekCompleted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(tc.members, tc.states, tc.diverging)
			if got != tc.want {
				t.Errorf("status = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHouseholdStatusLifecycle(t *testing.T) {
	f := setupRitualService(t)

	status, err := f.svc.HouseholdStatus(f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != model.WeekPending {
		t.Errorf("status = %q, want pending before anyone acts", status)
	}

	// Ana decides and finishes; Ben is mid-ritual.
	aSide := "keep Saturday"
	f.apply(t, f.userA.ID, SetDecision{ConflictID: "conflict-1", Resolution: &aSide})
	f.completeRitual(t, f.userA.ID)

	bSide := "move to Sunday"
	f.apply(t, f.userB.ID, SetDecision{ConflictID: "conflict-1", Resolution: &bSide})
	f.apply(t, f.userB.ID, AdvanceStep{Step: model.StepPrep})

	status, err = f.svc.HouseholdStatus(f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != model.WeekInProgress {
		t.Errorf("status = %q, want in_progress with one member behind", status)
	}

	// Ben finishes too, but their decisions disagree.
	f.completeRitual(t, f.userB.ID)

	status, err = f.svc.HouseholdStatus(f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != model.WeekNeedsSync {
		t.Errorf("status = %q, want needs_sync with diverging decisions", status)
	}

	// Reconciling the one divergence completes the week.
	if _, err := f.svc.SyncDecision(f.userA.ID, f.household.ID, testWeek, "conflict-1", bSide); err != nil {
		t.Fatalf("sync: %v", err)
	}

	status, err = f.svc.HouseholdStatus(f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != model.WeekCompleted {
		t.Errorf("status = %q, want completed after sync", status)
	}

	cached, err := f.weeks.Get(f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("get cached row: %v", err)
	}
	if cached == nil || cached.Status != model.WeekCompleted {
		t.Errorf("cached = %+v, want completed", cached)
	}

	// Only the transitions into needs_sync and completed notify.
	got := f.notified.recorded()
	want := []model.WeekStatus{model.WeekNeedsSync, model.WeekCompleted}
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHouseholdStatusRepeatReadsDoNotRenotify(t *testing.T) {
	f := setupRitualService(t)

	aSide, bSide := "keep it", "cancel it"
	f.apply(t, f.userA.ID, SetDecision{ConflictID: "conflict-1", Resolution: &aSide})
	f.completeRitual(t, f.userA.ID)
	f.apply(t, f.userB.ID, SetDecision{ConflictID: "conflict-1", Resolution: &bSide})
	f.completeRitual(t, f.userB.ID)

	for i := 0; i < 3; i++ {
		status, err := f.svc.HouseholdStatus(f.household.ID, testWeek)
		if err != nil {
			t.Fatalf("status read %d: %v", i, err)
		}
		if status != model.WeekNeedsSync {
			t.Errorf("status read %d = %q, want needs_sync", i, status)
		}
	}

	if got := f.notified.recorded(); len(got) != 1 {
		t.Errorf("notifications = %v, want a single needs_sync", got)
	}
}

func TestHouseholdStatusSelfHealsCache(t *testing.T) {
	f := setupRitualService(t)

	// A stale cached row claims the week finished.
	if _, err := f.weeks.Upsert(f.household.ID, testWeek, model.WeekCompleted); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	status, err := f.svc.HouseholdStatus(f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != model.WeekPending {
		t.Errorf("status = %q, want pending recomputed from rows", status)
	}

	cached, err := f.weeks.Get(f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("get cached row: %v", err)
	}
	if cached.Status != model.WeekPending {
		t.Errorf("cached = %q, want pending after heal", cached.Status)
	}
	if got := f.notified.recorded(); len(got) != 0 {
		t.Errorf("notifications = %v, want none for a downgrade", got)
	}
}

func TestSoloHouseholdCompletes(t *testing.T) {
	f := setupRitualService(t)

	solo, err := f.users.Create("cora@example.com", "Cora", "hash-c")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	household, err := f.households.Create("Solo Household", "SOLOCODE")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if _, err := f.households.AddMember(household.ID, solo.ID, "parent", model.SlotParentA); err != nil {
		t.Fatalf("add member: %v", err)
	}

	if _, err := f.svc.Apply(solo.ID, household.ID, testWeek, AdvanceStep{Step: model.StepReady}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := f.svc.Apply(solo.ID, household.ID, testWeek, CompleteRitual{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	status, err := f.svc.HouseholdStatus(household.ID, testWeek)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != model.WeekCompleted {
		t.Errorf("status = %q, want completed for a one-member household", status)
	}

	got := f.notified.recorded()
	if len(got) != 1 || got[0] != model.WeekCompleted {
		t.Errorf("notifications = %v, want a single completed", got)
	}
}
