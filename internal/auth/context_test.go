package auth

import (
	"context"
	"testing"

	"github.com/prime3679/family-os-sub001/internal/model"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := Context{
		UserID:      1,
		HouseholdID: 2,
		PartnerID:   3,
		Slot:        model.SlotParentA,
		Role:        "parent",
		SessionID:   4,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected auth context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.HouseholdID != 2 {
		t.Errorf("HouseholdID = %d, want 2", got.HouseholdID)
	}
	if got.PartnerID != 3 {
		t.Errorf("PartnerID = %d, want 3", got.PartnerID)
	}
	if got.Slot != model.SlotParentA {
		t.Errorf("Slot = %q, want %q", got.Slot, model.SlotParentA)
	}
	if got.SessionID != 4 {
		t.Errorf("SessionID = %d, want 4", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected false for missing auth context")
	}
}

func TestAccessorsMissingContext(t *testing.T) {
	ctx := context.Background()
	if UserID(ctx) != 0 {
		t.Errorf("UserID = %d, want 0", UserID(ctx))
	}
	if HouseholdID(ctx) != 0 {
		t.Errorf("HouseholdID = %d, want 0", HouseholdID(ctx))
	}
	if PartnerID(ctx) != 0 {
		t.Errorf("PartnerID = %d, want 0", PartnerID(ctx))
	}
}

func TestHasPartner(t *testing.T) {
	solo := WithAuth(context.Background(), Context{UserID: 1})
	if HasPartner(solo) {
		t.Error("expected no partner before anyone joins")
	}

	paired := WithAuth(context.Background(), Context{UserID: 1, PartnerID: 2})
	if !HasPartner(paired) {
		t.Error("expected a partner")
	}
}
