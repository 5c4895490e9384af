package auth

import (
	"context"

	"github.com/prime3679/family-os-sub001/internal/model"
)

type contextKey struct{}

// Context carries the authenticated request identity: the acting user,
// their household and parent slot, and the partner's user id, which
// stays 0 until a second member joins.
type Context struct {
	UserID      int64
	HouseholdID int64
	PartnerID   int64
	Slot        model.MemberSlot
	Role        string
	SessionID   int64
}

func WithAuth(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(contextKey{}).(Context)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func HouseholdID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.HouseholdID
}

func PartnerID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.PartnerID
}

// HasPartner reports whether a second member has joined the household.
func HasPartner(ctx context.Context) bool {
	return PartnerID(ctx) != 0
}
