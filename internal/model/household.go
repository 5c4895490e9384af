package model

import "time"

// MemberSlot identifies which side of the two-parent household a member
// occupies. Calendar event ownership and balance tallies refer to slots,
// not user IDs, so a week's analysis reads the same for both members.
type MemberSlot string

const (
	SlotParentA MemberSlot = "parent_a"
	SlotParentB MemberSlot = "parent_b"
)

type Household struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	JoinCode  string    `json:"join_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type HouseholdMember struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	UserID      int64      `json:"user_id"`
	Role        string     `json:"role"`
	Slot        MemberSlot `json:"slot"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
