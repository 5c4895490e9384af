package ritual

// Action is one user-scoped ritual mutation. The concrete types below
// form a closed set; Service.Apply rejects anything else. Every action
// is scoped to the acting user's own row.
type Action interface {
	actionName() string
}

// AdvanceStep moves forward to the given step. Targets at or behind
// the current step are a no-op, which makes duplicate requests safe.
type AdvanceStep struct {
	Step int
}

// RetreatStep moves back to the given step. Dropping below the final
// step clears any completion stamp.
type RetreatStep struct {
	Step int
}

// TogglePrepItem flips one checklist flag. Unknown item IDs are
// created on first toggle since the checklist is generated from each
// week's analysis.
type TogglePrepItem struct {
	ItemID string
}

// SetDecision records or clears the acting user's call on a conflict.
// A nil Resolution clears the decision; any text resolves with it.
type SetDecision struct {
	ConflictID string
	Resolution *string
}

// CompleteRitual stamps the completion time. Only valid on the final
// step; replaying keeps the original timestamp.
type CompleteRitual struct{}

// ResetWeek deletes the user's row for the week entirely. Step, prep
// items, and decisions all go together.
type ResetWeek struct{}

func (AdvanceStep) actionName() string    { return "advance_step" }
func (RetreatStep) actionName() string    { return "retreat_step" }
func (TogglePrepItem) actionName() string { return "toggle_prep_item" }
func (SetDecision) actionName() string    { return "set_decision" }
func (CompleteRitual) actionName() string { return "complete_ritual" }
func (ResetWeek) actionName() string      { return "reset_week" }
