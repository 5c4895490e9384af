package schedule

import "fmt"

// busyHandoffCount is the total handoffs per week above which the prep
// list adds an explicit handoff-confirmation item.
const busyHandoffCount = 4

// PrepItem is one suggested checklist entry for the ritual's prep step.
type PrepItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// SuggestPrepItems builds the prep checklist from an analysis. Item IDs
// are deterministic so a regenerated list lines up with completion
// flags already recorded for the week.
func SuggestPrepItems(a Analysis) []PrepItem {
	items := []PrepItem{
		{ID: "review-week", Label: "Look over the full week together"},
	}

	seen := make(map[Day]bool)
	for _, c := range a.Conflicts {
		if seen[c.Day] {
			continue
		}
		seen[c.Day] = true
		items = append(items, PrepItem{
			ID:    "resolve-" + string(c.Day),
			Label: fmt.Sprintf("Settle %s's schedule conflicts", c.Day.Name()),
		})
	}

	if a.Summary.TravelDays > 0 {
		items = append(items, PrepItem{ID: "pack-travel", Label: "Pack and prep for travel days"})
	}
	if a.Balance.ParentA.Handoffs+a.Balance.ParentB.Handoffs >= busyHandoffCount {
		items = append(items, PrepItem{ID: "confirm-handoffs", Label: "Confirm pickup and dropoff handoffs"})
	}
	if a.Summary.Intensity == Heavy || a.Summary.Intensity == Intense {
		items = append(items, PrepItem{ID: "plan-meals", Label: "Plan easy meals for the busy stretch"})
	}
	return items
}
