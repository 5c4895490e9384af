package schedule

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

type ConflictKind string

const (
	KindOverlap   ConflictKind = "overlap"
	KindLogistics ConflictKind = "logistics"
	KindCoverage  ConflictKind = "coverage"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Conflict is one detected scheduling issue. The ID is derived from the
// conflict's day, kind, time window, and participants, so two analyses
// of the same events agree on it without coordination.
type Conflict struct {
	ID        string       `json:"id"`
	Day       Day          `json:"day"`
	TimeRange string       `json:"time_range"`
	Kind      ConflictKind `json:"kind"`
	Severity  Severity     `json:"severity"`
	Events    []string     `json:"events"`
	Context   string       `json:"context"`
	Question  string       `json:"question,omitempty"`
}

type Intensity string

const (
	Light    Intensity = "light"
	Moderate Intensity = "moderate"
	Heavy    Intensity = "heavy"
	Intense  Intensity = "intense"
)

type WeekSummary struct {
	TotalEvents      int       `json:"total_events"`
	KidsEvents       int       `json:"kids_events"`
	WorkEvents       int       `json:"work_events"`
	PersonalEvents   int       `json:"personal_events"`
	HeaviestDay      Day       `json:"heaviest_day,omitempty"`
	HeaviestDayCount int       `json:"heaviest_day_count"`
	SoloDays         int       `json:"solo_days"`
	TravelDays       int       `json:"travel_days"`
	Intensity        Intensity `json:"intensity"`
}

// ParentTally counts one parent's individually-owned load. Shared
// events never appear here; they only count toward the week totals.
type ParentTally struct {
	Events   int `json:"events"`
	Kids     int `json:"kids"`
	Work     int `json:"work"`
	Personal int `json:"personal"`
	Handoffs int `json:"handoffs"`
	SoloDays int `json:"solo_days"`
}

type BalanceLabel string

const (
	Balanced        BalanceLabel = "balanced"
	SlightImbalance BalanceLabel = "slight-imbalance"
	Imbalanced      BalanceLabel = "imbalanced"
)

// BalanceResult scores how the week's individually-owned events split
// between the parents. 50 is a perfectly even week; the score tracks
// parent A's share of the pair's combined events.
type BalanceResult struct {
	Score   int          `json:"score"`
	Label   BalanceLabel `json:"label"`
	ParentA ParentTally  `json:"parent_a"`
	ParentB ParentTally  `json:"parent_b"`
}

type Analysis struct {
	Conflicts []Conflict    `json:"conflicts"`
	Summary   WeekSummary   `json:"summary"`
	Balance   BalanceResult `json:"balance"`
}

// tightHandoffMinutes is the buffer below which a kid handoff between
// different parents counts as a logistics crunch.
const tightHandoffMinutes = 30

var travelKeywords = []string{"travel", "trip", "flight", "airport", "out of town"}

// Analyze runs conflict detection, the week summary, and the balance
// computation over one week's events. It is pure: the same events, in
// any input order, produce identical output down to the conflict IDs.
func Analyze(events []Event) Analysis {
	byDay := groupByDay(events)
	return Analysis{
		Conflicts: detectConflicts(byDay),
		Summary:   summarize(byDay),
		Balance:   balanceOf(byDay),
	}
}

func groupByDay(events []Event) map[Day][]Event {
	byDay := make(map[Day][]Event, len(weekOrder))
	for _, ev := range events {
		byDay[ev.Day] = append(byDay[ev.Day], ev)
	}
	for _, day := range weekOrder {
		sortDay(byDay[day])
	}
	return byDay
}

func sortDay(evs []Event) {
	sort.Slice(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.ID < b.ID
	})
}

func detectConflicts(byDay map[Day][]Event) []Conflict {
	conflicts := []Conflict{}
	for _, day := range weekOrder {
		evs := byDay[day]
		if len(evs) == 0 {
			continue
		}
		conflicts = append(conflicts, overlapConflicts(day, evs)...)
		conflicts = append(conflicts, logisticsConflicts(day, evs)...)
		if c, ok := coverageConflict(day, evs); ok {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts
}

func overlapConflicts(day Day, evs []Event) []Conflict {
	var out []Conflict
	for i := 0; i < len(evs); i++ {
		for j := i + 1; j < len(evs); j++ {
			a, b := evs[i], evs[j]
			if !a.Owner.Individual() || !b.Owner.Individual() || a.Owner == b.Owner {
				continue
			}
			if a.Start >= b.End || b.Start >= a.End {
				continue
			}
			start := max(a.Start, b.Start)
			end := min(a.End, b.End)
			out = append(out, Conflict{
				ID:        conflictID(day, KindOverlap, start, end, a.Owner, b.Owner),
				Day:       day,
				TimeRange: formatRange(start, end),
				Kind:      KindOverlap,
				Severity:  SeverityHigh,
				Events:    []string{a.Title, b.Title},
				Context:   fmt.Sprintf("%s and %s run at the same time on %s.", a.Title, b.Title, day.Name()),
				Question:  "Who covers which, or can one move?",
			})
		}
	}
	return out
}

func logisticsConflicts(day Day, evs []Event) []Conflict {
	var out []Conflict
	for i := 1; i < len(evs); i++ {
		prev, next := evs[i-1], evs[i]
		if prev.Category != Kids {
			continue
		}
		if !prev.Owner.Individual() || !next.Owner.Individual() || prev.Owner == next.Owner {
			continue
		}
		gap := next.Start - prev.End
		if gap < 0 || gap >= tightHandoffMinutes {
			continue
		}
		out = append(out, Conflict{
			ID:        conflictID(day, KindLogistics, prev.End, next.Start, prev.Owner, next.Owner),
			Day:       day,
			TimeRange: formatRange(prev.End, next.Start),
			Kind:      KindLogistics,
			Severity:  SeverityMedium,
			Events:    []string{prev.Title, next.Title},
			Context:   fmt.Sprintf("%s ends at %s and %s starts at %s on %s.", prev.Title, FormatMinutes(prev.End), next.Title, next.Time, day.Name()),
			Question:  fmt.Sprintf("Is %d minutes enough for the handoff?", gap),
		})
	}
	return out
}

func coverageConflict(day Day, evs []Event) (Conflict, bool) {
	var kidTitles []string
	var owners []Owner
	for _, ev := range evs {
		if ev.Category == Kids {
			kidTitles = append(kidTitles, ev.Title)
			owners = append(owners, ev.Owner)
		}
	}
	if len(kidTitles) == 0 {
		return Conflict{}, false
	}
	availA, availB := availableParents(evs)
	if availA || availB {
		return Conflict{}, false
	}
	return Conflict{
		ID:        conflictID(day, KindCoverage, 0, 24*60, owners...),
		Day:       day,
		TimeRange: "all day",
		Kind:      KindCoverage,
		Severity:  SeverityHigh,
		Events:    kidTitles,
		Context:   fmt.Sprintf("%s has kid coverage to arrange but neither parent has an open day.", day.Name()),
		Question:  fmt.Sprintf("Who covers %s?", day.Name()),
	}, true
}

// conflictID derives a stable identifier from what the conflict is
// about rather than when it was computed. Owners are deduplicated and
// sorted so participant order never matters.
func conflictID(day Day, kind ConflictKind, start, end int, owners ...Owner) string {
	parts := make([]string, 0, len(owners))
	seen := make(map[Owner]bool, len(owners))
	for _, o := range owners {
		if !seen[o] {
			seen[o] = true
			parts = append(parts, string(o))
		}
	}
	sort.Strings(parts)
	seed := fmt.Sprintf("%s|%s|%d|%d|%s", day, kind, start, end, strings.Join(parts, "+"))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

// availableParents reports whether each parent has a full-day opening:
// no work events of their own, and no shared work events, that day.
func availableParents(evs []Event) (a, b bool) {
	a, b = true, true
	for _, ev := range evs {
		if ev.Category != Work {
			continue
		}
		switch ev.Owner {
		case ParentA:
			a = false
		case ParentB:
			b = false
		case Both:
			a, b = false, false
		}
	}
	return a, b
}

func summarize(byDay map[Day][]Event) WeekSummary {
	var s WeekSummary
	for _, day := range weekOrder {
		evs := byDay[day]
		if len(evs) == 0 {
			continue
		}
		s.TotalEvents += len(evs)
		travel := false
		for _, ev := range evs {
			switch ev.Category {
			case Kids:
				s.KidsEvents++
			case Work:
				s.WorkEvents++
			case Personal:
				s.PersonalEvents++
			}
			if !travel && isTravel(ev.Title) {
				travel = true
			}
		}
		if travel {
			s.TravelDays++
		}
		if len(evs) > s.HeaviestDayCount {
			s.HeaviestDay, s.HeaviestDayCount = day, len(evs)
		}
		availA, availB := availableParents(evs)
		if availA != availB {
			s.SoloDays++
		}
	}
	s.Intensity = intensityOf(s.TotalEvents)
	return s
}

func intensityOf(total int) Intensity {
	switch {
	case total <= 5:
		return Light
	case total <= 12:
		return Moderate
	case total <= 20:
		return Heavy
	default:
		return Intense
	}
}

func balanceOf(byDay map[Day][]Event) BalanceResult {
	var a, b ParentTally
	for _, day := range weekOrder {
		evs := byDay[day]
		for _, ev := range evs {
			var t *ParentTally
			switch ev.Owner {
			case ParentA:
				t = &a
			case ParentB:
				t = &b
			default:
				continue
			}
			t.Events++
			switch ev.Category {
			case Kids:
				t.Kids++
			case Work:
				t.Work++
			case Personal:
				t.Personal++
			}
		}
		// Handoffs: consecutive events passing between the two parents.
		// A shared event on either side of the pair breaks the chain.
		for i := 1; i < len(evs); i++ {
			prev, next := evs[i-1], evs[i]
			if !prev.Owner.Individual() || !next.Owner.Individual() || prev.Owner == next.Owner {
				continue
			}
			if prev.Owner == ParentA {
				a.Handoffs++
			} else {
				b.Handoffs++
			}
		}
		availA, availB := availableParents(evs)
		switch {
		case availA && !availB:
			a.SoloDays++
		case availB && !availA:
			b.SoloDays++
		}
	}

	score := 50
	if a.Events+b.Events > 0 {
		// Round-half-to-even keeps the score an exact mirror under an
		// owner swap: score(A<->B) == 100 - score.
		score = int(math.RoundToEven(float64(a.Events*100) / float64(a.Events+b.Events)))
	}
	return BalanceResult{Score: score, Label: labelFor(score), ParentA: a, ParentB: b}
}

func labelFor(score int) BalanceLabel {
	deviation := score - 50
	if deviation < 0 {
		deviation = -deviation
	}
	switch {
	case deviation > 25:
		return Imbalanced
	case deviation > 10:
		return SlightImbalance
	default:
		return Balanced
	}
}

func isTravel(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range travelKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
