package ritual

import (
	"fmt"

	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/schedule"
	"github.com/prime3679/family-os-sub001/internal/week"
)

// WeekAnalysis bundles the analyzer's output with the suggested prep
// checklist for one household week.
type WeekAnalysis struct {
	Week week.Key `json:"week"`
	schedule.Analysis
	PrepItems []schedule.PrepItem `json:"prep_items"`
}

// AnalyzeWeek loads the stored calendar for the week and runs the
// conflict and balance analysis over it. Stored rows were validated on
// write, so a normalization failure here means corrupt data, not bad
// input.
func (s *Service) AnalyzeWeek(householdID int64, wk week.Key) (*WeekAnalysis, error) {
	rows, err := s.events.ListWeek(householdID, wk)
	if err != nil {
		return nil, err
	}

	events, err := schedule.NormalizeAll(rawEntries(rows))
	if err != nil {
		return nil, fmt.Errorf("normalize stored events: %w", err)
	}

	analysis := schedule.Analyze(events)
	return &WeekAnalysis{
		Week:      wk,
		Analysis:  analysis,
		PrepItems: schedule.SuggestPrepItems(analysis),
	}, nil
}

func rawEntries(rows []model.WeekEvent) []schedule.RawEntry {
	entries := make([]schedule.RawEntry, len(rows))
	for i, row := range rows {
		entries[i] = schedule.RawEntry{
			ID:              fmt.Sprintf("evt-%d", row.ID),
			Day:             row.Day,
			Time:            row.Time,
			DurationMinutes: row.DurationMinutes,
			Owner:           row.Owner,
			Category:        row.Category,
			Title:           row.Title,
			Calendar:        row.Calendar,
		}
	}
	return entries
}
