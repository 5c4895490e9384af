package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts a clock string to minutes after midnight. Both
// 12-hour forms ("9:30 AM", "12:05pm") and 24-hour forms ("14:00") are
// accepted; the meridiem is case-insensitive and the space before it
// optional.
func ParseClock(s string) (int, error) {
	orig := s
	s = strings.ToUpper(strings.TrimSpace(s))

	var meridiem string
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("parse clock %q: missing colon", orig)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: bad hour", orig)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: bad minute", orig)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("parse clock %q: minute out of range", orig)
	}

	switch meridiem {
	case "AM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("parse clock %q: hour out of range", orig)
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("parse clock %q: hour out of range", orig)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return 0, fmt.Errorf("parse clock %q: hour out of range", orig)
		}
	}

	return hour*60 + minute, nil
}

// FormatMinutes renders minutes after midnight in the 12-hour form the
// app displays, e.g. 570 -> "9:30 AM". Values past midnight wrap.
func FormatMinutes(m int) string {
	m %= 24 * 60
	if m < 0 {
		m += 24 * 60
	}
	hour, minute := m/60, m%60
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, minute, meridiem)
}

func formatRange(start, end int) string {
	return FormatMinutes(start) + " - " + FormatMinutes(end)
}
