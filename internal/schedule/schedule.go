package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Day is one weekday's window in an agent schedule. Open and Close are local
// times in HH:MM.
type Day struct {
	Enabled bool   `json:"enabled"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

// Weekly maps lowercase weekday names to their windows. Missing days count
// as disabled.
type Weekly map[string]Day

// InWindow reports whether now falls inside the schedule in the given IANA
// timezone. The window is half-open: a time exactly at Close is outside.
// Conversion goes through the real zone database so DST transitions resolve
// correctly; nothing is cached between calls.
func InWindow(week Weekly, timezone string, now time.Time) (bool, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil {
		return false, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	local := now.In(loc)

	day, ok := week[strings.ToLower(local.Weekday().String())]
	if !ok || !day.Enabled {
		return false, nil
	}

	open, err := parseClock(day.Open)
	if err != nil {
		return false, fmt.Errorf("parse open time: %w", err)
	}
	closeAt, err := parseClock(day.Close)
	if err != nil {
		return false, fmt.Errorf("parse close time: %w", err)
	}

	minute := local.Hour()*60 + local.Minute()
	return minute >= open && minute < closeAt, nil
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(value string) (int, error) {
	value = strings.TrimSpace(value)
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", value, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", value)
	}
	return h*60 + m, nil
}
