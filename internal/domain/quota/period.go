package quota

import (
	"time"
)

// ResetPeriod represents the calendar window after which a quota counter
// starts over
type ResetPeriod string

const (
	// ResetPeriodDaily resets usage at the start of each day
	ResetPeriodDaily ResetPeriod = "DAILY"

	// ResetPeriodWeekly resets usage at the start of each ISO week (Monday)
	ResetPeriodWeekly ResetPeriod = "WEEKLY"

	// ResetPeriodMonthly resets usage on the first day of each month
	ResetPeriodMonthly ResetPeriod = "MONTHLY"
)

// String returns the string representation of ResetPeriod
func (r ResetPeriod) String() string {
	return string(r)
}

// IsValid returns true if the reset period is valid
func (r ResetPeriod) IsValid() bool {
	switch r {
	case ResetPeriodDaily, ResetPeriodWeekly, ResetPeriodMonthly:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the reset period
func (r ResetPeriod) DisplayName() string {
	switch r {
	case ResetPeriodDaily:
		return "Daily"
	case ResetPeriodWeekly:
		return "Weekly"
	case ResetPeriodMonthly:
		return "Monthly"
	default:
		return string(r)
	}
}

// periodFloor maps each reset period to a pure calendar-floor function.
// Dispatch goes through this table rather than methods on separate types so
// that adding a period is a single entry.
var periodFloor = map[ResetPeriod]func(t time.Time) time.Time{
	ResetPeriodDaily:   startOfDay,
	ResetPeriodWeekly:  startOfISOWeek,
	ResetPeriodMonthly: startOfMonth,
}

// PeriodBounds returns the calendar-aligned window containing now for the
// given reset period, in the given timezone. The start is inclusive, the
// end exclusive (exactly one period later). Pure calendar math, no state.
func (r ResetPeriod) PeriodBounds(now time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	floor, ok := periodFloor[r]
	if !ok {
		floor = startOfDay
	}
	start = floor(local)

	switch r {
	case ResetPeriodWeekly:
		end = start.AddDate(0, 0, 7)
	case ResetPeriodMonthly:
		end = start.AddDate(0, 1, 0)
	default:
		end = start.AddDate(0, 0, 1)
	}
	return start, end
}

// startOfDay returns midnight of t's day in t's location
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfISOWeek returns midnight of the Monday of t's ISO week
func startOfISOWeek(t time.Time) time.Time {
	day := startOfDay(t)
	// time.Weekday numbers Sunday as 0; ISO weeks start on Monday
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// startOfMonth returns midnight of the first day of t's month
func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
