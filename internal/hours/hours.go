// Package hours computes open/closed state from a weekly schedule.
package hours

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayHours is one day's entry in the weekly schedule. Open and Close are
// "HH:MM" in the outlet's local time.
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	IsOpen bool   `json:"is_open"`
}

// Schedule holds one entry per weekday, indexed by time.Weekday (0 = Sunday).
type Schedule [7]DayHours

// Evaluation is the result of checking a schedule against a timestamp.
type Evaluation struct {
	Open    bool   `json:"open"`
	Message string `json:"message"`
}

// Evaluate reports whether the outlet is open at now and builds a
// human-readable availability message. Comparison is at minute resolution
// over the half-open interval [open, close). Pure: wall clock only enters
// through the now parameter.
func Evaluate(sched Schedule, now time.Time) Evaluation {
	day := int(now.Weekday())
	today := sched[day]
	minute := now.Hour()*60 + now.Minute()

	if today.IsOpen {
		openMin, okOpen := parseClock(today.Open)
		closeMin, okClose := parseClock(today.Close)
		if okOpen && okClose && minute >= openMin && minute < closeMin {
			return Evaluation{
				Open:    true,
				Message: fmt.Sprintf("We're open until %s.", today.Close),
			}
		}
		// Before today's opening: the next open slot is still today.
		if okOpen && minute < openMin {
			return Evaluation{
				Open:    false,
				Message: fmt.Sprintf("We're closed right now. We open today at %s.", today.Open),
			}
		}
	}

	// Scan forward for the next open day, wrapping after a week.
	for offset := 1; offset <= 7; offset++ {
		entry := sched[(day+offset)%7]
		if !entry.IsOpen {
			continue
		}
		if _, ok := parseClock(entry.Open); !ok {
			continue
		}
		when := weekdayName(time.Weekday((day + offset) % 7))
		if offset == 1 {
			when = "tomorrow"
		}
		return Evaluation{
			Open:    false,
			Message: fmt.Sprintf("We're closed right now. We open %s at %s.", when, entry.Open),
		}
	}

	return Evaluation{
		Open:    false,
		Message: "We're closed until further notice.",
	}
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	min, err := strconv.Atoi(m)
	if err != nil || min < 0 || min > 59 {
		return 0, false
	}
	return hour*60 + min, true
}

func weekdayName(d time.Weekday) string {
	return "on " + d.String()
}
