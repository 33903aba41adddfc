// Package budget implements the budget-cycle engine: cycle-window
// resolution, aggregation over expenses and incomes, the interactive
// expense filter, and the monthly-savings snapshot generator.
package budget

import (
	"time"

	"fintrack/internal/core"
)

// Cycle is the user's personal monthly budgeting window. Start is the
// renewal day at midnight, End the last instant before the next cycle
// begins. Both bounds are inclusive.
type Cycle struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the cycle.
func (c Cycle) Contains(t time.Time) bool {
	return !t.Before(c.Start) && !t.After(c.End)
}

// CycleWindow resolves the budget cycle containing today for the given
// renewal day.
//
// When today's day-of-month has reached the renewal day the cycle started
// this month, otherwise it started the month before. A renewal day past the
// end of a month clamps to that month's last day; the comparison against
// today uses the clamped day, so consecutive cycles tile the calendar with
// no gap or overlap (every date belongs to exactly one cycle). The window
// ends the instant before the next cycle's clamped start.
func CycleWindow(today time.Time, renewalDay int) Cycle {
	if renewalDay < 1 {
		renewalDay = 1
	}
	if renewalDay > 31 {
		renewalDay = 31
	}

	year, month, day := today.Date()
	loc := today.Location()

	startYear, startMonth := year, month
	if day < clampDay(year, month, renewalDay) {
		startYear, startMonth = prevMonth(year, month)
	}

	start := time.Date(startYear, startMonth, clampDay(startYear, startMonth, renewalDay), 0, 0, 0, 0, loc)

	nextYear, nextMonth := nextMonthOf(startYear, startMonth)
	nextStart := time.Date(nextYear, nextMonth, clampDay(nextYear, nextMonth, renewalDay), 0, 0, 0, 0, loc)

	return Cycle{Start: start, End: nextStart.Add(-time.Nanosecond)}
}

// CycleExpenses returns the expenses whose date falls within the cycle.
func CycleExpenses(expenses []core.Expense, c Cycle) []core.Expense {
	var out []core.Expense
	for _, e := range expenses {
		if c.Contains(e.Date.Time) {
			out = append(out, e)
		}
	}
	return out
}

// CycleIncomes returns the one-off incomes dated within the cycle.
func CycleIncomes(incomes []core.Income, c Cycle) []core.Income {
	var out []core.Income
	for _, in := range incomes {
		if c.Contains(in.Date.Time) {
			out = append(out, in)
		}
	}
	return out
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampDay limits day to the actual length of the month.
func clampDay(year int, month time.Month, day int) int {
	if last := daysIn(year, month); day > last {
		return last
	}
	return day
}

func prevMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

func nextMonthOf(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}
