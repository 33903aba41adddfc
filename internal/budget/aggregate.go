package budget

import (
	"time"

	"fintrack/internal/core"
)

// TrendPoint is one month of the spending trend series.
type TrendPoint struct {
	Month core.MonthKey
	Label string // short month name, e.g. "Nov"
	Total core.Money
}

// Total sums all expense amounts.
func Total(expenses []core.Expense) core.Money {
	var sum core.Money
	for _, e := range expenses {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// RecurringTotal sums fixed monthly obligations. The result counts toward
// every cycle regardless of explicit per-occurrence entries.
func RecurringTotal(recurring []core.RecurringExpense) core.Money {
	var sum core.Money
	for _, r := range recurring {
		sum = sum.Add(r.Amount)
	}
	return sum
}

// TotalForRange sums the amounts of expenses dated within [start, end]
// inclusive. An empty range sums to zero.
func TotalForRange(expenses []core.Expense, start, end time.Time) core.Money {
	var sum core.Money
	for _, e := range expenses {
		d := e.Date.Time
		if d.Before(start) || d.After(end) {
			continue
		}
		sum = sum.Add(e.Amount)
	}
	return sum
}

// CategoryBreakdown aggregates expense amounts per category. Categories
// absent from the input are omitted, not zero-filled.
func CategoryBreakdown(expenses []core.Expense) map[core.Category]core.Money {
	out := make(map[core.Category]core.Money)
	for _, e := range expenses {
		out[e.Category] = out[e.Category].Add(e.Amount)
	}
	return out
}

// GroupByMonth buckets expenses by the calendar month of their date field,
// never the creation timestamp.
func GroupByMonth(expenses []core.Expense) map[core.MonthKey][]core.Expense {
	out := make(map[core.MonthKey][]core.Expense)
	for _, e := range expenses {
		k := e.Date.Key()
		out[k] = append(out[k], e)
	}
	return out
}

// MonthlyTrend produces exactly monthCount entries for the most recent
// consecutive calendar months ending with now's month, in chronological
// order. Months without expenses appear with a zero total.
func MonthlyTrend(expenses []core.Expense, now time.Time, monthCount int) []TrendPoint {
	if monthCount <= 0 {
		return nil
	}
	byMonth := make(map[core.MonthKey]core.Money)
	for _, e := range expenses {
		k := e.Date.Key()
		byMonth[k] = byMonth[k].Add(e.Amount)
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(monthCount - 1), 0)
	points := make([]TrendPoint, 0, monthCount)
	for i := 0; i < monthCount; i++ {
		m := first.AddDate(0, i, 0)
		k := core.MonthKeyFor(m)
		points = append(points, TrendPoint{
			Month: k,
			Label: m.Format("Jan"),
			Total: byMonth[k],
		})
	}
	return points
}
