// Package report builds printable monthly summaries and renders them to
// PDF.
package report

import (
	"sort"
	"time"

	"fintrack/internal/budget"
	"fintrack/internal/core"
)

// CategoryLine is one category's share of a month's spending.
type CategoryLine struct {
	Category core.Category
	Total    core.Money
}

// MonthSection is the report content for one calendar month. Recurring
// obligations count toward GrandTotal but are listed separately from the
// month's transactions.
type MonthSection struct {
	Month          core.MonthKey
	Title          string
	Transactions   []core.Expense
	TransactionSum core.Money
	RecurringSum   core.Money
	GrandTotal     core.Money
	Breakdown      []CategoryLine
}

// Report is a rendered-ready set of month sections, newest first.
type Report struct {
	UserName    string
	GeneratedAt time.Time
	Sections    []MonthSection
}

// Build assembles sections for the requested months. An empty months
// slice selects every month that has at least one expense. Months with
// no expenses still render when explicitly requested; recurring sums
// apply to every section.
func Build(userName string, expenses []core.Expense, recurring []core.RecurringExpense, months []core.MonthKey, now time.Time) Report {
	grouped := budget.GroupByMonth(expenses)
	recurringSum := budget.RecurringTotal(recurring)

	if len(months) == 0 {
		for month := range grouped {
			months = append(months, month)
		}
	}
	// newest first, dedup
	seen := make(map[core.MonthKey]bool, len(months))
	uniq := months[:0]
	for _, m := range months {
		if !seen[m] {
			seen[m] = true
			uniq = append(uniq, m)
		}
	}
	months = uniq
	sort.Slice(months, func(i, j int) bool { return months[i] > months[j] })

	sections := make([]MonthSection, 0, len(months))
	for _, month := range months {
		monthExpenses := grouped[month]
		sort.SliceStable(monthExpenses, func(i, j int) bool {
			return monthExpenses[i].Date.Time.Before(monthExpenses[j].Date.Time)
		})

		txSum := budget.Total(monthExpenses)
		breakdown := sortedBreakdown(budget.CategoryBreakdown(monthExpenses))

		sections = append(sections, MonthSection{
			Month:          month,
			Title:          month.Time().Format("January 2006"),
			Transactions:   monthExpenses,
			TransactionSum: txSum,
			RecurringSum:   recurringSum,
			GrandTotal:     txSum.Add(recurringSum),
			Breakdown:      breakdown,
		})
	}

	return Report{
		UserName:    userName,
		GeneratedAt: now,
		Sections:    sections,
	}
}

// sortedBreakdown orders categories by descending total, ties by name.
func sortedBreakdown(byCat map[core.Category]core.Money) []CategoryLine {
	lines := make([]CategoryLine, 0, len(byCat))
	for cat, total := range byCat {
		lines = append(lines, CategoryLine{Category: cat, Total: total})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Total.Paise != lines[j].Total.Paise {
			return lines[i].Total.Paise > lines[j].Total.Paise
		}
		return lines[i].Category < lines[j].Category
	})
	return lines
}
