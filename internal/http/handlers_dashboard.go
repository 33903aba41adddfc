package http

import (
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const trendMonths = 6

type categoryRow struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Paise    int64  `json:"paise"`
}

type trendRow struct {
	Month string `json:"month"`
	Label string `json:"label"`
	Paise int64  `json:"paise"`
}

type dashboardResponse struct {
	CycleStart      string        `json:"cycle_start"`
	CycleEnd        string        `json:"cycle_end"`
	Salary          string        `json:"salary"`
	ExtraIncome     string        `json:"extra_income"`
	CycleExpenses   string        `json:"cycle_expenses"`
	RecurringTotal  string        `json:"recurring_total"`
	Remaining       string        `json:"remaining"`
	RemainingPaise  int64         `json:"remaining_paise"`
	SavingsRate     float64       `json:"savings_rate"`
	AllTimeExpenses string        `json:"all_time_expenses"`
	ByCategory      []categoryRow `json:"by_category"`
	Trend           []trendRow    `json:"trend"`
}

// handleDashboard returns the current budget-cycle overview: window
// bounds, spend against salary plus extra income, category breakdown and
// a six month trend. Loading the dashboard also triggers the
// previous-month savings snapshot check.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user *storage.User) {
	s.triggerSnapshotCheck(r, user)

	now := time.Now()
	cycle := budget.CycleWindow(now, user.Config.RenewalDay)

	key := "overview:" + user.ID + ":" + cycle.Start.Format("2006-01-02")
	if cached, ok := s.overviewCache.Get(key); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	expenses, err := s.store.ListExpenses(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	incomes, err := s.store.ListIncomes(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	recurring := s.local.Recurring()

	cycleExpenses := budget.CycleExpenses(expenses, cycle)
	expenseTotal := budget.Total(cycleExpenses)
	recurringTotal := budget.RecurringTotal(recurring)

	var extraIncome core.Money
	for _, in := range budget.CycleIncomes(incomes, cycle) {
		extraIncome = extraIncome.Add(in.Amount)
	}

	totalIncome := user.Config.Salary.Add(extraIncome)
	remaining := totalIncome.Sub(expenseTotal).Sub(recurringTotal)

	var savingsRate float64
	if totalIncome.Paise > 0 {
		savingsRate = float64(remaining.Paise) / float64(totalIncome.Paise)
	}

	byCategory := make([]categoryRow, 0)
	breakdown := budget.CategoryBreakdown(cycleExpenses)
	for _, cat := range core.Categories() {
		if total, ok := breakdown[cat]; ok {
			byCategory = append(byCategory, categoryRow{
				Category: string(cat),
				Amount:   total.String(),
				Paise:    total.Paise,
			})
		}
	}

	trend := make([]trendRow, 0, trendMonths)
	for _, p := range budget.MonthlyTrend(expenses, now, trendMonths) {
		trend = append(trend, trendRow{
			Month: string(p.Month),
			Label: p.Label,
			Paise: p.Total.Paise,
		})
	}

	resp := dashboardResponse{
		CycleStart:      cycle.Start.Format("2006-01-02"),
		CycleEnd:        cycle.End.Format("2006-01-02"),
		Salary:          user.Config.Salary.String(),
		ExtraIncome:     extraIncome.String(),
		CycleExpenses:   expenseTotal.String(),
		RecurringTotal:  recurringTotal.String(),
		Remaining:       remaining.String(),
		RemainingPaise:  remaining.Paise,
		SavingsRate:     savingsRate,
		AllTimeExpenses: budget.Total(expenses).String(),
		ByCategory:      byCategory,
		Trend:           trend,
	}

	s.overviewCache.Set(key, resp)
	respondJSON(w, http.StatusOK, resp)
}

// triggerSnapshotCheck hands the check to the worker when a broker is
// wired, otherwise generates inline. Either way dashboard rendering is
// never blocked by a snapshot failure.
func (s *Server) triggerSnapshotCheck(r *http.Request, user *storage.User) {
	ctx := r.Context()

	if s.publisher != nil {
		if err := s.publisher.PublishSnapshotCheck(ctx, user.ID); err != nil {
			slog.WarnContext(ctx, "Snapshot check publish failed, generating inline",
				"error", err, "user_id", user.ID)
		} else {
			return
		}
	}

	expenses, err := s.store.ListExpenses(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Snapshot check skipped", "error", err, "user_id", user.ID)
		return
	}
	if _, err := s.generator.EnsureSnapshot(ctx, user.ID, user.Config.Salary, expenses, user.CreatedAt, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Snapshot generation failed", "error", err, "user_id", user.ID)
	}
}

type savingResponse struct {
	ID          string  `json:"id"`
	Month       string  `json:"month"`
	Year        int     `json:"year"`
	Income      string  `json:"income"`
	Expenses    string  `json:"expenses"`
	Saved       string  `json:"saved"`
	SavedPaise  int64   `json:"saved_paise"`
	SavingsRate float64 `json:"savings_rate"`
}

func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request, user *storage.User) {
	savings, err := s.store.ListMonthlySavings(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]savingResponse, 0, len(savings))
	for _, sv := range savings {
		out = append(out, savingResponse{
			ID:          sv.ID,
			Month:       string(sv.Month),
			Year:        sv.Year,
			Income:      sv.Income.String(),
			Expenses:    sv.Expenses.String(),
			Saved:       sv.Saved.String(),
			SavedPaise:  sv.Saved.Paise,
			SavingsRate: sv.SavingsRate,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSaving(w http.ResponseWriter, r *http.Request, user *storage.User) {
	if err := s.store.DeleteMonthlySaving(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
