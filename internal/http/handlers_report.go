package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/storage"
)

// handleExpenseReport streams a PDF report. A comma separated ?months=
// list ("2025-11,2025-10") selects specific months; without it every
// month with expenses is included.
func (s *Server) handleExpenseReport(w http.ResponseWriter, r *http.Request, user *storage.User) {
	expenses, err := s.store.ListExpenses(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	var months []core.MonthKey
	if raw := strings.TrimSpace(r.URL.Query().Get("months")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key := core.MonthKey(part)
			if key.Time().IsZero() {
				respondError(w, http.StatusBadRequest, "invalid month "+part+", want yyyy-MM")
				return
			}
			months = append(months, key)
		}
	}

	rep := report.Build(user.Name, expenses, s.local.Recurring(), months, time.Now())

	var buf bytes.Buffer
	if err := report.RenderPDF(&buf, rep); err != nil {
		respondDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Expense report generated",
		"user_id", user.ID,
		"sections", len(rep.Sections),
		"bytes", buf.Len())

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="expense-report.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
