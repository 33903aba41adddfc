package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type expenseRequest struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Receipt     string `json:"receipt,omitempty"`
	ReceiptName string `json:"receipt_name,omitempty"`
}

type expenseResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	AmountPaise int64  `json:"amount_paise"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CreatedAt   string `json:"created_at"`
	ReceiptName string `json:"receipt_name,omitempty"`
	HasReceipt  bool   `json:"has_receipt"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Amount:      e.Amount.String(),
		AmountPaise: e.Amount.Paise,
		Category:    string(e.Category),
		Description: e.Description,
		Date:        e.Date.String(),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		ReceiptName: e.ReceiptName,
		HasReceipt:  e.Receipt != "",
	}
}

func (r expenseRequest) toExpense(userID string) (core.Expense, error) {
	amount, err := core.ParseAmount(r.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		UserID:      userID,
		Amount:      amount,
		Category:    core.Category(sanitizeInput(r.Category)),
		Description: sanitizeInput(r.Description),
		Date:        date,
		Receipt:     r.Receipt,
		ReceiptName: sanitizeInput(r.ReceiptName),
	}
	return e, e.Validate()
}

// handleListExpenses returns the user's expenses after applying the
// interactive filter parameters: from, to, category and q.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, user *storage.User) {
	expenses, err := s.store.ListExpenses(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	query := r.URL.Query()
	filter := budget.Filter{
		From:     query.Get("from"),
		To:       query.Get("to"),
		Category: query.Get("category"),
		Search:   query.Get("q"),
	}
	filtered := filter.Apply(expenses)

	out := make([]expenseResponse, 0, len(filtered))
	for _, e := range filtered {
		out = append(out, toExpenseResponse(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, user *storage.User) {
	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expense, err := req.toExpense(user.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	expense.ID = uuid.NewString()
	expense.CreatedAt = time.Now().UTC()

	if err := s.store.CreateExpense(r.Context(), expense); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, user *storage.User) {
	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expense, err := req.toExpense(user.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	expense.ID = r.PathValue("id")

	if err := s.store.UpdateExpense(r.Context(), expense); err != nil {
		respondDomainError(w, r, err)
		return
	}

	// re-read so the response carries the row's original created_at
	updated, err := s.store.GetExpense(r.Context(), user.ID, expense.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusOK, toExpenseResponse(*updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, user *storage.User) {
	if err := s.store.DeleteExpense(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard(user.ID)
	w.WriteHeader(http.StatusNoContent)
}
