package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type incomeRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type incomeResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	AmountPaise int64  `json:"amount_paise"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CreatedAt   string `json:"created_at"`
}

func toIncomeResponse(in core.Income) incomeResponse {
	return incomeResponse{
		ID:          in.ID,
		Amount:      in.Amount.String(),
		AmountPaise: in.Amount.Paise,
		Description: in.Description,
		Date:        in.Date.String(),
		CreatedAt:   in.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request, user *storage.User) {
	incomes, err := s.store.ListIncomes(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]incomeResponse, 0, len(incomes))
	for _, in := range incomes {
		out = append(out, toIncomeResponse(in))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request, user *storage.User) {
	var req incomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	income := core.Income{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Date:        date,
		CreatedAt:   time.Now().UTC(),
	}
	if err := income.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := s.store.CreateIncome(r.Context(), income); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusCreated, toIncomeResponse(income))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request, user *storage.User) {
	if err := s.store.DeleteIncome(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard(user.ID)
	w.WriteHeader(http.StatusNoContent)
}
