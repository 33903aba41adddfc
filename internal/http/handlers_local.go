package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Recurring expenses and saved labels live in the device-local store, so
// these handlers never touch the database. Writes still invalidate the
// dashboard cache because recurring totals feed the cycle overview.

type recurringRequest struct {
	Label    string `json:"label"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
}

type recurringResponse struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Amount      string `json:"amount"`
	AmountPaise int64  `json:"amount_paise"`
	Category    string `json:"category"`
}

func toRecurringResponse(re core.RecurringExpense) recurringResponse {
	return recurringResponse{
		ID:          re.ID,
		Label:       re.Label,
		Amount:      re.Amount.String(),
		AmountPaise: re.Amount.Paise,
		Category:    string(re.Category),
	}
}

func (r recurringRequest) toRecurring() (core.RecurringExpense, error) {
	amount, err := core.ParseAmount(r.Amount)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	re := core.RecurringExpense{
		Label:    sanitizeInput(r.Label),
		Amount:   amount,
		Category: core.Category(sanitizeInput(r.Category)),
	}
	return re, re.Validate()
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request, _ *storage.User) {
	out := make([]recurringResponse, 0)
	for _, re := range s.local.Recurring() {
		out = append(out, toRecurringResponse(re))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request, user *storage.User) {
	var req recurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	re, err := req.toRecurring()
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.local.AddRecurring(re)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusCreated, toRecurringResponse(created))
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request, user *storage.User) {
	var req recurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	re, err := req.toRecurring()
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := s.local.UpdateRecurring(id, re); err != nil {
		respondDomainError(w, r, err)
		return
	}
	re.ID = id

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusOK, toRecurringResponse(re))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request, user *storage.User) {
	if err := s.local.DeleteRecurring(r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateDashboard(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

type labelRequest struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
}

type labelResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	AmountPaise int64  `json:"amount_paise"`
	Category    string `json:"category"`
}

func toLabelResponse(l core.SavedLabel) labelResponse {
	return labelResponse{
		ID:          l.ID,
		Name:        l.Name,
		Amount:      l.Amount.String(),
		AmountPaise: l.Amount.Paise,
		Category:    string(l.Category),
	}
}

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request, _ *storage.User) {
	out := make([]labelResponse, 0)
	for _, l := range s.local.Labels() {
		out = append(out, toLabelResponse(l))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request, _ *storage.User) {
	var req labelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	label := core.SavedLabel{
		Name:     sanitizeInput(req.Name),
		Amount:   amount,
		Category: core.Category(sanitizeInput(req.Category)),
	}
	if err := label.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.local.AddLabel(label)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toLabelResponse(created))
}

func (s *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request, _ *storage.User) {
	if err := s.local.DeleteLabel(r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
