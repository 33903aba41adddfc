package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// profileRequest carries a partial preferences update. Nil fields keep
// their current value.
type profileRequest struct {
	Salary     *string `json:"salary,omitempty"`
	RenewalDay *int    `json:"renewal_day,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, user *storage.User) {
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, user *storage.User) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg := user.Config
	if req.Salary != nil {
		if *req.Salary == "" || *req.Salary == "0" {
			cfg.Salary = core.Money{}
		} else {
			salary, err := core.ParseAmount(*req.Salary)
			if err != nil {
				respondDomainError(w, r, err)
				return
			}
			cfg.Salary = salary
		}
	}
	if req.RenewalDay != nil {
		cfg.RenewalDay = *req.RenewalDay
	}
	if req.AvatarURL != nil {
		cfg.AvatarURL = sanitizeInput(*req.AvatarURL)
	}

	if err := cfg.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := s.store.UpdateBudgetConfig(r.Context(), user.ID, cfg); err != nil {
		respondDomainError(w, r, err)
		return
	}

	user.Config = cfg
	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusOK, toUserResponse(user))
}
