package api

import (
	"net/http"
	"strings"
)

type createPortfolioRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	UserID      string  `json:"userId"`
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	portfolios, err := s.Portfolios.ListWithValuation(r.Context(), userID)
	if err != nil {
		s.Log.Error().Err(err).Str("user", userID).Msg("list portfolios failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch portfolios")
		return
	}
	writeJSON(w, http.StatusOK, portfolios)
}

func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.Name == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "name and userId are required")
		return
	}

	p, err := s.Portfolios.Create(r.Context(), req.UserID, req.Name, req.Description)
	if err != nil {
		s.Log.Error().Err(err).Str("user", req.UserID).Msg("create portfolio failed")
		writeError(w, http.StatusInternalServerError, "failed to create portfolio")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
