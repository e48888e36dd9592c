package api

import (
	"net/http"
	"strings"

	"github.com/kjannette/nordfolio-backend/internal/realtime"
)

// handlePortfolioUpdates holds the response open and streams valuation
// events until the client goes away.
func (s *Server) handlePortfolioUpdates(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	sink := realtime.NewSSEWriter(w)
	if err := s.Stream.Run(r.Context(), userID, sink); err != nil {
		s.Log.Debug().Err(err).Str("user", userID).Msg("stream closed by transport error")
	}
}
