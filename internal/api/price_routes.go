package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/nordfolio-backend/internal/models"
)

type batchPricesRequest struct {
	Assets json.RawMessage `json:"assets"`
}

type batchPricesResponse struct {
	Prices  []models.Quote `json:"prices"`
	Updated int            `json:"updated"`
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.PathValue("symbol"))
	assetType := models.AssetType(r.URL.Query().Get("type"))
	if assetType == "" {
		assetType = models.AssetStock
	}
	if !assetType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid type")
		return
	}

	ctx := r.Context()
	q, ok := s.Pricer.GetPrice(ctx, symbol, assetType)
	if !ok {
		writeError(w, http.StatusNotFound, "Price data not found")
		return
	}

	s.recordQuotes(ctx, []models.Quote{*q})
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleBatchPrices(w http.ResponseWriter, r *http.Request) {
	var req batchPricesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var assets []models.PriceRequest
	raw := strings.TrimSpace(string(req.Assets))
	if !strings.HasPrefix(raw, "[") || json.Unmarshal(req.Assets, &assets) != nil {
		writeError(w, http.StatusBadRequest, "Assets must be an array")
		return
	}
	for i := range assets {
		if assets[i].AssetType == "" {
			assets[i].AssetType = models.AssetStock
		}
	}

	ctx := r.Context()
	prices := s.Pricer.GetBatchPrices(ctx, assets)
	s.recordQuotes(ctx, prices)

	writeJSON(w, http.StatusOK, batchPricesResponse{Prices: prices, Updated: len(prices)})
}

// recordQuotes stores fetched prices on matching assets. Failures are
// logged and never fail the request.
func (s *Server) recordQuotes(ctx context.Context, quotes []models.Quote) {
	if s.Quotes == nil {
		return
	}
	ts := time.Now().UTC()
	for _, q := range quotes {
		n, err := s.Quotes.ApplyQuote(ctx, q, ts)
		if err != nil {
			s.Log.Error().Err(err).Str("symbol", q.Symbol).Msg("storing price failed")
			continue
		}
		if n > 0 {
			s.Log.Debug().Str("symbol", q.Symbol).Int("assets", n).Msg("price stored")
		}
	}
}
