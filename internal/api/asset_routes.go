package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/kjannette/nordfolio-backend/internal/repository"
	"github.com/shopspring/decimal"
)

type createAssetRequest struct {
	Name        string              `json:"name"`
	Symbol      *string             `json:"symbol"`
	AssetType   models.AssetType    `json:"assetType"`
	Currency    string              `json:"currency"`
	Platform    *string             `json:"platform"`
	Quantity    decimal.NullDecimal `json:"quantity"`
	AverageCost decimal.NullDecimal `json:"averageCost"`
	Metadata    json.RawMessage     `json:"metadata"`
}

type updateAssetRequest struct {
	Name         *string             `json:"name"`
	Symbol       *string             `json:"symbol"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	AverageCost  decimal.NullDecimal `json:"averageCost"`
	CurrentPrice decimal.NullDecimal `json:"currentPrice"`
	Platform     *string             `json:"platform"`
	Metadata     json.RawMessage     `json:"metadata"`
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	assets, err := s.Assets.ListByPortfolio(r.Context(), id)
	if err != nil {
		s.Log.Error().Err(err).Int64("portfolio", id).Msg("list assets failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch assets")
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	var req createAssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.AssetType == "" || !req.Quantity.Valid {
		writeError(w, http.StatusBadRequest, "name, assetType and quantity are required")
		return
	}
	if !req.AssetType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid assetType")
		return
	}
	if req.Currency == "" {
		req.Currency = "NOK"
	}
	if string(req.Metadata) == "null" {
		req.Metadata = nil
	}
	req.Currency = strings.ToUpper(req.Currency)
	if !models.ValidCurrency(req.Currency) {
		writeError(w, http.StatusBadRequest, "invalid currency")
		return
	}
	if req.Symbol != nil {
		sym := normalizeSymbol(*req.Symbol)
		if sym == "" {
			req.Symbol = nil
		} else {
			req.Symbol = &sym
		}
	}

	ctx := r.Context()
	if _, err := s.Portfolios.Get(ctx, portfolioID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "portfolio not found")
			return
		}
		s.Log.Error().Err(err).Int64("portfolio", portfolioID).Msg("load portfolio failed")
		writeError(w, http.StatusInternalServerError, "failed to create asset")
		return
	}

	asset, err := s.Assets.Create(ctx, repository.NewAsset{
		PortfolioID: portfolioID,
		Name:        req.Name,
		Symbol:      req.Symbol,
		AssetType:   req.AssetType,
		Currency:    req.Currency,
		Platform:    req.Platform,
		Quantity:    req.Quantity.Decimal,
		AverageCost: req.AverageCost,
		Metadata:    req.Metadata,
	})
	if err != nil {
		s.Log.Error().Err(err).Int64("portfolio", portfolioID).Msg("create asset failed")
		writeError(w, http.StatusInternalServerError, "failed to create asset")
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	var req updateAssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if string(req.Metadata) == "null" {
		req.Metadata = nil
	}
	if req.Symbol != nil {
		sym := normalizeSymbol(*req.Symbol)
		req.Symbol = &sym
	}

	asset, err := s.Assets.Update(r.Context(), id, models.AssetPatch{
		Name:         req.Name,
		Symbol:       req.Symbol,
		Quantity:     req.Quantity,
		AverageCost:  req.AverageCost,
		CurrentPrice: req.CurrentPrice,
		Platform:     req.Platform,
		Metadata:     req.Metadata,
	})
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	if err != nil {
		s.Log.Error().Err(err).Int64("asset", id).Msg("update asset failed")
		writeError(w, http.StatusInternalServerError, "failed to update asset")
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	err := s.Assets.Delete(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	if err != nil {
		s.Log.Error().Err(err).Int64("asset", id).Msg("delete asset failed")
		writeError(w, http.StatusInternalServerError, "failed to delete asset")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Asset deleted successfully"})
}

func (s *Server) handleAssetPriceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	history, err := s.History.GetByAsset(r.Context(), id, parseLimit(r, 100))
	if err != nil {
		s.Log.Error().Err(err).Int64("asset", id).Msg("price history failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch price history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
