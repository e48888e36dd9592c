package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/kjannette/nordfolio-backend/internal/realtime"
	"github.com/kjannette/nordfolio-backend/internal/repository"
	"github.com/rs/zerolog"
)

const maxQueryLimit = 1000

type PortfolioStore interface {
	Create(ctx context.Context, userID, name string, description *string) (*models.Portfolio, error)
	Get(ctx context.Context, id int64) (*models.Portfolio, error)
	ListWithValuation(ctx context.Context, userID string) ([]models.PortfolioSummary, error)
}

type AssetStore interface {
	Create(ctx context.Context, in repository.NewAsset) (*models.Asset, error)
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]models.AssetValuation, error)
	Update(ctx context.Context, id int64, p models.AssetPatch) (*models.Asset, error)
	Delete(ctx context.Context, id int64) error
}

type PriceHistoryStore interface {
	GetByAsset(ctx context.Context, assetID int64, limit int) ([]models.PriceHistory, error)
}

// QuoteRecorder persists a fetched quote on every asset holding its symbol.
type QuoteRecorder interface {
	ApplyQuote(ctx context.Context, q models.Quote, ts time.Time) (int, error)
}

type Pricer interface {
	GetPrice(ctx context.Context, symbol string, assetType models.AssetType) (*models.Quote, bool)
	GetBatchPrices(ctx context.Context, reqs []models.PriceRequest) []models.Quote
}

type Streamer interface {
	Run(ctx context.Context, userID string, sink realtime.Sink) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Portfolios PortfolioStore
	Assets     AssetStore
	History    PriceHistoryStore
	Quotes     QuoteRecorder
	Pricer     Pricer
	Stream     Streamer
	DB         Pinger
	Log        zerolog.Logger
}

type Server struct {
	Deps
	handler    http.Handler
	httpServer *http.Server
}

func NewServer(d Deps, port int, corsOrigin string) *Server {
	s := &Server{Deps: d}

	mux := http.NewServeMux()

	// Portfolio routes
	mux.HandleFunc("GET /v1/portfolios", s.handleListPortfolios)
	mux.HandleFunc("POST /v1/portfolios", s.handleCreatePortfolio)

	// Asset routes
	mux.HandleFunc("GET /v1/portfolios/{id}/assets", s.handleListAssets)
	mux.HandleFunc("POST /v1/portfolios/{id}/assets", s.handleCreateAsset)
	mux.HandleFunc("PUT /v1/assets/{id}", s.handleUpdateAsset)
	mux.HandleFunc("DELETE /v1/assets/{id}", s.handleDeleteAsset)
	mux.HandleFunc("GET /v1/assets/{id}/prices", s.handleAssetPriceHistory)

	// Price routes
	mux.HandleFunc("GET /v1/prices/{symbol}", s.handleGetPrice)
	mux.HandleFunc("POST /v1/prices/batch", s.handleBatchPrices)

	// Realtime
	mux.HandleFunc("GET /v1/realtime/portfolio-updates", s.handlePortfolioUpdates)

	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = corsMiddleware(mux, corsOrigin)

	// Request contexts derive from baseCtx so Shutdown can end open streams.
	baseCtx, cancel := context.WithCancel(context.Background())

	// WriteTimeout is lifted per response for the SSE stream.
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	s.httpServer.RegisterOnShutdown(cancel)

	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start() error {
	s.Log.Info().Str("addr", s.httpServer.Addr).Msg("REST API server started")
	s.Log.Info().Msgf("Health check: http://localhost%s/health", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func parseID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
