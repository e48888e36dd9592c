// Package realtime runs the per-subscriber valuation refresh loop and pushes
// its results over an event sink.
package realtime

import (
	"time"

	"github.com/kjannette/nordfolio-backend/internal/models"
)

const (
	EventConnected       = "connected"
	EventPortfolioUpdate = "portfolio_update"
	EventError           = "error"
)

// Snapshot is the valuation state sent in a portfolio_update.
type Snapshot struct {
	Portfolios    []models.PortfolioSummary `json:"portfolios"`
	PricesUpdated bool                      `json:"pricesUpdated"`
	Refreshed     []string                  `json:"refreshed"`
}

// Event is the envelope written to subscribers. Only the fields relevant to
// Type are set.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId,omitempty"`
	*Snapshot
	Message string `json:"message,omitempty"`
}

func connectedEvent(sessionID string, ts time.Time) Event {
	return Event{Type: EventConnected, Timestamp: ts, SessionID: sessionID}
}

func updateEvent(snap *Snapshot, ts time.Time) Event {
	return Event{Type: EventPortfolioUpdate, Timestamp: ts, Snapshot: snap}
}

func errorEvent(msg string, ts time.Time) Event {
	return Event{Type: EventError, Timestamp: ts, Message: msg}
}
