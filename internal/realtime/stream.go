package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const tickFailedMessage = "Failed to update portfolio data"

// Sink receives the events of one subscriber. A Send error means the
// transport is gone.
type Sink interface {
	Send(ev Event) error
}

// Ticker is what a Stream drives on every interval.
type Ticker interface {
	Snapshot(ctx context.Context, userID string) (*Snapshot, error)
	Tick(ctx context.Context, userID string) (*Snapshot, error)
}

type StreamConfig struct {
	Interval time.Duration
	Now      func() time.Time
}

type Stream struct {
	ticker Ticker
	cfg    StreamConfig
	log    zerolog.Logger
}

func NewStream(ticker Ticker, cfg StreamConfig, log zerolog.Logger) *Stream {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Stream{ticker: ticker, cfg: cfg, log: log}
}

// Run serves one subscriber until ctx is done or the sink fails. Ticks run
// sequentially on this goroutine so they never overlap.
func (s *Stream) Run(ctx context.Context, userID string, sink Sink) error {
	sessionID := uuid.NewString()
	log := s.log.With().Str("session", sessionID).Str("user", userID).Logger()

	if err := sink.Send(connectedEvent(sessionID, s.cfg.Now().UTC())); err != nil {
		return err
	}
	log.Info().Msg("subscriber connected")
	defer log.Info().Msg("subscriber disconnected")

	snap, snapErr := s.ticker.Snapshot(ctx, userID)
	if err := s.emit(ctx, sink, snap, snapErr, log); err != nil {
		return err
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, tickErr := s.ticker.Tick(ctx, userID)
			if err := s.emit(ctx, sink, snap, tickErr, log); err != nil {
				return err
			}
		}
	}
}

// emit sends the outcome of a snapshot or tick. Nothing is sent once ctx is
// done, even if the work finished.
func (s *Stream) emit(ctx context.Context, sink Sink, snap *Snapshot, tickErr error, log zerolog.Logger) error {
	if ctx.Err() != nil {
		return nil
	}
	ts := s.cfg.Now().UTC()
	if tickErr != nil {
		log.Error().Err(tickErr).Msg("refresh tick failed")
		return sink.Send(errorEvent(tickFailedMessage, ts))
	}
	return sink.Send(updateEvent(snap, ts))
}
