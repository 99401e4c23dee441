// Package idempotency decides whether an inbound event was already handled.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Marker atomically records an event key. created is false when the key was
// already present.
type Marker interface {
	MarkProcessed(ctx context.Context, conversationID, eventID string) (created bool, err error)
}

// Guard wraps a Marker with the fail-open policy: when the store cannot be
// reached the event is treated as new, so an outage never wedges the bot.
// Delivery is then only probably at-most-once.
//
// Markers expire (PROCESSED_TTL, 168h by default, in both the DynamoDB and
// Redis backends), so at most one processing per event holds only within
// that window. A redelivery after expiry is handled again; the window must
// exceed the platform's redelivery horizon, which for Telegram is about a day.
type Guard struct {
	marker  Marker
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Guard)

// WithTimeout bounds each marker call.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

func NewGuard(m Marker, opts ...Option) (*Guard, error) {
	if m == nil {
		return nil, errors.New("idempotency: marker must not be nil")
	}
	g := &Guard{marker: m, timeout: 5 * time.Second, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "idempotency")
	return g, nil
}

// AlreadyHandled records (conversationID, eventID) on first sight and returns
// false; later calls with the same key return true. Events without an
// identifier cannot be deduplicated and are always processed.
func (g *Guard) AlreadyHandled(ctx context.Context, conversationID, eventID string) bool {
	if conversationID == "" || eventID == "" {
		g.logger.Warn("event without identifier, skipping dedup", "conversation_id", conversationID)
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	created, err := g.marker.MarkProcessed(ctx, conversationID, eventID)
	if err != nil {
		g.logger.Warn("processed-event store unavailable, failing open",
			"conversation_id", conversationID, "event_id", eventID, "err", err)
		return false
	}
	return !created
}
