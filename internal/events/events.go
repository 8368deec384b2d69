// Package events publishes store activity to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pendergraft/decentradns/internal/config"
	"github.com/pendergraft/decentradns/internal/registry"
)

// Event is the message published for every history entry.
type Event struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurredAt"`
	Record     registry.HistoryRecord `json:"record"`
}

// Publisher delivers history entries.
type Publisher interface {
	Publish(ctx context.Context, rec registry.HistoryRecord) error
	Close() error
}

// New returns a queued Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func New(cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return NoopPublisher{}, nil
	}
	kp, err := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	return NewQueuedPublisher(kp, cfg.QueueSize, logger), nil
}

// NewEvent wraps rec in an event envelope
func NewEvent(rec registry.HistoryRecord) Event {
	return Event{
		Type:       "domain." + string(rec.Action),
		OccurredAt: time.UnixMilli(rec.Timestamp).UTC(),
		Record:     rec,
	}
}

func encode(rec registry.HistoryRecord) ([]byte, error) {
	b, err := json.Marshal(NewEvent(rec))
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	return b, nil
}

// Hook adapts p to a store history hook. Hooks run under the store lock,
// so p should be a QueuedPublisher or a NoopPublisher. Delivery failures
// are logged and never reach the store operation.
func Hook(p Publisher, logger *slog.Logger) registry.HistoryHook {
	return func(ctx context.Context, rec registry.HistoryRecord) {
		if err := p.Publish(ctx, rec); err != nil {
			logger.Warn("publishing activity event failed",
				"domain", rec.DomainName,
				"action", rec.Action,
				"error", err,
			)
		}
	}
}

// NoopPublisher discards events
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(context.Context, registry.HistoryRecord) error { return nil }

// Close does nothing
func (NoopPublisher) Close() error { return nil }
