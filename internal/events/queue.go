package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pendergraft/decentradns/internal/registry"
)

// DefaultQueueSize is used when no queue size is configured.
const DefaultQueueSize = 1024

// publishTimeout bounds a single delivery
const publishTimeout = 5 * time.Second

var (
	// ErrQueueFull is returned when an entry is dropped because the queue is full.
	ErrQueueFull = errors.New("event queue full")
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("event publisher closed")
)

// QueuedPublisher hands entries to a single goroutine that delivers them to
// the wrapped publisher in the order they were queued. Publish never waits
// for the broker.
type QueuedPublisher struct {
	next   Publisher
	logger *slog.Logger
	queue  chan registry.HistoryRecord
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueuedPublisher starts the delivery goroutine for next.
func NewQueuedPublisher(next Publisher, size int, logger *slog.Logger) *QueuedPublisher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	p := &QueuedPublisher{
		next:   next,
		logger: logger,
		queue:  make(chan registry.HistoryRecord, size),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues rec for delivery.
func (p *QueuedPublisher) Publish(_ context.Context, rec registry.HistoryRecord) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close delivers the queued entries, then closes the wrapped publisher.
func (p *QueuedPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.next.Close()
}

func (p *QueuedPublisher) run() {
	defer close(p.done)
	for rec := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := p.next.Publish(ctx, rec)
		cancel()
		if err != nil {
			p.logger.Warn("delivering activity event failed",
				"domain", rec.DomainName,
				"action", rec.Action,
				"error", err,
			)
		}
	}
}
