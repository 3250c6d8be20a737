package amqp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

const DefaultPublishBuffer = 256

var (
	ErrPublishBufferFull = errors.New("publish buffer full")
	ErrPublisherClosed   = errors.New("publisher closed")
)

// Publisher is the blocking publish call AsyncPublisher runs in the
// background. *Client implements it.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev *LedgerEvent) error
}

// AsyncPublisher queues events for a single background goroutine so callers
// never wait on the broker. PublishLedgerEvent only enqueues: a full buffer
// drops the event and returns ErrPublishBufferFull.
type AsyncPublisher struct {
	next   Publisher
	events chan queuedEvent

	mu     sync.RWMutex // guards closed against sends on a closed channel
	closed bool
	done   chan struct{}

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

type queuedEvent struct {
	ctx context.Context
	ev  *LedgerEvent
}

func NewAsyncPublisher(next Publisher, buffer int) *AsyncPublisher {
	if buffer <= 0 {
		buffer = DefaultPublishBuffer
	}
	p := &AsyncPublisher{
		next:   next,
		events: make(chan queuedEvent, buffer),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) PublishLedgerEvent(ctx context.Context, ev *LedgerEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	// The request context is usually cancelled by the time the event is sent.
	select {
	case p.events <- queuedEvent{ctx: context.WithoutCancel(ctx), ev: ev}:
		return nil
	default:
		p.dropped.Add(1)
		return ErrPublishBufferFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for q := range p.events {
		if err := p.next.PublishLedgerEvent(q.ctx, q.ev); err != nil {
			p.failed.Add(1)
			slog.WarnContext(q.ctx, "Background ledger event publish failed",
				"event_id", q.ev.EventID,
				"type", q.ev.Type,
				"error", err)
			continue
		}
		p.published.Add(1)
	}
}

// Close stops accepting events and waits for the queued ones to be sent,
// or for ctx to end. It is safe to call more than once.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns how many events were published, failed in the background,
// and dropped on a full buffer.
func (p *AsyncPublisher) Stats() (published, failed, dropped int64) {
	return p.published.Load(), p.failed.Load(), p.dropped.Load()
}
