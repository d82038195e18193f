// Package publisher emits audit events to a store, optionally through an
// async buffer so the login path never blocks on audit persistence.
package publisher

import (
	"context"
	"sync"
	"time"

	"sigede/pkg/platform/audit"
)

// Publisher fans audit events into a store. Synchronous by default;
// WithAsyncBuffer makes Emit non-blocking with a drain on Close.
type Publisher struct {
	store audit.Store

	inbox   chan audit.Event
	done    chan struct{}
	closeMu sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer buffers events and persists them from a background
// goroutine. Events beyond the buffer are dropped rather than blocking the
// caller.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	} else {
		close(p.done)
	}
	return p
}

// Emit records an event, stamping the timestamp if unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		// Buffer full: drop rather than block the login path.
	}
	return nil
}

// Close drains any buffered events.
func (p *Publisher) Close() {
	p.closeMu.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
		}
	})
	<-p.done
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		_ = p.store.Append(context.Background(), event)
	}
}
