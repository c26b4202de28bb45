package messaging

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when an async publisher cannot accept more events.
var ErrQueueFull = errors.New("publish queue full")

// ErrPublisherClosed is returned for events submitted after Shutdown.
var ErrPublisherClosed = errors.New("publisher closed")

// AsyncPublisher moves publishing off the caller's goroutine. Events are
// queued in a bounded buffer and delivered by a pool of workers; when the
// buffer is full new events are rejected rather than blocking the caller.
type AsyncPublisher[T any] struct {
	publish Publish[T]
	queue   chan *T
	workers int
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncPublisher creates an async publisher with the given buffer size and
// worker count. Non-positive values are raised to 1.
func NewAsyncPublisher[T any](publish Publish[T], buffer, workers int, logger *zap.Logger) *AsyncPublisher[T] {
	return &AsyncPublisher[T]{
		publish: publish,
		queue:   make(chan *T, max(buffer, 1)),
		workers: max(workers, 1),
		logger:  logger,
	}
}

// Start launches the delivery workers. Delivery uses a background context so
// in-flight events are not abandoned when ctx is cancelled; Shutdown drains.
func (p *AsyncPublisher[T]) Start(_ context.Context) error {
	for range p.workers {
		p.wg.Add(1)

		go p.deliverLoop()
	}

	return nil
}

func (p *AsyncPublisher[T]) deliverLoop() {
	defer p.wg.Done()

	for event := range p.queue {
		if err := p.publish(context.Background(), event); err != nil {
			p.logger.Warn("failed to publish event", zap.Error(err))
		}
	}
}

// Publish enqueues event without waiting for delivery. It has the Publish
// signature so it can be handed to producers directly.
func (p *AsyncPublisher[T]) Publish(_ context.Context, event *T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting events and waits for queued ones to be delivered.
func (p *AsyncPublisher[T]) Shutdown() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()

	return nil
}
