// Package bus is the in-process event transport between the competition
// engine and its consumers.
//
// Events are partitioned by competition id: one delivery goroutine per
// partition keeps a competition's events in round order, while different
// competitions fan out in parallel. Delivery is at-least-once; consumers
// dedupe on natural keys.
package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default bus configuration constants.
const (
	defaultPartitionCapacity = 1024
	defaultDeliveryRetries   = 3
	defaultRetryBackoff      = 50 * time.Millisecond
)

// Handler consumes one event. A non-nil error triggers a bounded redelivery.
type Handler func(ctx context.Context, ev model.Event) error

// Bus provides ordered-per-partition publish/subscribe semantics.
type Bus interface {
	// Publish appends an event to its competition's partition.
	// Returns false if the partition is full or the bus is closed.
	Publish(ctx context.Context, ev model.Event) bool

	// Subscribe registers a named consumer. Must be called before Publish.
	Subscribe(name string, h Handler)

	// Depth returns the number of undelivered events across partitions.
	Depth(ctx context.Context) int

	// Close stops delivery after draining; no new events are accepted.
	// A second Close returns ErrClosed.
	Close() error

	// IsClosed returns true if the bus has been closed.
	IsClosed() bool
}

type subscriber struct {
	name    string
	handler Handler
}

// InMemoryBus implements Bus over buffered channels.
type InMemoryBus struct {
	mu          sync.RWMutex
	partitions  map[string]chan model.Event
	subscribers []subscriber
	capacity    int
	retries     int
	backoff     time.Duration
	closed      bool
	depth       atomic.Int64
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      logger.Logger
}

// New creates an in-memory bus with configuration options.
func New(ctx context.Context, opts ...Option) *InMemoryBus {
	busCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b := &InMemoryBus{
		partitions: make(map[string]chan model.Event),
		capacity:   defaultPartitionCapacity,
		retries:    defaultDeliveryRetries,
		backoff:    defaultRetryBackoff,
		ctx:        busCtx,
		cancel:     cancel,
		logger:     logger.Get().Named("bus"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscribe registers a consumer. Handlers run sequentially per partition in
// registration order.
func (b *InMemoryBus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, subscriber{name: name, handler: h})
}

// Publish appends an event to its partition, creating the partition and its
// delivery goroutine on first use.
func (b *InMemoryBus) Publish(ctx context.Context, ev model.Event) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		metrics.RecordBusDropped()
		metrics.RecordErrorByComponent("bus", "closed")
		return false
	}
	ch, ok := b.partitions[ev.PartitionKey()]
	if !ok {
		ch = make(chan model.Event, b.capacity)
		b.partitions[ev.PartitionKey()] = ch
		b.wg.Add(1)
		go b.deliver(ch)
	}
	b.mu.Unlock()

	select {
	case ch <- ev:
		b.depth.Add(1)
		metrics.RecordBusPublished()
		metrics.UpdateBusDepth(int(b.depth.Load()))
		return true
	case <-ctx.Done():
		metrics.RecordBusDropped()
		metrics.RecordErrorByComponent("bus", "context_cancelled")
		return false
	default:
		metrics.RecordBusDropped()
		metrics.RecordErrorByComponent("bus", "partition_full")
		return false
	}
}

// deliver drains one partition sequentially, preserving event order within
// the competition.
func (b *InMemoryBus) deliver(ch <-chan model.Event) {
	defer b.wg.Done()
	for ev := range ch {
		for _, sub := range b.subscribers {
			b.deliverOne(sub, ev)
		}
		b.depth.Add(-1)
		metrics.UpdateBusDepth(int(b.depth.Load()))
	}
}

// deliverOne invokes one handler with bounded retries. Exhausting retries
// drops the delivery for this subscriber only; its idempotency key is left
// untouched so a later redelivery can still land.
func (b *InMemoryBus) deliverOne(sub subscriber, ev model.Event) {
	var err error
	for attempt := 0; attempt <= b.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-b.ctx.Done():
				return
			case <-time.After(b.backoff * time.Duration(attempt)):
			}
		}
		if err = sub.handler(b.ctx, ev); err == nil {
			return
		}
	}
	metrics.RecordErrorByComponent("bus", "delivery_failed")
	b.logger.Error(b.ctx, "delivery failed after retries",
		logger.String("subscriber", sub.name),
		logger.String("event", string(ev.EventType())),
		logger.String("key", ev.DedupeKey()),
		logger.Error(err),
	)
}

// Depth returns the number of undelivered events.
func (b *InMemoryBus) Depth(_ context.Context) int {
	return int(b.depth.Load())
}

// Close stops accepting events and waits for partitions to drain. Closing an
// already-closed bus returns ErrClosed.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.closed = true
	for _, ch := range b.partitions {
		close(ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.cancel()
	return nil
}

// IsClosed returns true if the bus has been closed.
func (b *InMemoryBus) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}
