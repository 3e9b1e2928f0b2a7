package bus

import "time"

// Option applies a configuration option to the InMemoryBus.
type Option func(*InMemoryBus)

// WithPartitionCapacity sets the buffered capacity of each partition.
func WithPartitionCapacity(capacity int) Option {
	return func(b *InMemoryBus) {
		if capacity > 0 {
			b.capacity = capacity
		}
	}
}

// WithDeliveryRetries bounds redelivery attempts per subscriber.
func WithDeliveryRetries(retries int) Option {
	return func(b *InMemoryBus) {
		if retries >= 0 {
			b.retries = retries
		}
	}
}

// WithRetryBackoff sets the base backoff between redelivery attempts.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(b *InMemoryBus) {
		if backoff > 0 {
			b.backoff = backoff
		}
	}
}
