package bus

import (
	"go.uber.org/zap"

	"github.com/finware/notify/pkg/logger"
)

const defaultQueueDepth = 64

// Bus is an in-process publish/subscribe primitive keyed by topic string.
// Publishing never blocks the caller: each subscriber owns a bounded queue and
// overflow evicts the oldest undelivered payload for that subscriber only.
type Bus[T any] struct {
	registry *Registry[T]
	log      *zap.Logger
}

// Option customises bus construction.
type Option func(*options)

type options struct {
	queueDepth int
}

// WithQueueDepth sets the per-subscriber queue depth. Values below one fall
// back to the default.
func WithQueueDepth(depth int) Option {
	return func(o *options) {
		o.queueDepth = depth
	}
}

// New constructs a bus with an empty subscriber registry.
func New[T any](opts ...Option) *Bus[T] {
	cfg := options{queueDepth: defaultQueueDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.queueDepth < 1 {
		cfg.queueDepth = defaultQueueDepth
	}

	return &Bus[T]{
		registry: newRegistry[T](cfg.queueDepth),
		log:      logger.WithModule("bus"),
	}
}

// Publish delivers payload to every subscriber currently registered on topic.
// A topic without subscribers is a silent no-op; many users are simply not
// live-connected when their events fire.
func (b *Bus[T]) Publish(topic string, payload T) {
	delivered, dropped := b.registry.publish(topic, payload)
	if dropped > 0 {
		b.log.Warn("dropped payloads for stalled subscribers",
			zap.String("topic", topic),
			zap.Int("dropped", dropped),
			zap.Int("delivered", delivered),
		)
	}
}

// Subscribe registers a new independent subscriber on topic. Every subscriber
// receives its own copy of each subsequent publish; payloads published before
// the call are never replayed.
func (b *Bus[T]) Subscribe(topic string) *Subscription[T] {
	return b.registry.add(topic)
}

// Registry exposes the subscriber registry for stats reporting.
func (b *Bus[T]) Registry() *Registry[T] {
	return b.registry
}

// Close cancels every active subscription. Subsequent subscribes return
// already-cancelled subscriptions and publishes are dropped.
func (b *Bus[T]) Close() {
	b.registry.closeAll()
}
