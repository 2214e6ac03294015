package bus

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is one subscriber's handle on a topic: a bounded delivery
// queue plus an idempotent cancellation. It is owned by the registry and
// must be cancelled when the consuming connection goes away, otherwise the
// queue leaks.
type Subscription[T any] struct {
	id    string
	topic string
	ch    chan T

	cancel     func()
	cancelOnce sync.Once
	closeOnce  sync.Once
	missed     atomic.Bool
}

func newSubscription[T any](topic string, depth int) *Subscription[T] {
	return &Subscription[T]{
		id:    uuid.NewString(),
		topic: topic,
		ch:    make(chan T, depth),
	}
}

// ID identifies the subscription in logs and stats.
func (s *Subscription[T]) ID() string {
	return s.id
}

// Topic returns the topic this subscription is registered on.
func (s *Subscription[T]) Topic() string {
	return s.topic
}

// C returns the delivery channel. It is closed once the subscription is
// cancelled; consumers must treat a closed channel as end-of-stream.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Cancel unregisters the subscription and closes the delivery channel.
// Safe to call multiple times and from any goroutine.
func (s *Subscription[T]) Cancel() {
	s.cancelOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		} else {
			s.closeChannel()
		}
	})
}

// TakeMissed reports whether deliveries were evicted since the last call and
// resets the marker. Consumers can surface this as a best-effort hint that
// the live view is incomplete.
func (s *Subscription[T]) TakeMissed() bool {
	return s.missed.Swap(false)
}

// deliver enqueues payload without ever blocking the publisher. When the
// queue is full the oldest undelivered payload is evicted first; if the
// retry still cannot place the payload it is counted as dropped.
func (s *Subscription[T]) deliver(payload T) bool {
	select {
	case s.ch <- payload:
		return true
	default:
	}

	select {
	case <-s.ch:
		s.missed.Store(true)
	default:
	}

	select {
	case s.ch <- payload:
		return true
	default:
		s.missed.Store(true)
		return false
	}
}

func (s *Subscription[T]) closeChannel() {
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}

// closeLocal closes the channel for subscriptions that never made it into
// the registry (bus already closed).
func (s *Subscription[T]) closeLocal() {
	s.closeChannel()
}
