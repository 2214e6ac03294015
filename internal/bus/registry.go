package bus

import (
	"hash/fnv"
	"sync"

	"github.com/finware/notify/pkg/metrics"
)

// shardCount spreads topic state over independent locks so that concurrent
// subscribe/publish on unrelated topics never contend.
const shardCount = 16

// Registry tracks active subscriptions per topic. It owns registration,
// removal on cancellation and the bounded-queue overflow policy.
type Registry[T any] struct {
	shards [shardCount]registryShard[T]
	depth  int

	closeMu sync.RWMutex
	closed  bool
}

type registryShard[T any] struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription[T]]struct{}
}

// Stats is a point-in-time view of registry occupancy.
type Stats struct {
	Topics      int
	Subscribers int
}

func newRegistry[T any](depth int) *Registry[T] {
	r := &Registry[T]{depth: depth}
	for i := range r.shards {
		r.shards[i].topics = make(map[string]map[*Subscription[T]]struct{})
	}
	return r
}

func (r *Registry[T]) shardFor(topic string) *registryShard[T] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	return &r.shards[h.Sum32()%shardCount]
}

func (r *Registry[T]) add(topic string) *Subscription[T] {
	sub := newSubscription[T](topic, r.depth)
	sub.cancel = func() { r.remove(sub) }

	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		sub.closeLocal()
		return sub
	}

	shard := r.shardFor(topic)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if shard.topics[topic] == nil {
		shard.topics[topic] = make(map[*Subscription[T]]struct{})
	}
	shard.topics[topic][sub] = struct{}{}
	metrics.ActiveSubscribers.Inc()
	return sub
}

func (r *Registry[T]) remove(sub *Subscription[T]) {
	shard := r.shardFor(sub.topic)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	subs, ok := shard.topics[sub.topic]
	if ok {
		if _, registered := subs[sub]; registered {
			delete(subs, sub)
			metrics.ActiveSubscribers.Dec()
			if len(subs) == 0 {
				delete(shard.topics, sub.topic)
			}
		}
	}

	// Closing under the shard lock guarantees no publisher is mid-send.
	sub.closeChannel()
}

func (r *Registry[T]) publish(topic string, payload T) (delivered, dropped int) {
	shard := r.shardFor(topic)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	for sub := range shard.topics[topic] {
		if sub.deliver(payload) {
			delivered++
		} else {
			dropped++
		}
	}

	metrics.EventsDelivered.Add(float64(delivered))
	metrics.EventsDropped.Add(float64(dropped))
	return delivered, dropped
}

// Snapshot reports current topic and subscriber counts.
func (r *Registry[T]) Snapshot() Stats {
	var stats Stats
	for i := range r.shards {
		shard := &r.shards[i]
		shard.mu.RLock()
		stats.Topics += len(shard.topics)
		for _, subs := range shard.topics {
			stats.Subscribers += len(subs)
		}
		shard.mu.RUnlock()
	}
	return stats
}

func (r *Registry[T]) closeAll() {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return
	}
	r.closed = true
	r.closeMu.Unlock()

	for i := range r.shards {
		shard := &r.shards[i]
		shard.mu.Lock()
		for topic, subs := range shard.topics {
			for sub := range subs {
				metrics.ActiveSubscribers.Dec()
				sub.closeChannel()
			}
			delete(shard.topics, topic)
		}
		shard.mu.Unlock()
	}
}
