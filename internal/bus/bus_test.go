package bus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collect[T any](t *testing.T, sub *Subscription[T], n int) []T {
	t.Helper()

	out := make([]T, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case v, ok := <-sub.C():
			require.True(t, ok, "channel closed before %d payloads", n)
			out = append(out, v)
		case <-timeout:
			t.Fatalf("timed out after %d of %d payloads", len(out), n)
		}
	}
	return out
}

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	b := New[int]()
	require.NotPanics(t, func() {
		b.Publish("42.notify", 1)
	})
	require.Equal(t, Stats{}, b.Registry().Snapshot())
}

func TestSubscriberReceivesInPublishOrder(t *testing.T) {
	b := New[int](WithQueueDepth(128))
	sub := b.Subscribe("42.notify")
	defer sub.Cancel()

	for i := 0; i < 100; i++ {
		b.Publish("42.notify", i)
	}

	got := collect(t, sub, 100)
	for i, v := range got {
		require.Equal(t, i, v)
	}
	require.False(t, sub.TakeMissed())
}

func TestFanOutDeliversToEachSubscriber(t *testing.T) {
	b := New[string]()
	first := b.Subscribe("7.notify")
	second := b.Subscribe("7.notify")
	defer first.Cancel()
	defer second.Cancel()

	b.Publish("7.notify", "hello")

	require.Equal(t, []string{"hello"}, collect(t, first, 1))
	require.Equal(t, []string{"hello"}, collect(t, second, 1))
}

func TestTopicsAreIsolated(t *testing.T) {
	b := New[string]()
	sub := b.Subscribe("7.notify")
	defer sub.Cancel()

	b.Publish("42.notify", "not yours")

	select {
	case v := <-sub.C():
		t.Fatalf("unexpected delivery %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelStopsDeliveryAndIsIdempotent(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe("42.notify")

	sub.Cancel()
	sub.Cancel()

	require.NotPanics(t, func() {
		b.Publish("42.notify", 1)
	})

	_, ok := <-sub.C()
	require.False(t, ok, "expected closed channel after cancel")
	require.Equal(t, Stats{}, b.Registry().Snapshot())
}

func TestOverflowEvictsOldestAndMarksMissed(t *testing.T) {
	b := New[int](WithQueueDepth(2))
	sub := b.Subscribe("42.notify")
	defer sub.Cancel()

	for i := 0; i < 5; i++ {
		b.Publish("42.notify", i)
	}

	got := collect(t, sub, 2)
	require.True(t, sub.TakeMissed())
	require.False(t, sub.TakeMissed(), "marker resets after read")

	// Oldest payloads were evicted; the two queued ones are the newest and
	// still in publish order.
	require.Equal(t, []int{3, 4}, got)
}

func TestConcurrentPublishersDistinctTopics(t *testing.T) {
	b := New[int](WithQueueDepth(256))

	const topics = 8
	const payloads = 200

	subs := make([]*Subscription[int], topics)
	for i := range subs {
		subs[i] = b.Subscribe(fmt.Sprintf("%d.notify", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < topics; i++ {
		wg.Add(1)
		go func(topic int) {
			defer wg.Done()
			for p := 0; p < payloads; p++ {
				b.Publish(fmt.Sprintf("%d.notify", topic), p)
			}
		}(i)
	}
	wg.Wait()

	for i, sub := range subs {
		got := collect(t, sub, payloads)
		for p, v := range got {
			require.Equal(t, p, v, "topic %d out of order", i)
		}
		sub.Cancel()
	}
}

func TestRegistrySnapshot(t *testing.T) {
	b := New[int]()
	first := b.Subscribe("1.notify")
	second := b.Subscribe("1.notify")
	third := b.Subscribe("2.notify")

	require.Equal(t, Stats{Topics: 2, Subscribers: 3}, b.Registry().Snapshot())

	first.Cancel()
	second.Cancel()
	require.Equal(t, Stats{Topics: 1, Subscribers: 1}, b.Registry().Snapshot())

	third.Cancel()
	require.Equal(t, Stats{}, b.Registry().Snapshot())
}

func TestCloseCancelsEverything(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe("42.notify")

	b.Close()

	_, ok := <-sub.C()
	require.False(t, ok)

	late := b.Subscribe("42.notify")
	_, ok = <-late.C()
	require.False(t, ok, "subscribe after close returns cancelled subscription")
}
