package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeNotifier(t *testing.T) {
	t.Run("subscriber receives published events", func(t *testing.T) {
		n := NewChangeNotifier()
		events, cancel := n.Subscribe("tenant")
		defer cancel()

		n.Publish("tenant", UpdateEvent{Type: "update", Version: 1, Etag: "e1"})

		ev := <-events
		assert.Equal(t, int64(1), ev.Version)
		assert.Equal(t, "e1", ev.Etag)
	})

	t.Run("events stay within the tenant", func(t *testing.T) {
		n := NewChangeNotifier()
		aliceEvents, cancelAlice := n.Subscribe("alice")
		defer cancelAlice()
		bobEvents, cancelBob := n.Subscribe("bob")
		defer cancelBob()

		n.Publish("alice", UpdateEvent{Version: 1})

		require.Len(t, aliceEvents, 1)
		assert.Empty(t, bobEvents)
	})

	t.Run("all subscribers of a tenant are notified", func(t *testing.T) {
		n := NewChangeNotifier()
		first, cancelFirst := n.Subscribe("tenant")
		defer cancelFirst()
		second, cancelSecond := n.Subscribe("tenant")
		defer cancelSecond()

		n.Publish("tenant", UpdateEvent{Version: 7})

		assert.Equal(t, int64(7), (<-first).Version)
		assert.Equal(t, int64(7), (<-second).Version)
	})

	t.Run("cancel removes and closes the channel", func(t *testing.T) {
		n := NewChangeNotifier()
		events, cancel := n.Subscribe("tenant")
		require.Equal(t, 1, n.SubscriberCount("tenant"))

		cancel()

		assert.Equal(t, 0, n.SubscriberCount("tenant"))
		_, open := <-events
		assert.False(t, open)
	})

	t.Run("cancel is safe to call twice", func(t *testing.T) {
		n := NewChangeNotifier()
		_, cancel := n.Subscribe("tenant")

		cancel()
		cancel()
	})

	t.Run("slow subscriber never blocks the publisher", func(t *testing.T) {
		n := NewChangeNotifier()
		events, cancel := n.Subscribe("tenant")
		defer cancel()

		// Overfill the buffer; extra events are dropped, not queued.
		for i := 0; i < subscriberBuffer*3; i++ {
			n.Publish("tenant", UpdateEvent{Version: int64(i)})
		}

		assert.Len(t, events, subscriberBuffer)
	})

	t.Run("publish without subscribers is a no-op", func(t *testing.T) {
		n := NewChangeNotifier()
		n.Publish("nobody", UpdateEvent{Version: 1})
	})
}
