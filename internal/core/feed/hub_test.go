package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBroadcastScopedToRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a1 := hub.Subscribe("tenant-a")
	a2 := hub.Subscribe("tenant-a")
	b := hub.Subscribe("tenant-b")
	defer hub.Unsubscribe(b)

	hub.Broadcast("tenant-a", &Event{Type: EventSnapshot, Payload: "hello"})

	assert.Equal(t, "hello", recv(t, a1.Events).Payload)
	assert.Equal(t, "hello", recv(t, a2.Events).Payload)

	select {
	case event := <-b.Events:
		t.Fatalf("tenant-b received a foreign event: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}

	hub.Unsubscribe(a1)
	hub.Unsubscribe(a2)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	sub := hub.Subscribe("tenant-a")
	hub.Unsubscribe(sub)

	select {
	case _, ok := <-sub.Events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestSlowSubscriberDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := hub.Subscribe("tenant-a")

	// never drained: overflow the buffer until the hub drops it
	for i := 0; i < cap(slow.Events)+2; i++ {
		hub.Broadcast("tenant-a", &Event{Type: EventSnapshot, Payload: i})
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-slow.Events:
			if !ok {
				return // dropped and closed, as expected
			}
		case <-deadline:
			t.Fatal("slow subscriber was never dropped")
		}
	}
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	require.NotPanics(t, func() {
		hub.Broadcast("nobody-here", &Event{Type: EventSnapshot})
	})
}
