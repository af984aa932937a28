package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservationEvent(user string) Event {
	return Event{Table: TableReservations, Type: EventInsert, UserID: user, RecordID: "r-1"}
}

func TestFilterMatch(t *testing.T) {
	e := reservationEvent("u1")
	assert.True(t, Filter{}.Match(e))
	assert.True(t, Filter{Table: TableReservations, UserID: "u1"}.Match(e))
	assert.False(t, Filter{UserID: "u2"}.Match(e))
	assert.False(t, Filter{Table: TableSchedules}.Match(e))
}

func TestHubDeliversMatchingEvents(t *testing.T) {
	hub := NewHub(4, nil)
	mine := hub.Subscribe(Filter{UserID: "u1"})
	other := hub.Subscribe(Filter{UserID: "u2"})
	defer mine.Close()
	defer other.Close()

	hub.Broadcast(reservationEvent("u1"))

	select {
	case e := <-mine.Events():
		assert.Equal(t, "u1", e.UserID)
	default:
		t.Fatal("expected event for u1")
	}
	assert.Len(t, other.Events(), 0)
}

func TestHubMarksSlowSubscriberStale(t *testing.T) {
	var dropped int
	hub := NewHub(1, func(Event) { dropped++ })
	sub := hub.Subscribe(Filter{})
	defer sub.Close()

	hub.Broadcast(reservationEvent("u1"))
	hub.Broadcast(reservationEvent("u1"))
	hub.Broadcast(reservationEvent("u1"))

	assert.True(t, sub.Stale())
	assert.Equal(t, 2, dropped)
	select {
	case <-sub.StaleSignal():
	default:
		t.Fatal("expected stale signal")
	}

	sub.Resync()
	assert.False(t, sub.Stale())
	assert.Len(t, sub.Events(), 0)

	hub.Broadcast(reservationEvent("u1"))
	assert.Len(t, sub.Events(), 1)
	assert.False(t, sub.Stale())
}

func TestSubscriptionCloseUnregisters(t *testing.T) {
	hub := NewHub(2, nil)
	sub := hub.Subscribe(Filter{})
	require.Equal(t, 1, hub.Subscribers())
	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.Subscribers())
}

func TestPublisherStampsAndBroadcastsLocally(t *testing.T) {
	hub := NewHub(2, nil)
	sub := hub.Subscribe(Filter{Table: TableReservations})
	defer sub.Close()

	fixed := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	pub := NewPublisher(hub, nil, PublisherConfig{})
	pub.now = func() time.Time { return fixed }
	pub.Start(context.Background())
	defer pub.Stop()

	pub.Publish(context.Background(), reservationEvent("u1"))

	e := <-sub.Events()
	assert.Equal(t, fixed, e.At)
	assert.Equal(t, EventInsert, e.Type)
}
