package realtime

import (
	"sync"
	"sync/atomic"
)

// Hub fans events out to local subscribers. Delivery never blocks the publisher:
// a subscriber whose buffer is full misses the event and is marked stale until it resyncs.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	onDrop func(Event)
}

// NewHub builds a hub with the given per-subscriber buffer.
func NewHub(buffer int, onDrop func(Event)) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{subs: make(map[uint64]*Subscription), buffer: buffer, onDrop: onDrop}
}

// Subscription is one consumer of hub events.
type Subscription struct {
	id       uint64
	filter   Filter
	events   chan Event
	staleSig chan struct{}
	stale    atomic.Bool
	hub      *Hub
	once     sync.Once
}

// Subscribe registers a consumer for events matching filter.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{
		id:       h.nextID,
		filter:   filter,
		events:   make(chan Event, h.buffer),
		staleSig: make(chan struct{}, 1),
		hub:      h,
	}
	h.subs[sub.id] = sub
	return sub
}

// Broadcast delivers e to every matching subscriber.
func (h *Hub) Broadcast(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.filter.Match(e) {
			continue
		}
		select {
		case sub.events <- e:
		default:
			sub.markStale()
			if h.onDrop != nil {
				h.onDrop(e)
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Events returns the delivery channel.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// StaleSignal fires once each time the subscription becomes stale.
func (s *Subscription) StaleSignal() <-chan struct{} {
	return s.staleSig
}

// Stale reports whether events were missed since the last Resync.
func (s *Subscription) Stale() bool {
	return s.stale.Load()
}

// Resync drops buffered events and clears the stale flag. Callers re-read state afterwards.
func (s *Subscription) Resync() {
	for {
		select {
		case <-s.events:
		default:
			s.stale.Store(false)
			return
		}
	}
}

// Close unregisters the subscription.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s.id) })
}

func (s *Subscription) markStale() {
	if s.stale.CompareAndSwap(false, true) {
		select {
		case s.staleSig <- struct{}{}:
		default:
		}
	}
}
