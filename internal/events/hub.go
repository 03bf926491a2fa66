package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

// Hub is an in-process Publisher fanning events out to subscribers by scope.
// Every subscriber has a bounded buffer; when it is full the event is
// dropped for that subscriber and publishing carries on.
type Hub struct {
	mu     sync.RWMutex
	subs   map[Scope]map[*Subscription]struct{}
	buffer int
	log    *zap.Logger
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[Scope]map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscription receives the events of its scopes on C until Close.
type Subscription struct {
	C <-chan Event

	ch     chan Event
	scopes []Scope
	hub    *Hub
	closed bool
}

// Subscribe registers a subscriber for the given scopes.
func (h *Hub) Subscribe(scopes ...Scope) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, scopes: scopes, hub: h}

	h.mu.Lock()
	for _, s := range scopes {
		set, ok := h.subs[s]
		if !ok {
			set = make(map[*Subscription]struct{})
			h.subs[s] = set
		}
		set[sub] = struct{}{}
	}
	h.mu.Unlock()

	prometheus.SSESubscribersGauge.Inc()
	return sub
}

// Close unregisters the subscription and closes C. It is safe to call more
// than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, scope := range s.scopes {
		if set, ok := h.subs[scope]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, scope)
			}
		}
	}
	close(s.ch)
	prometheus.SSESubscribersGauge.Dec()
}

// Publish never blocks on a slow subscriber.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.subs[ev.Scope]
	if len(set) == 0 {
		prometheus.RecordEventPublish(ev.Type, "unrouted")
		return nil
	}
	for sub := range set {
		select {
		case sub.ch <- ev:
			prometheus.RecordEventPublish(ev.Type, "delivered")
		default:
			prometheus.RecordEventPublish(ev.Type, "dropped")
			h.log.Warn("Dropped event for slow subscriber",
				zap.String("type", ev.Type),
				zap.String("scope", ev.Scope.String()))
		}
	}
	return nil
}

// Subscribers returns the number of subscriptions listening on scope.
func (h *Hub) Subscribers(scope Scope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[scope])
}
