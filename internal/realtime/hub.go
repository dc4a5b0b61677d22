// Package realtime fans out engine events to connected viewer sessions
// over websockets. Sessions subscribe to a single timing point at a time
// (a client discipline, not enforced here) and receive every mutation of
// that point's log the moment it is acknowledged.
package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handtiming_events_published_total",
		Help: "Events delivered to subscriber groups, by type.",
	}, []string{"type"})
	sessionsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "handtiming_sessions_connected",
		Help: "Currently connected websocket sessions.",
	})
)

// Hub owns the only mutable subscription state in the process: which
// session listens to which timing point. Nothing outside this package
// touches the maps; everyone else goes through the operation contract.
type Hub struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
	subs     map[string]map[*Session]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		subs:     make(map[string]map[*Session]struct{}),
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
	sessionsConnected.Inc()
}

// Unregister drops a session and all its subscriptions. No event is
// emitted; reconnecting clients re-fetch full state anyway.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(s)
}

func (h *Hub) dropLocked(s *Session) {
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	for tpID, group := range h.subs {
		delete(group, s)
		if len(group) == 0 {
			delete(h.subs, tpID)
		}
	}
	close(s.send)
	sessionsConnected.Dec()
}

// Subscribe adds the session to a timing point's group. Subscribing
// twice is a no-op.
func (h *Hub) Subscribe(s *Session, timingPointID string) {
	if timingPointID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	group, ok := h.subs[timingPointID]
	if !ok {
		group = make(map[*Session]struct{})
		h.subs[timingPointID] = group
	}
	group[s] = struct{}{}
}

// Unsubscribe removes the session from a group. Unsubscribing when not
// subscribed is a no-op, not an error.
func (h *Hub) Unsubscribe(s *Session, timingPointID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.subs[timingPointID]
	if !ok {
		return
	}
	delete(group, s)
	if len(group) == 0 {
		delete(h.subs, timingPointID)
	}
}

// Publish delivers the event to exactly the sessions currently
// subscribed to the timing point, best effort per session.
func (h *Hub) Publish(timingPointID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: marshal %s event: %v", event.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	eventsPublished.WithLabelValues(event.Type).Inc()
	for s := range h.subs[timingPointID] {
		h.enqueueLocked(s, payload)
	}
}

// BroadcastGlobal delivers the event to every connected session
// irrespective of subscription.
func (h *Hub) BroadcastGlobal(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: marshal %s event: %v", event.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	eventsPublished.WithLabelValues(event.Type).Inc()
	for s := range h.sessions {
		h.enqueueLocked(s, payload)
	}
}

// enqueueLocked hands the payload to the session's writer without ever
// blocking the mutating request. A session that cannot keep up is
// dropped; it reconciles by re-listing on reconnect.
func (h *Hub) enqueueLocked(s *Session, payload []byte) {
	select {
	case s.send <- payload:
	default:
		log.Printf("realtime: dropping slow session")
		h.dropLocked(s)
	}
}

// DropTimingPoint clears the whole subscriber group, used when a timing
// point is deleted. Sessions stay connected; only the subscription goes.
func (h *Hub) DropTimingPoint(timingPointID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, timingPointID)
}

// Subscribers returns the group size for a timing point.
func (h *Hub) Subscribers(timingPointID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[timingPointID])
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
