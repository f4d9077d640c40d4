// Package events fans invocation lifecycle events out to diagnostic
// subscribers, primarily the WebSocket stream of the diagnostics API.
package events

import (
	"sync"
	"time"
)

type (
	// Phase is a state in the per-invocation pipeline
	Phase string

	// Event describes one lifecycle transition of one invocation
	Event struct {
		Time  time.Time `json:"time"`
		JobID string    `json:"job_id"`
		Flow  string    `json:"flow,omitempty"`
		Phase Phase     `json:"phase"`
		Error string    `json:"error,omitempty"`
	}

	// Hub broadcasts events to all current subscribers. Publishing never
	// blocks; a subscriber that falls behind loses events rather than
	// stalling the activity
	Hub struct {
		subs map[chan Event]struct{}
		mu   sync.RWMutex
	}
)

const (
	PhaseReceived     Phase = "received"
	PhaseFlowResolved Phase = "flow_resolved"
	PhaseInputsBuilt  Phase = "inputs_built"
	PhaseExecuted     Phase = "flow_executed"
	PhaseEnriched     Phase = "enriched"
	PhaseResolved     Phase = "outputs_resolved"
	PhaseReturned     Phase = "returned"
	PhaseFailed       Phase = "failed"
)

const subscriberBuffer = 16

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: map[chan Event]struct{}{}}
}

// Subscribe registers a new subscriber. The returned cancel function
// unregisters it and closes the channel; calling it again is a no-op
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber that has buffer room
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
