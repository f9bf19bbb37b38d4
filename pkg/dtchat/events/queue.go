// Package events implements the thread-safe queue of AppEvents a
// UI or headless consumer drains to learn what changed.
package events

import (
	"sync"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
)

// Redrawer is notified whenever a Received event is pushed, so a UI
// layer can schedule a redraw without polling. Optional: a queue with no
// redrawer registered just accumulates events for Drain.
type Redrawer interface {
	RequestRedraw()
}

// EventQueue buffers AppEvents for a consumer to drain at its own
// pace. Safe for concurrent Push from many goroutines.
type EventQueue struct {
	mu       sync.Mutex
	pending  []domain.AppEvent
	redrawer Redrawer
}

// New builds an empty queue with no redrawer attached.
func New() *EventQueue {
	return &EventQueue{}
}

// SetRedrawer attaches (or clears, with nil) the redraw hook.
func (q *EventQueue) SetRedrawer(r Redrawer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.redrawer = r
}

// Push appends an event and, for Received events, notifies the
// attached redrawer: Sent and Error events don't warrant an
// unsolicited UI refresh, since they're already a direct result of the
// caller's own action.
func (q *EventQueue) Push(e domain.AppEvent) {
	q.mu.Lock()
	q.pending = append(q.pending, e)
	r := q.redrawer
	q.mu.Unlock()

	if r != nil && e.Kind == domain.EventReceived {
		r.RequestRedraw()
	}
}

// Drain removes and returns every pending event, in push order.
func (q *EventQueue) Drain() []domain.AppEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// Len reports how many events are currently pending.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
