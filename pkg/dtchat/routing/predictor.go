package routing

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DTN-MTP/DTChat/internal/logging"
)

var (
	// ErrUnknownNode is returned when source or destination doesn't
	// appear in the parsed contact plan.
	ErrUnknownNode = errors.New("routing: unknown ION node")
	// ErrNoRoute is returned when no path from source to destination
	// exists under the plan.
	ErrNoRoute = errors.New("routing: no route found")
)

var log logging.Logger = logging.New("routing")

// Predictor answers "when would a message of this size arrive" using
// a contact-graph earliest-arrival search (Dijkstra-style, keyed on
// arrival time) over a fixed, pre-parsed contact plan. No pack
// example ships a CGR implementation, so the search itself is
// hand-written on top of container/heap; see DESIGN.md.
type Predictor struct {
	mu          sync.Mutex
	plan        Plan
	cpStartTime time.Time
}

// NewPredictor parses planText and anchors its relative offsets to
// startTime (normally time.Now() at load time).
func NewPredictor(planText string, startTime time.Time) (*Predictor, error) {
	plan, err := ParseIONContactPlan(planText)
	if err != nil {
		return nil, err
	}
	return &Predictor{plan: plan, cpStartTime: startTime}, nil
}

// Nodes returns the ION node names known to the loaded plan.
func (p *Predictor) Nodes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.plan.Nodes))
	copy(out, p.plan.Nodes)
	return out
}

func (p *Predictor) hasNode(name string) bool {
	for _, n := range p.plan.Nodes {
		if n == name {
			return true
		}
	}
	return false
}

// searchState is one entry in the earliest-arrival priority queue.
type searchState struct {
	node    string
	arrival float64 // plan-relative seconds
}

type stateHeap []searchState

func (h stateHeap) Len() int            { return len(h) }
func (h stateHeap) Less(i, j int) bool  { return h[i].arrival < h[j].arrival }
func (h stateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *stateHeap) Push(x interface{}) { *h = append(*h, x.(searchState)) }
func (h *stateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Predict returns the wall-clock time a message of the given size
// (bytes) sent now from sourceION would arrive at destION, per spec
// §4.7. It returns ErrUnknownNode if either endpoint isn't in the
// plan, and ErrNoRoute if no path exists before the plan's contacts
// run out.
func (p *Predictor) Predict(sourceION, destION string, size float64) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasNode(sourceION) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownNode, sourceION)
	}
	if !p.hasNode(destION) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownNode, destION)
	}

	now := time.Since(p.cpStartTime).Seconds()
	if now < 0 {
		now = 0
	}

	best := map[string]float64{sourceION: now}
	pq := &stateHeap{{node: sourceION, arrival: now}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(searchState)
		if cur.arrival > best[cur.node] {
			continue // stale entry, a better arrival was already settled
		}
		if cur.node == destION {
			delay := time.Duration(cur.arrival * float64(time.Second))
			arrival := p.cpStartTime.Add(delay)
			log.Debugf("route %s -> %s: arrives at %s (plan offset %.3fs)", sourceION, destION, arrival, cur.arrival)
			return arrival, nil
		}

		for _, c := range p.plan.Contacts {
			if c.From != cur.node {
				continue
			}
			start := cur.arrival
			if c.Start > start {
				start = c.Start
			}
			if start > c.End {
				continue // contact already over by the time we could use it
			}
			txTime := 0.0
			if c.DataRate > 0 {
				txTime = size / c.DataRate
			}
			owlt := p.plan.owltBetween(c.From, c.To, start)
			arrival := start + txTime + owlt

			if existing, ok := best[c.To]; !ok || arrival < existing {
				best[c.To] = arrival
				heap.Push(pq, searchState{node: c.To, arrival: arrival})
			}
		}
	}

	return time.Time{}, fmt.Errorf("%w: %s -> %s", ErrNoRoute, sourceION, destION)
}
