// Package store implements the per-room ordered message history,
// maintained by binary-search insertion under a pluggable
// OrderingStrategy.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/DTN-MTP/DTChat/internal/logging"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/events"
)

var log logging.Logger = logging.New("store")

// ConversationStore holds one room's messages in ordering-strategy
// sorted order. Safe for concurrent use: the dispatcher and the
// outbound sender both mutate it from separate goroutines.
type ConversationStore struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
	ordering OrderingStrategy
	queue    *events.EventQueue
}

// New builds an empty store. queue may be nil if no event fan-out is
// wanted (e.g. in unit tests).
func New(ordering OrderingStrategy, queue *events.EventQueue) *ConversationStore {
	if ordering == nil {
		ordering = StandardOrdering{}
	}
	return &ConversationStore{ordering: ordering, queue: queue}
}

// SetOrdering swaps the ordering strategy and re-sorts the existing
// history in place: changing strategy never drops or duplicates
// messages, only reorders them.
func (s *ConversationStore) SetOrdering(ordering OrderingStrategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ordering = ordering
	s.sortLocked()
}

// Messages returns a snapshot of the current ordering.
func (s *ConversationStore) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len reports how many messages the store currently holds.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// AddMessage inserts msg at its sorted position (the store never
// holds an out-of-order pair under its active strategy) and, if a
// queue is attached, enqueues the corresponding AppEvent. A message
// whose UUID is already present is a silent no-op (first-writer-wins):
// replaying the same wire bytes must not duplicate the entry.
func (s *ConversationStore) AddMessage(msg domain.ChatMessage, dir domain.Direction) {
	s.mu.Lock()
	if s.indexOfLocked(msg.UUID) >= 0 {
		s.mu.Unlock()
		log.Debugf("duplicate message %s ignored", msg.UUID)
		return
	}
	s.insertLocked(msg)
	s.mu.Unlock()

	if s.queue == nil {
		return
	}
	if dir == domain.DirectionReceived {
		s.queue.Push(domain.NewReceivedEvent(msg.Text))
	} else {
		s.queue.Push(domain.NewSentEvent(msg.Text))
	}
}

// UpdateMessageWithAck transitions a previously-Sent message to
// Received once its ACK arrives, re-positioning it if the strategy's
// ordering key changed. A second ACK for an already-Received message
// is a silent no-op.
func (s *ConversationStore) UpdateMessageWithAck(uuid string, isRead bool, ackTime time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(uuid)
	if idx < 0 {
		log.Debugf("ack for unknown message %s ignored", uuid)
		return false
	}
	msg := s.messages[idx]
	if msg.Status.Kind == domain.StatusReceived {
		log.Debugf("duplicate ack for %s ignored", uuid)
		return false
	}

	tx, _ := msg.Status.OrderingTimestamps()
	msg.Status = domain.NewReceived(tx, ackTime)

	s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	s.insertLocked(msg)
	return true
}

// SortMessages re-sorts the full history under the current strategy.
// AddMessage, UpdateMessageWithAck and SetOrdering already keep the
// store sorted, so this does not reorder anything on its own; changes
// made to a slice returned by Messages() are made to a copy and do not
// reach the store.
func (s *ConversationStore) SortMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortLocked()
}

func (s *ConversationStore) sortLocked() {
	ordering := s.ordering
	sort.SliceStable(s.messages, func(i, j int) bool {
		return less(ordering, s.messages[i], s.messages[j])
	})
}

func (s *ConversationStore) indexOfLocked(uuid string) int {
	for i, m := range s.messages {
		if m.UUID == uuid {
			return i
		}
	}
	return -1
}

// insertLocked places msg at the position sort.Search finds for its
// ordering key, keeping the slice sorted without a full re-sort.
func (s *ConversationStore) insertLocked(msg domain.ChatMessage) {
	ordering := s.ordering
	pos := sort.Search(len(s.messages), func(i int) bool {
		return less(ordering, msg, s.messages[i])
	})
	s.messages = append(s.messages, domain.ChatMessage{})
	copy(s.messages[pos+1:], s.messages[pos:])
	s.messages[pos] = msg
}

func less(ordering OrderingStrategy, a, b domain.ChatMessage) bool {
	ap, as := ordering.Key(a)
	bp, bs := ordering.Key(b)
	if !ap.Equal(bp) {
		return ap.Before(bp)
	}
	return as.Before(bs)
}

// OnMessageReceived implements the dispatcher.Observer shape
// structurally: a store can be registered directly as a dispatcher
// observer without either package importing the other.
func (s *ConversationStore) OnMessageReceived(msg domain.ChatMessage) {
	s.AddMessage(msg, domain.DirectionReceived)
}

// OnAckReceived implements the dispatcher.Observer shape structurally.
func (s *ConversationStore) OnAckReceived(uuid string, isRead bool, ackTime time.Time) {
	s.UpdateMessageWithAck(uuid, isRead, ackTime)
}
