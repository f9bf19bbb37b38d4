package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/events"
)

func msgAt(uuid string, senderID string, t time.Time) domain.ChatMessage {
	return domain.ChatMessage{
		UUID:   uuid,
		Sender: domain.Peer{ID: senderID},
		Text:   uuid,
		Status: domain.NewSent(t, nil),
	}
}

func msgTxRx(uuid string, senderID string, base time.Time, txOffset, rxOffset time.Duration) domain.ChatMessage {
	return domain.ChatMessage{
		UUID:   uuid,
		Sender: domain.Peer{ID: senderID},
		Text:   uuid,
		Status: domain.NewReceived(base.Add(txOffset), base.Add(rxOffset)),
	}
}

func TestAddMessageKeepsSortedOrder(t *testing.T) {
	s := New(StandardOrdering{}, nil)
	base := time.Now()

	s.AddMessage(msgAt("c", "p1", base.Add(3*time.Second)), domain.DirectionSent)
	s.AddMessage(msgAt("a", "p1", base.Add(1*time.Second)), domain.DirectionSent)
	s.AddMessage(msgAt("b", "p1", base.Add(2*time.Second)), domain.DirectionSent)

	got := s.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].UUID, got[1].UUID, got[2].UUID})
}

func TestUpdateMessageWithAckRepositions(t *testing.T) {
	s := New(StandardOrdering{}, nil)
	base := time.Now()

	s.AddMessage(msgAt("early", "p1", base), domain.DirectionSent)
	s.AddMessage(msgAt("late", "p1", base.Add(10*time.Second)), domain.DirectionSent)

	ok := s.UpdateMessageWithAck("early", false, base.Add(20*time.Second))
	require.True(t, ok)

	got := s.Messages()
	require.Len(t, got, 2)
	assert.Equal(t, domain.StatusReceived, got[0].Status.Kind)
}

func TestDuplicateAckIsNoOp(t *testing.T) {
	s := New(StandardOrdering{}, nil)
	base := time.Now()
	s.AddMessage(msgAt("m1", "p1", base), domain.DirectionSent)

	require.True(t, s.UpdateMessageWithAck("m1", false, base.Add(time.Second)))
	assert.False(t, s.UpdateMessageWithAck("m1", false, base.Add(2*time.Second)))
}

func TestAckForUnknownMessageIsNoOp(t *testing.T) {
	s := New(StandardOrdering{}, nil)
	assert.False(t, s.UpdateMessageWithAck("ghost", false, time.Now()))
}

func TestSetOrderingResortsWithoutLosingMessages(t *testing.T) {
	s := New(StandardOrdering{}, nil)
	base := time.Now()

	alice := msgAt("a1", "alice", base)
	bob := msgAt("b1", "bob", base.Add(5*time.Second))
	s.AddMessage(alice, domain.DirectionSent)
	s.AddMessage(bob, domain.DirectionReceived)

	s.SetOrdering(RelativeOrdering{PeerID: "alice"})
	got := s.Messages()
	require.Len(t, got, 2)

	uuids := map[string]bool{got[0].UUID: true, got[1].UUID: true}
	assert.True(t, uuids["a1"])
	assert.True(t, uuids["b1"])
}

func TestAddMessagePushesEventWhenQueueAttached(t *testing.T) {
	q := events.New()
	s := New(StandardOrdering{}, q)

	s.AddMessage(msgAt("m1", "p1", time.Now()), domain.DirectionReceived)
	drained := q.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, domain.EventReceived, drained[0].Kind)
}

func TestRelativeOrderingAnchorsSenderOnReceiveTime(t *testing.T) {
	s := New(StandardOrdering{}, nil)
	base := time.Now()

	m1 := msgTxRx("m1", "alice", base, 100*time.Millisecond, 110*time.Millisecond)
	m2 := msgTxRx("m2", "bob", base, 105*time.Millisecond, 108*time.Millisecond)
	m3 := msgTxRx("m3", "alice", base, 115*time.Millisecond, 112*time.Millisecond)

	s.AddMessage(m1, domain.DirectionReceived)
	s.AddMessage(m2, domain.DirectionReceived)
	s.AddMessage(m3, domain.DirectionReceived)

	s.SetOrdering(RelativeOrdering{PeerID: "alice"})
	got := s.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"m2", "m1", "m3"}, []string{got[0].UUID, got[1].UUID, got[2].UUID})
}

func TestAddMessageDropsDuplicateUUID(t *testing.T) {
	q := events.New()
	s := New(StandardOrdering{}, q)
	base := time.Now()

	s.AddMessage(msgAt("m1", "p1", base), domain.DirectionReceived)
	s.AddMessage(msgAt("m1", "p1", base.Add(time.Second)), domain.DirectionReceived)

	assert.Equal(t, 1, s.Len())
	drained := q.Drain()
	assert.Len(t, drained, 1)
}

func TestObserverShapeUpdatesStore(t *testing.T) {
	s := New(StandardOrdering{}, nil)
	s.OnMessageReceived(msgAt("m1", "p1", time.Now()))
	require.Equal(t, 1, s.Len())

	s.OnAckReceived("m1", true, time.Now())
	got := s.Messages()
	assert.Equal(t, domain.StatusReceived, got[0].Status.Kind)
}
