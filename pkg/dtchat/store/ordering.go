package store

import (
	"time"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
)

// OrderingStrategy decides the sort key used to place a message within
// the conversation. Standard and Relative(peer) are the two concrete
// strategies implemented here.
type OrderingStrategy interface {
	// Key returns the (primary, secondary) ordering timestamps for msg.
	Key(msg domain.ChatMessage) (primary, secondary time.Time)
	// Name identifies the strategy for logging/diagnostics.
	Name() string
}

// StandardOrdering orders purely on each message's own status
// timestamps: tx_time, then (tx_time or rx_time) as the tiebreak.
type StandardOrdering struct{}

func (StandardOrdering) Key(msg domain.ChatMessage) (time.Time, time.Time) {
	return msg.Status.OrderingTimestamps()
}

func (StandardOrdering) Name() string { return "standard" }

// RelativeOrdering re-orders the conversation relative to a chosen
// peer's clock: a message authored by that peer sorts on the time
// this node locally received it (rx_time), while every other message
// sorts on its own tx_time, approximating "as this peer would have
// seen the conversation unfold".
type RelativeOrdering struct {
	PeerID string
}

func (r RelativeOrdering) Key(msg domain.ChatMessage) (time.Time, time.Time) {
	primary, secondary := msg.Status.OrderingTimestamps()
	if msg.Sender.ID == r.PeerID {
		return secondary, secondary
	}
	return primary, primary
}

func (r RelativeOrdering) Name() string { return "relative:" + r.PeerID }
