package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatusKind discriminates the two MessageStatus variants.
type StatusKind int

const (
	// StatusSent: composed locally, awaiting (or never receiving) an ACK.
	StatusSent StatusKind = iota
	// StatusReceived: either an inbound message, or an outbound message
	// whose ACK has come back.
	StatusReceived
)

// MessageStatus is the shipment-status sum type.
//
//	Sent(tx_time, predicted_time?)
//	Received(tx_time, rx_or_ack_time)
type MessageStatus struct {
	Kind       StatusKind
	TxTime     time.Time
	Predicted  *time.Time // only meaningful when Kind == StatusSent
	SecondTime time.Time  // rx_time (inbound) or ack_time (outbound ACKed); only meaningful when Kind == StatusReceived
}

// NewSent builds a Sent status composed at tx.
func NewSent(tx time.Time, predicted *time.Time) MessageStatus {
	return MessageStatus{Kind: StatusSent, TxTime: tx, Predicted: predicted}
}

// NewReceived builds a Received status.
func NewReceived(tx, second time.Time) MessageStatus {
	return MessageStatus{Kind: StatusReceived, TxTime: tx, SecondTime: second}
}

// OrderingTimestamps returns the (primary, secondary) pair the store's
// Standard ordering strategy compares on: for Sent both fields are
// tx_time; for Received the pair is (tx_time, rx_time).
func (s MessageStatus) OrderingTimestamps() (primary, secondary time.Time) {
	if s.Kind == StatusSent {
		return s.TxTime, s.TxTime
	}
	return s.TxTime, s.SecondTime
}

// ChatMessage is a single message in the conversation store.
type ChatMessage struct {
	UUID     string
	ReplyTo  *string // empty/nil is equivalent to absent (spec boundary behaviour)
	Sender   Peer
	Text     string
	Status   MessageStatus
}

// Direction records whether a message was locally composed or received
// over the wire; it only affects which event the store emits on
// insertion.
type Direction int

const (
	DirectionSent Direction = iota
	DirectionReceived
)

// NewMessageID mints a fresh message identifier.
func NewMessageID() string {
	return uuid.NewString()
}

// NewPeerID mints a fresh peer identifier.
func NewPeerID() string {
	return uuid.NewString()
}
