// Package ackproto builds and transmits acknowledgements.
package ackproto

import (
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/DTN-MTP/DTChat/internal/logging"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/transport"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/wire"
)

// Delay configures the random ACK delay window
// (DTCHAT_ACK_DELAY / DTCHAT_ACK_DELAY_MS).
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// DefaultDelay is the [50ms, 200ms] window used when no environment
// override is present.
func DefaultDelay() Delay {
	return Delay{Min: 50 * time.Millisecond, Max: 200 * time.Millisecond}
}

// DelayFromEnv resolves the ACK delay window from the environment.
// DTCHAT_ACK_DELAY takes priority: it names a central delay in
// milliseconds and the effective window is [0.75x, 1.25x] of it.
// DTCHAT_ACK_DELAY_MS is the simpler alternative: a single fixed
// millisecond delay, exposed as a zero-width window. With neither set,
// DefaultDelay applies.
func DelayFromEnv() Delay {
	if v := os.Getenv("DTCHAT_ACK_DELAY"); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil && ms >= 0 {
			return Delay{
				Min: time.Duration(ms*0.75) * time.Millisecond,
				Max: time.Duration(ms*1.25) * time.Millisecond,
			}
		}
	}
	if v := os.Getenv("DTCHAT_ACK_DELAY_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms >= 0 {
			d := time.Duration(ms) * time.Millisecond
			return Delay{Min: d, Max: d}
		}
	}
	return DefaultDelay()
}

// Sleep blocks for a random duration drawn from [Min, Max].
func (d Delay) Sleep() {
	if d.Max <= d.Min {
		time.Sleep(d.Min)
		return
	}
	span := d.Max - d.Min
	time.Sleep(d.Min + time.Duration(rand.Int63n(int64(span))))
}

var log logging.Logger = logging.New("ackproto")

// BuildAck returns the acknowledgement for an incoming message: its
// UUID, the read flag and the current time. The record carries no
// sender; the ACK's sender_uuid is stamped by Codec.EncodeAck, which
// SendAckAsync calls with localPeerID, so it is always the local
// (acking) peer's identifier, never the original message's sender.
func BuildAck(original domain.ChatMessage, localPeerID string, isRead bool) wire.Ack {
	return wire.Ack{
		UUID:    original.UUID,
		IsRead:  isRead,
		AckTime: time.Now(),
	}
}

// SendAckAsync builds, serializes and sends an ACK in the background.
// All errors are logged and never propagated to the originating
// receive path.
func SendAckAsync(original domain.ChatMessage, sock transport.Socket, localPeerID string, isRead bool, codec wire.Codec, delay Delay) {
	go func() {
		delay.Sleep()
		ack := BuildAck(original, localPeerID, isRead)
		data, err := codec.EncodeAck(ack, localPeerID)
		if err != nil {
			log.Errorf("failed building ack for %s: %v", original.UUID, err)
			return
		}
		if err := sock.Send(data); err != nil {
			log.Errorf("failed sending ack for %s: %v", original.UUID, err)
			return
		}
		log.Debugf("sent ack for %s (read=%v)", original.UUID, isRead)
	}()
}
