// Package dispatcher is the single point every inbound byte stream
// passes through, translating wire bytes into domain events and
// fanning them out to observers.
package dispatcher

import (
	"sync"
	"time"

	"github.com/DTN-MTP/DTChat/internal/logging"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/ackproto"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/endpoint"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/transport"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/wire"
)

// Observer is notified of every decoded inbound message or ACK. Any
// number of observers may be registered, and none of them may block
// the dispatcher for long: observer callbacks run synchronously inside
// HandleReceivedBytes, on the goroutine the listener started for that
// datagram or connection.
type Observer interface {
	OnMessageReceived(msg domain.ChatMessage)
	OnAckReceived(uuid string, isRead bool, ackTime time.Time)
}

var log logging.Logger = logging.New("dispatcher")

// Dispatcher owns the local peer's identity and roster, and is the
// transport.Receiver every socket's listener delivers bytes to.
type Dispatcher struct {
	mu        sync.Mutex
	local     domain.Peer
	peers     []domain.Peer
	observers []Observer
	codec     wire.Codec
	ackDelay  ackproto.Delay
}

// New builds a Dispatcher for the given local identity, starting
// roster and wire codec.
func New(local domain.Peer, peers []domain.Peer, codec wire.Codec) *Dispatcher {
	return &Dispatcher{
		local:    local,
		peers:    append([]domain.Peer(nil), peers...),
		codec:    codec,
		ackDelay: ackproto.DefaultDelay(),
	}
}

// SetAckDelay overrides the random ACK delay window.
func (d *Dispatcher) SetAckDelay(delay ackproto.Delay) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ackDelay = delay
}

// AddObserver registers an observer. Safe to call concurrently with
// itself and with HandleReceivedBytes.
func (d *Dispatcher) AddObserver(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// LocalPeer returns the dispatcher's own identity.
func (d *Dispatcher) LocalPeer() domain.Peer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local
}

// Peers returns a snapshot of the known roster, local peer excluded.
func (d *Dispatcher) Peers() []domain.Peer {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Peer, len(d.peers))
	copy(out, d.peers)
	return out
}

// AddPeer adds or replaces a peer in the roster by ID, enabling
// runtime roster mutation (e.g. a peer discovered or reconfigured
// after startup).
func (d *Dispatcher) AddPeer(p domain.Peer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.peers {
		if existing.ID == p.ID {
			d.peers[i] = p
			return
		}
	}
	d.peers = append(d.peers, p)
}

// RemovePeer drops a peer from the roster by ID, reporting whether it
// was present.
func (d *Dispatcher) RemovePeer(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.peers {
		if existing.ID == id {
			d.peers = append(d.peers[:i], d.peers[i+1:]...)
			return true
		}
	}
	return false
}

// rosterAndSelf returns a snapshot of (peers, local, codec, ackDelay)
// under lock.
func (d *Dispatcher) rosterAndSelf() ([]domain.Peer, domain.Peer, wire.Codec, ackproto.Delay) {
	d.mu.Lock()
	defer d.mu.Unlock()
	peers := make([]domain.Peer, len(d.peers))
	copy(peers, d.peers)
	return peers, d.local, d.codec, d.ackDelay
}

// HandleReceivedBytes implements transport.Receiver. It decodes the
// payload, drops self-originated messages, resolves an unknown
// sender to the placeholder peer, triggers an
// async ACK for inbound text messages, and notifies observers.
func (d *Dispatcher) HandleReceivedBytes(data []byte, origin endpoint.Endpoint) {
	peers, local, codec, ackDelay := d.rosterAndSelf()

	decoded, err := codec.Decode(data, peers)
	if err != nil {
		log.Warnf("decode error from %s: %v", origin, err)
		return
	}
	if decoded == nil {
		log.Debugf("dropped malformed frame from %s", origin)
		return
	}

	switch {
	case decoded.Message != nil:
		msg := *decoded.Message
		if msg.Sender.ID == local.ID {
			log.Warnf("dropped self-originated message %s from %s", msg.UUID, origin)
			return
		}
		d.sendAckIfNeeded(msg, origin, peers, local, codec, ackDelay)
		d.notifyMessage(msg)
	case decoded.Ack != nil:
		d.notifyAck(decoded.Ack.UUID, decoded.Ack.IsRead, decoded.Ack.AckTime)
	}
}

// sendAckIfNeeded resolves the best endpoint to ack the sender on
// (Bundle > StreamIP > DatagramIP, preferring a family match with the
// endpoint the message arrived on) and schedules the async send.
func (d *Dispatcher) sendAckIfNeeded(msg domain.ChatMessage, origin endpoint.Endpoint, peers []domain.Peer, local domain.Peer, codec wire.Codec, ackDelay ackproto.Delay) {
	sender, ok := domain.FindPeer(peers, msg.Sender.ID)
	if !ok {
		log.Debugf("no roster entry for sender %s, skipping ack", msg.Sender.ID)
		return
	}
	target, ok := chooseAckEndpoint(sender, origin)
	if !ok {
		log.Debugf("no valid endpoint to ack sender %s on", sender.ID)
		return
	}
	sock, err := transport.New(target)
	if err != nil {
		log.Warnf("failed opening ack socket to %s: %v", target, err)
		return
	}
	ackproto.SendAckAsync(msg, sock, local.ID, false, codec, ackDelay)
}

// chooseAckEndpoint implements the endpoint preference: Bundle >
// StreamIP > DatagramIP, with a same-family-as-origin endpoint
// preferred over a higher-ranked but different-family one.
func chooseAckEndpoint(sender domain.Peer, origin endpoint.Endpoint) (endpoint.Endpoint, bool) {
	valid := sender.ValidEndpoints()
	if len(valid) == 0 {
		return endpoint.Endpoint{}, false
	}

	if same, ok := firstOfKind(valid, origin.Kind); ok {
		return same, true
	}

	for _, kind := range []endpoint.Kind{endpoint.KindBundle, endpoint.KindStreamIP, endpoint.KindDatagramIP} {
		if match, ok := firstOfKind(valid, kind); ok {
			return match, true
		}
	}
	return endpoint.Endpoint{}, false
}

func firstOfKind(endpoints []endpoint.Endpoint, kind endpoint.Kind) (endpoint.Endpoint, bool) {
	for _, e := range endpoints {
		if e.Kind == kind {
			return e, true
		}
	}
	return endpoint.Endpoint{}, false
}

func (d *Dispatcher) notifyMessage(msg domain.ChatMessage) {
	d.mu.Lock()
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	for _, o := range observers {
		o.OnMessageReceived(msg)
	}
}

func (d *Dispatcher) notifyAck(uuid string, isRead bool, ackTime time.Time) {
	d.mu.Lock()
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	for _, o := range observers {
		o.OnAckReceived(uuid, isRead, ackTime)
	}
}
