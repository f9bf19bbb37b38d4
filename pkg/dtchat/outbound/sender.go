// Package outbound composes a locally-authored message, records it
// in the conversation store, and delivers it over the network in the
// background.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DTN-MTP/DTChat/internal/logging"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/dispatcher"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/endpoint"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/events"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/routing"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/store"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/transport"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/wire"
)

// ErrSelfSend is returned when the caller targets the local peer as
// the receiver: a node never sends a message to itself.
var ErrSelfSend = errors.New("outbound: cannot send a message to the local peer")

var log logging.Logger = logging.New("outbound")

// Sender composes outbound messages. It is safe for concurrent use.
type Sender struct {
	dispatcher *dispatcher.Dispatcher
	store      *store.ConversationStore
	predictor  *routing.Predictor // nil disables predicted-arrival-time (PBAT) lookups
	codec      wire.Codec
	queue      *events.EventQueue // nil disables event fan-out
}

// New builds a Sender. predictor and queue may both be nil.
func New(d *dispatcher.Dispatcher, s *store.ConversationStore, predictor *routing.Predictor, codec wire.Codec, queue *events.EventQueue) *Sender {
	return &Sender{dispatcher: d, store: s, predictor: predictor, codec: codec, queue: queue}
}

// Send composes a ChatMessage to receiver, records it in the store
// immediately (so the UI reflects it before the network round trip
// even starts), and delivers it over the network in a background
// goroutine. Send returns once the message is stored, not once it is
// delivered; delivery failures are logged and surfaced as an
// AppEvent, never returned from Send.
func (s *Sender) Send(ctx context.Context, text string, receiver domain.Peer, pbatEnabled bool) error {
	local := s.dispatcher.LocalPeer()
	if receiver.ID == local.ID {
		return ErrSelfSend
	}

	now := time.Now()
	predicted := s.predictArrival(pbatEnabled, local, receiver, len(text))

	msg := domain.ChatMessage{
		UUID:   domain.NewMessageID(),
		Sender: local,
		Text:   text,
		Status: domain.NewSent(now, predicted),
	}

	s.store.AddMessage(msg, domain.DirectionSent)
	go s.deliver(ctx, msg, receiver)
	return nil
}

// predictArrival looks up a predicted bundle-arrival time (PBAT) when
// PBAT is enabled, a predictor is configured, and both ends expose a
// bundle-protocol endpoint with a resolvable ION node. Any failure to
// predict is silent: PBAT is advisory, never required for delivery.
func (s *Sender) predictArrival(pbatEnabled bool, local, receiver domain.Peer, size int) *time.Time {
	if !pbatEnabled || s.predictor == nil {
		return nil
	}
	srcNode, ok := ionNodeOf(local)
	if !ok {
		return nil
	}
	dstNode, ok := ionNodeOf(receiver)
	if !ok {
		return nil
	}
	arrival, err := s.predictor.Predict(srcNode, dstNode, float64(size))
	if err != nil {
		log.Debugf("no predicted arrival time for %s -> %s: %v", srcNode, dstNode, err)
		return nil
	}
	return &arrival
}

func ionNodeOf(p domain.Peer) (string, bool) {
	for _, e := range p.ValidEndpoints() {
		if node, ok := e.IONNode(); ok {
			return node, true
		}
	}
	return "", false
}

func (s *Sender) deliver(ctx context.Context, msg domain.ChatMessage, receiver domain.Peer) {
	data, err := s.codec.Encode(msg)
	if err != nil {
		s.reportError(fmt.Sprintf("encoding message %s: %v", msg.UUID, err))
		return
	}

	select {
	case <-ctx.Done():
		s.reportError(fmt.Sprintf("send of %s cancelled: %v", msg.UUID, ctx.Err()))
		return
	default:
	}

	ep, err := s.sendWithFallback(data, receiver)
	if err != nil {
		s.reportError(fmt.Sprintf("sending message %s to %s: %v", msg.UUID, receiver.Name, err))
		return
	}
	log.Debugf("delivered message %s to %s", msg.UUID, ep)
}

// sendWithFallback tries every one of receiver's valid endpoints in
// order, returning on the first successful send. A socket-open or
// send failure on one endpoint is logged and the next endpoint is
// tried rather than giving up immediately; only when every endpoint
// has failed is an error returned.
func (s *Sender) sendWithFallback(data []byte, receiver domain.Peer) (endpoint.Endpoint, error) {
	valid := receiver.ValidEndpoints()
	if len(valid) == 0 {
		return endpoint.Endpoint{}, fmt.Errorf("no valid endpoint for %s", receiver.Name)
	}

	var lastErr error
	for _, ep := range valid {
		sock, err := transport.New(ep)
		if err != nil {
			log.Debugf("opening socket to %s: %v", ep, err)
			lastErr = err
			continue
		}
		if err := sock.Send(data); err != nil {
			log.Debugf("sending via %s: %v", ep, err)
			_ = sock.Close()
			lastErr = err
			continue
		}
		sock.Close()
		return ep, nil
	}
	return endpoint.Endpoint{}, fmt.Errorf("all endpoints failed for %s: %w", receiver.Name, lastErr)
}

func (s *Sender) reportError(text string) {
	log.Warnf("%s", text)
	if s.queue != nil {
		s.queue.Push(domain.NewErrorEvent(text))
	}
}
