// Package dtchattest provides shared test scaffolding for spinning up
// in-process dtchat nodes and waiting on asynchronous delivery.
package dtchattest

import (
	"time"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/dispatcher"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/endpoint"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/events"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/outbound"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/store"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/transport"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/wire"
)

// WaitThisOrTimeout runs cb to completion in a goroutine and reports
// whether it finished before duration elapsed.
func WaitThisOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan struct{})
	go func() {
		cb()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}

// Node bundles the pieces one dtchat participant needs: identity,
// roster, a running listener socket, dispatcher, store and sender.
type Node struct {
	Peer       domain.Peer
	Dispatcher *dispatcher.Dispatcher
	Store      *store.ConversationStore
	Events     *events.EventQueue
	Sender     *outbound.Sender
	socket     transport.Socket
}

// Close tears down the node's listener socket.
func (n *Node) Close() error {
	if n.socket == nil {
		return nil
	}
	return n.socket.Close()
}

// NewNode builds and starts a node listening on self's first valid
// endpoint, with peers preloaded into its dispatcher's roster.
func NewNode(self domain.Peer, peers []domain.Peer, codec wire.Codec) (*Node, error) {
	ep, ok := self.FirstValidEndpoint()
	if !ok {
		return nil, endpoint.ErrInvalidFormat
	}

	d := dispatcher.New(self, peers, codec)
	q := events.New()
	st := store.New(store.StandardOrdering{}, q)
	d.AddObserver(st)

	sock, err := transport.New(ep)
	if err != nil {
		return nil, err
	}
	if err := sock.StartListener(d); err != nil {
		return nil, err
	}

	sender := outbound.New(d, st, nil, codec, q)

	return &Node{
		Peer:       self,
		Dispatcher: d,
		Store:      st,
		Events:     q,
		Sender:     sender,
		socket:     sock,
	}, nil
}
