// Package domain holds the shared value types exchanged between every
// other dtchat package: peers, rooms, messages and their shipment
// status.
package domain

import "github.com/DTN-MTP/DTChat/pkg/dtchat/endpoint"

// Peer is a stable chat participant. Identity is by ID; a Peer is
// immutable after it is loaded from configuration.
type Peer struct {
	ID        string
	Name      string
	Color     int
	Endpoints []endpoint.Endpoint
}

// UnknownPeerName is attributed to inbound messages whose sender_uuid
// does not resolve against the roster.
const UnknownPeerName = "Unknown"

// UnknownPeer builds the anonymous placeholder used when a message's
// sender cannot be resolved against the roster.
func UnknownPeer(id string) Peer {
	return Peer{ID: id, Name: UnknownPeerName}
}

// FirstValidEndpoint returns the first endpoint that passes validation,
// in configured order.
func (p Peer) FirstValidEndpoint() (endpoint.Endpoint, bool) {
	for _, e := range p.Endpoints {
		if e.IsValid() {
			return e, true
		}
	}
	return endpoint.Endpoint{}, false
}

// ValidEndpoints returns every endpoint that passes validation, in
// configured order.
func (p Peer) ValidEndpoints() []endpoint.Endpoint {
	var out []endpoint.Endpoint
	for _, e := range p.Endpoints {
		if e.IsValid() {
			out = append(out, e)
		}
	}
	return out
}

// Room is chat-room metadata. The wire format does not carry real
// per-room isolation (see RoomUUID), so Room only matters to the
// presentation layer.
type Room struct {
	ID   string
	Name string
}

// RoomUUID is the literal room identifier every message is tagged
// with on the wire.
const RoomUUID = "default"

// FindPeer returns the peer with the given ID, or false.
func FindPeer(peers []Peer, id string) (Peer, bool) {
	for _, p := range peers {
		if p.ID == id {
			return p, true
		}
	}
	return Peer{}, false
}
