package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/endpoint"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/wire"
)

type recordingObserver struct {
	messages []domain.ChatMessage
	acks     []string
}

func (r *recordingObserver) OnMessageReceived(msg domain.ChatMessage) {
	r.messages = append(r.messages, msg)
}

func (r *recordingObserver) OnAckReceived(uuid string, isRead bool, ackTime time.Time) {
	r.acks = append(r.acks, uuid)
}

func mustEndpoint(t *testing.T, kind endpoint.Kind, addr string) endpoint.Endpoint {
	t.Helper()
	return endpoint.New(kind, addr)
}

func TestHandleReceivedBytesDropsSelfOriginated(t *testing.T) {
	local := domain.Peer{ID: "me", Name: "Me"}
	d := New(local, nil, wire.NewDevCodec())
	obs := &recordingObserver{}
	d.AddObserver(obs)

	msg := domain.ChatMessage{UUID: "m1", Sender: local, Text: "hi", Status: domain.NewSent(time.Now(), nil)}
	data, err := wire.NewDevCodec().Encode(msg)
	require.NoError(t, err)

	d.HandleReceivedBytes(data, mustEndpoint(t, endpoint.KindDatagramIP, "127.0.0.1:9000"))
	assert.Empty(t, obs.messages)
}

func TestHandleReceivedBytesUnknownSenderBecomesPlaceholder(t *testing.T) {
	local := domain.Peer{ID: "me"}
	d := New(local, nil, wire.NewDevCodec())
	obs := &recordingObserver{}
	d.AddObserver(obs)

	stranger := domain.Peer{ID: "ghost"}
	msg := domain.ChatMessage{UUID: "m2", Sender: stranger, Text: "hi", Status: domain.NewSent(time.Now(), nil)}
	data, err := wire.NewDevCodec().Encode(msg)
	require.NoError(t, err)

	d.HandleReceivedBytes(data, mustEndpoint(t, endpoint.KindDatagramIP, "127.0.0.1:9000"))
	require.Len(t, obs.messages, 1)
	assert.Equal(t, domain.UnknownPeerName, obs.messages[0].Sender.Name)
}

func TestHandleReceivedBytesNotifiesAck(t *testing.T) {
	local := domain.Peer{ID: "me"}
	d := New(local, nil, wire.NewDevCodec())
	obs := &recordingObserver{}
	d.AddObserver(obs)

	data, err := wire.NewDevCodec().EncodeAck(wire.Ack{UUID: "m3", IsRead: true, AckTime: time.Now()}, "peer-a")
	require.NoError(t, err)

	d.HandleReceivedBytes(data, mustEndpoint(t, endpoint.KindDatagramIP, "127.0.0.1:9000"))
	require.Len(t, obs.acks, 1)
	assert.Equal(t, "m3", obs.acks[0])
}

func TestHandleReceivedBytesDropsMalformedFrame(t *testing.T) {
	local := domain.Peer{ID: "me"}
	d := New(local, nil, wire.NewProtoCodec())
	obs := &recordingObserver{}
	d.AddObserver(obs)

	d.HandleReceivedBytes([]byte{0xff, 0xff, 0xff}, mustEndpoint(t, endpoint.KindDatagramIP, "127.0.0.1:9000"))
	assert.Empty(t, obs.messages)
	assert.Empty(t, obs.acks)
}

func TestAddAndRemovePeer(t *testing.T) {
	local := domain.Peer{ID: "me"}
	d := New(local, nil, wire.NewDevCodec())

	d.AddPeer(domain.Peer{ID: "p1", Name: "Alice"})
	assert.Len(t, d.Peers(), 1)

	d.AddPeer(domain.Peer{ID: "p1", Name: "Alice Renamed"})
	peers := d.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, "Alice Renamed", peers[0].Name)

	assert.True(t, d.RemovePeer("p1"))
	assert.Empty(t, d.Peers())
	assert.False(t, d.RemovePeer("p1"))
}

func TestChooseAckEndpointPrefersOriginFamily(t *testing.T) {
	sender := domain.Peer{ID: "s1", Endpoints: []endpoint.Endpoint{
		endpoint.New(endpoint.KindBundle, "ipn:7.1"),
		endpoint.New(endpoint.KindDatagramIP, "127.0.0.1:9001"),
	}}
	origin := endpoint.New(endpoint.KindDatagramIP, "127.0.0.1:9000")

	chosen, ok := chooseAckEndpoint(sender, origin)
	require.True(t, ok)
	assert.Equal(t, endpoint.KindDatagramIP, chosen.Kind)
}

func TestChooseAckEndpointFallsBackToPreferenceOrder(t *testing.T) {
	sender := domain.Peer{ID: "s1", Endpoints: []endpoint.Endpoint{
		endpoint.New(endpoint.KindDatagramIP, "127.0.0.1:9001"),
		endpoint.New(endpoint.KindStreamIP, "127.0.0.1:9002"),
	}}
	origin := endpoint.New(endpoint.KindBundle, "ipn:7.1")

	chosen, ok := chooseAckEndpoint(sender, origin)
	require.True(t, ok)
	assert.Equal(t, endpoint.KindStreamIP, chosen.Kind)
}
