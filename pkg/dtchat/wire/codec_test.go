package wire

import (
	"testing"
	"time"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
)

func TestProtoRoundTrip(t *testing.T) {
	codec := NewProtoCodec()
	sender := domain.Peer{ID: "peer-a", Name: "Alice"}
	now := time.UnixMilli(time.Now().UnixMilli())
	msg := domain.ChatMessage{
		UUID:   domain.NewMessageID(),
		Sender: sender,
		Text:   "hello",
		Status: domain.NewSent(now, nil),
	}

	data, err := codec.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(data, []domain.Peer{sender})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded == nil || decoded.Message == nil {
		t.Fatalf("expected a decoded message")
	}
	got := decoded.Message
	if got.UUID != msg.UUID || got.Text != msg.Text || got.Sender.ID != sender.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, msg)
	}
	if !got.Status.TxTime.Equal(now) {
		t.Fatalf("tx_time mismatch: got %v want %v", got.Status.TxTime, now)
	}
}

func TestEncodeRejectsEmptyText(t *testing.T) {
	codec := NewProtoCodec()
	msg := domain.ChatMessage{UUID: "x", Sender: domain.Peer{ID: "p"}, Text: ""}
	if _, err := codec.Encode(msg); err == nil {
		t.Fatalf("expected validation error for empty text")
	}
}

func TestEncodeRejectsEmptySender(t *testing.T) {
	codec := NewProtoCodec()
	msg := domain.ChatMessage{UUID: "x", Sender: domain.Peer{ID: ""}, Text: "hi"}
	if _, err := codec.Encode(msg); err == nil {
		t.Fatalf("expected validation error for empty sender")
	}
}

func TestDecodeMalformedReturnsNilNil(t *testing.T) {
	codec := NewProtoCodec()
	decoded, err := codec.Decode([]byte{0xff, 0xff, 0xff}, nil)
	if err != nil {
		t.Fatalf("expected no error, decode drops malformed input silently: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected nil decoded value for malformed input")
	}
}

func TestDecodeUnknownSenderIsPlaceholder(t *testing.T) {
	codec := NewProtoCodec()
	msg := domain.ChatMessage{
		UUID:   domain.NewMessageID(),
		Sender: domain.Peer{ID: "ghost"},
		Text:   "anyone there?",
		Status: domain.NewSent(time.Now(), nil),
	}
	data, err := codec.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := codec.Decode(data, nil)
	if err != nil || decoded == nil || decoded.Message == nil {
		t.Fatalf("expected a decoded message, err=%v decoded=%v", err, decoded)
	}
	if decoded.Message.Sender.Name != domain.UnknownPeerName {
		t.Fatalf("expected placeholder peer, got %+v", decoded.Message.Sender)
	}
}

func TestAckRoundTrip(t *testing.T) {
	codec := NewProtoCodec()
	ackTime := time.UnixMilli(time.Now().UnixMilli())
	data, err := codec.EncodeAck(Ack{UUID: "msg-1", IsRead: true, AckTime: ackTime}, "local-peer")
	if err != nil {
		t.Fatalf("encode ack: %v", err)
	}
	decoded, err := codec.Decode(data, nil)
	if err != nil || decoded == nil || decoded.Ack == nil {
		t.Fatalf("expected decoded ack, err=%v decoded=%v", err, decoded)
	}
	if decoded.Ack.UUID != "msg-1" || !decoded.Ack.IsRead {
		t.Fatalf("unexpected ack: %+v", decoded.Ack)
	}
}

func TestDevCodecRoundTrip(t *testing.T) {
	codec := NewDevCodec()
	sender := domain.Peer{ID: "peer-a", Name: "Alice"}
	msg := domain.ChatMessage{
		UUID:   domain.NewMessageID(),
		Sender: sender,
		Text:   "hi via dev mode",
		Status: domain.NewSent(time.UnixMilli(time.Now().UnixMilli()), nil),
	}
	data, err := codec.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := codec.Decode(data, []domain.Peer{sender})
	if err != nil || decoded == nil || decoded.Message == nil {
		t.Fatalf("expected decoded message, err=%v decoded=%v", err, decoded)
	}
	if decoded.Message.Text != msg.Text {
		t.Fatalf("text mismatch: %q vs %q", decoded.Message.Text, msg.Text)
	}
}

func TestDevCodecAck(t *testing.T) {
	codec := NewDevCodec()
	data, err := codec.EncodeAck(Ack{UUID: "abc", IsRead: false}, "local")
	if err != nil {
		t.Fatalf("encode ack: %v", err)
	}
	decoded, err := codec.Decode(data, nil)
	if err != nil || decoded == nil || decoded.Ack == nil {
		t.Fatalf("expected decoded ack, err=%v decoded=%v", err, decoded)
	}
	if decoded.Ack.UUID != "abc" || decoded.Ack.IsRead {
		t.Fatalf("unexpected ack: %+v", decoded.Ack)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte("hello world")
	frame := NewFrame(payload)
	encoded := frame.ToBytes()
	decoded, err := FrameFromBytes(encoded)
	if err != nil {
		t.Fatalf("frame decode: %v", err)
	}
	if string(decoded.Data) != string(payload) {
		t.Fatalf("frame payload mismatch: %q", decoded.Data)
	}
}

func TestFrameTruncated(t *testing.T) {
	if _, err := FrameFromBytes([]byte{0, 0, 0, 10, 1, 2}); err == nil {
		t.Fatalf("expected error for truncated frame")
	}
}
