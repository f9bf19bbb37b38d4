// Package wire maps a domain.ChatMessage or ACK to a framed byte
// sequence and back.
package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/wire/dtchatpb"
)

var (
	// ErrInvalidFormat is returned by Encode when validation fails
	// (empty text, empty sender identifier).
	ErrInvalidFormat = errors.New("wire: invalid format")
)

// Ack is the decoded shape of an acknowledgement record.
type Ack struct {
	UUID     string
	IsRead   bool
	AckTime  time.Time
}

// Decoded is the result of Decode: exactly one of Message/Ack is set.
type Decoded struct {
	Message *domain.ChatMessage
	Ack     *Ack
}

// Codec encodes/decodes a chat message or ACK to/from bytes.
type Codec interface {
	Encode(m domain.ChatMessage) ([]byte, error)
	EncodeAck(a Ack, localPeerUUID string) ([]byte, error)
	Decode(data []byte, peers []domain.Peer) (*Decoded, error)
}

// ProtoCodec is the canonical, length-delimited structured record
// codec.
type ProtoCodec struct{}

func NewProtoCodec() Codec { return ProtoCodec{} }

func (ProtoCodec) Encode(m domain.ChatMessage) ([]byte, error) {
	if err := validate(m); err != nil {
		return nil, err
	}
	pb := toProto(m)
	return dtchatpb.Marshal(pb), nil
}

func (ProtoCodec) EncodeAck(a Ack, localPeerUUID string) ([]byte, error) {
	if localPeerUUID == "" {
		return nil, fmt.Errorf("%w: sender UUID cannot be empty", ErrInvalidFormat)
	}
	pb := dtchatpb.ChatMessage{
		UUID:       domain.NewMessageID(),
		SenderUUID: localPeerUUID,
		Timestamp:  a.AckTime.UnixMilli(),
		RoomUUID:   domain.RoomUUID,
		Content:    dtchatpb.ContentDelivery,
		Delivery: dtchatpb.DeliveryStatus{
			TargetUUID: a.UUID,
			Received:   true,
			Read:       a.IsRead,
		},
	}
	return dtchatpb.Marshal(pb), nil
}

func (ProtoCodec) Decode(data []byte, peers []domain.Peer) (*Decoded, error) {
	if len(data) == 0 {
		return nil, nil
	}
	pb, err := dtchatpb.Unmarshal(data)
	if err != nil {
		// Malformed bytes are dropped silently by the listener;
		// Decode signals this with a nil, nil result rather than an error.
		return nil, nil
	}

	switch pb.Content {
	case dtchatpb.ContentText:
		sender, ok := domain.FindPeer(peers, pb.SenderUUID)
		if !ok {
			sender = domain.UnknownPeer(pb.SenderUUID)
		}
		var replyTo *string
		if pb.Text.ReplyToUUID != "" {
			rt := pb.Text.ReplyToUUID
			replyTo = &rt
		}
		msg := domain.ChatMessage{
			UUID:    pb.UUID,
			ReplyTo: replyTo,
			Sender:  sender,
			Text:    pb.Text.Content,
			Status:  domain.NewReceived(time.UnixMilli(pb.Timestamp), time.Now()),
		}
		return &Decoded{Message: &msg}, nil
	case dtchatpb.ContentDelivery:
		return &Decoded{Ack: &Ack{
			UUID:    pb.Delivery.TargetUUID,
			IsRead:  pb.Delivery.Read,
			AckTime: time.Now(),
		}}, nil
	case dtchatpb.ContentFile, dtchatpb.ContentPresence:
		// Reserved variants: this core never produces them; a record
		// carrying one is projected to the fixed placeholder text.
		sender, ok := domain.FindPeer(peers, pb.SenderUUID)
		if !ok {
			sender = domain.UnknownPeer(pb.SenderUUID)
		}
		msg := domain.ChatMessage{
			UUID:   pb.UUID,
			Sender: sender,
			Text:   dtchatpb.ReservedPlaceholder,
			Status: domain.NewReceived(time.UnixMilli(pb.Timestamp), time.Now()),
		}
		return &Decoded{Message: &msg}, nil
	default:
		return nil, nil
	}
}

func toProto(m domain.ChatMessage) dtchatpb.ChatMessage {
	tx, _ := m.Status.OrderingTimestamps()
	var replyTo string
	if m.ReplyTo != nil {
		replyTo = *m.ReplyTo
	}
	return dtchatpb.ChatMessage{
		UUID:       m.UUID,
		SenderUUID: m.Sender.ID,
		Timestamp:  tx.UnixMilli(),
		RoomUUID:   domain.RoomUUID,
		Content:    dtchatpb.ContentText,
		Text: dtchatpb.TextMessage{
			Content:     m.Text,
			ReplyToUUID: replyTo,
		},
	}
}

func validate(m domain.ChatMessage) error {
	if m.Text == "" {
		return fmt.Errorf("%w: message text cannot be empty", ErrInvalidFormat)
	}
	if m.Sender.ID == "" {
		return fmt.Errorf("%w: sender UUID cannot be empty", ErrInvalidFormat)
	}
	return nil
}

// devAckPrefix is the literal prefix dev-mode ACKs are tagged with.
const devAckPrefix = "[ACK] "

// DevCodec is the development-mode fallback: plain newline-terminated
// UTF-8 text instead of the structured binary record.
type DevCodec struct{}

func NewDevCodec() Codec { return DevCodec{} }

func (DevCodec) Encode(m domain.ChatMessage) ([]byte, error) {
	if err := validate(m); err != nil {
		return nil, err
	}
	tx, _ := m.Status.OrderingTimestamps()
	reply := ""
	if m.ReplyTo != nil {
		reply = *m.ReplyTo
	}
	line := strings.Join([]string{"TEXT", m.UUID, m.Sender.ID, strconv.FormatInt(tx.UnixMilli(), 10), reply, m.Text}, "|")
	return []byte(line + "\n"), nil
}

func (DevCodec) EncodeAck(a Ack, localPeerUUID string) ([]byte, error) {
	if localPeerUUID == "" {
		return nil, fmt.Errorf("%w: sender UUID cannot be empty", ErrInvalidFormat)
	}
	line := fmt.Sprintf("%s%s:%t", devAckPrefix, a.UUID, a.IsRead)
	return []byte(line + "\n"), nil
}

func (DevCodec) Decode(data []byte, peers []domain.Peer) (*Decoded, error) {
	line := strings.TrimRight(string(data), "\n")
	if line == "" {
		return nil, nil
	}
	if strings.HasPrefix(line, devAckPrefix) {
		rest := strings.TrimPrefix(line, devAckPrefix)
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 {
			return nil, nil
		}
		isRead := parts[1] == "true"
		return &Decoded{Ack: &Ack{UUID: parts[0], IsRead: isRead, AckTime: time.Now()}}, nil
	}

	parts := strings.SplitN(line, "|", 6)
	if len(parts) != 6 || parts[0] != "TEXT" {
		return nil, nil
	}
	uuid, senderID, tsStr, reply, text := parts[1], parts[2], parts[3], parts[4], parts[5]
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return nil, nil
	}
	sender, ok := domain.FindPeer(peers, senderID)
	if !ok {
		sender = domain.UnknownPeer(senderID)
	}
	var replyTo *string
	if reply != "" {
		replyTo = &reply
	}
	msg := domain.ChatMessage{
		UUID:    uuid,
		ReplyTo: replyTo,
		Sender:  sender,
		Text:    text,
		Status:  domain.NewReceived(time.UnixMilli(ts), time.Now()),
	}
	return &Decoded{Message: &msg}, nil
}
