package dtchatpb

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned (and only ever used internally; callers in
// package wire degrade this to a silent drop) when a byte sequence
// cannot be parsed as a ChatMessage record.
var ErrMalformed = errors.New("dtchatpb: malformed record")

const (
	fieldUUID       = 1
	fieldSenderUUID = 2
	fieldTimestamp  = 3
	fieldRoomUUID   = 4
	fieldText       = 10
	fieldDelivery   = 11
	fieldFile       = 12
	fieldPresence   = 13

	fieldTextContent     = 1
	fieldTextReplyTo     = 2
	fieldDeliveryTarget  = 1
	fieldDeliveryRecvd   = 2
	fieldDeliveryRead    = 3
)

// Marshal encodes m into its canonical binary form.
func Marshal(m ChatMessage) []byte {
	var b []byte
	b = appendStringField(b, fieldUUID, m.UUID)
	b = appendStringField(b, fieldSenderUUID, m.SenderUUID)
	b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Timestamp))
	b = appendStringField(b, fieldRoomUUID, m.RoomUUID)

	switch m.Content {
	case ContentText:
		var sub []byte
		sub = appendStringField(sub, fieldTextContent, m.Text.Content)
		if m.Text.ReplyToUUID != "" {
			sub = appendStringField(sub, fieldTextReplyTo, m.Text.ReplyToUUID)
		}
		b = protowire.AppendTag(b, fieldText, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	case ContentDelivery:
		var sub []byte
		sub = appendStringField(sub, fieldDeliveryTarget, m.Delivery.TargetUUID)
		sub = appendBoolField(sub, fieldDeliveryRecvd, m.Delivery.Received)
		sub = appendBoolField(sub, fieldDeliveryRead, m.Delivery.Read)
		b = protowire.AppendTag(b, fieldDelivery, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	case ContentFile, ContentPresence:
		// Reserved variants: this core never produces them, see
		// ReservedPlaceholder for their textual projection on decode.
	}
	return b
}

// Unmarshal decodes b into a ChatMessage. It returns ErrMalformed on
// any structurally invalid input.
func Unmarshal(b []byte) (ChatMessage, error) {
	var m ChatMessage
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ChatMessage{}, fmt.Errorf("%w: bad tag", ErrMalformed)
		}
		b = b[n:]

		switch num {
		case fieldUUID:
			s, nn, err := consumeString(b, typ)
			if err != nil {
				return ChatMessage{}, err
			}
			m.UUID = s
			b = b[nn:]
		case fieldSenderUUID:
			s, nn, err := consumeString(b, typ)
			if err != nil {
				return ChatMessage{}, err
			}
			m.SenderUUID = s
			b = b[nn:]
		case fieldRoomUUID:
			s, nn, err := consumeString(b, typ)
			if err != nil {
				return ChatMessage{}, err
			}
			m.RoomUUID = s
			b = b[nn:]
		case fieldTimestamp:
			if typ != protowire.VarintType {
				return ChatMessage{}, fmt.Errorf("%w: bad timestamp type", ErrMalformed)
			}
			v, nn := protowire.ConsumeVarint(b)
			if nn < 0 {
				return ChatMessage{}, fmt.Errorf("%w: bad timestamp varint", ErrMalformed)
			}
			m.Timestamp = protowire.DecodeZigZag(v)
			b = b[nn:]
		case fieldText:
			sub, nn, err := consumeBytes(b, typ)
			if err != nil {
				return ChatMessage{}, err
			}
			text, err := unmarshalText(sub)
			if err != nil {
				return ChatMessage{}, err
			}
			m.Content = ContentText
			m.Text = text
			b = b[nn:]
		case fieldDelivery:
			sub, nn, err := consumeBytes(b, typ)
			if err != nil {
				return ChatMessage{}, err
			}
			del, err := unmarshalDelivery(sub)
			if err != nil {
				return ChatMessage{}, err
			}
			m.Content = ContentDelivery
			m.Delivery = del
			b = b[nn:]
		case fieldFile:
			_, nn, err := consumeBytes(b, typ)
			if err != nil {
				return ChatMessage{}, err
			}
			m.Content = ContentFile
			b = b[nn:]
		case fieldPresence:
			_, nn, err := consumeBytes(b, typ)
			if err != nil {
				return ChatMessage{}, err
			}
			m.Content = ContentPresence
			b = b[nn:]
		default:
			nn := protowire.ConsumeFieldValue(num, typ, b)
			if nn < 0 {
				return ChatMessage{}, fmt.Errorf("%w: unknown field", ErrMalformed)
			}
			b = b[nn:]
		}
	}
	return m, nil
}

func unmarshalText(b []byte) (TextMessage, error) {
	var t TextMessage
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return TextMessage{}, fmt.Errorf("%w: bad text tag", ErrMalformed)
		}
		b = b[n:]
		switch num {
		case fieldTextContent:
			s, nn, err := consumeString(b, typ)
			if err != nil {
				return TextMessage{}, err
			}
			t.Content = s
			b = b[nn:]
		case fieldTextReplyTo:
			s, nn, err := consumeString(b, typ)
			if err != nil {
				return TextMessage{}, err
			}
			t.ReplyToUUID = s
			b = b[nn:]
		default:
			nn := protowire.ConsumeFieldValue(num, typ, b)
			if nn < 0 {
				return TextMessage{}, fmt.Errorf("%w: unknown text field", ErrMalformed)
			}
			b = b[nn:]
		}
	}
	return t, nil
}

func unmarshalDelivery(b []byte) (DeliveryStatus, error) {
	var d DeliveryStatus
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return DeliveryStatus{}, fmt.Errorf("%w: bad delivery tag", ErrMalformed)
		}
		b = b[n:]
		switch num {
		case fieldDeliveryTarget:
			s, nn, err := consumeString(b, typ)
			if err != nil {
				return DeliveryStatus{}, err
			}
			d.TargetUUID = s
			b = b[nn:]
		case fieldDeliveryRecvd:
			v, nn, err := consumeBool(b, typ)
			if err != nil {
				return DeliveryStatus{}, err
			}
			d.Received = v
			b = b[nn:]
		case fieldDeliveryRead:
			v, nn, err := consumeBool(b, typ)
			if err != nil {
				return DeliveryStatus{}, err
			}
			d.Read = v
			b = b[nn:]
		default:
			nn := protowire.ConsumeFieldValue(num, typ, b)
			if nn < 0 {
				return DeliveryStatus{}, fmt.Errorf("%w: unknown delivery field", ErrMalformed)
			}
			b = b[nn:]
		}
	}
	return d, nil
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendString(b, s)
	return b
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	n := uint64(0)
	if v {
		n = 1
	}
	b = protowire.AppendVarint(b, n)
	return b
}

func consumeString(b []byte, typ protowire.Type) (string, int, error) {
	if typ != protowire.BytesType {
		return "", 0, fmt.Errorf("%w: expected bytes type", ErrMalformed)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return "", 0, fmt.Errorf("%w: bad length-delimited field", ErrMalformed)
	}
	return string(v), n, nil
}

func consumeBytes(b []byte, typ protowire.Type) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("%w: expected bytes type", ErrMalformed)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: bad length-delimited field", ErrMalformed)
	}
	return v, n, nil
}

func consumeBool(b []byte, typ protowire.Type) (bool, int, error) {
	if typ != protowire.VarintType {
		return false, 0, fmt.Errorf("%w: expected varint type", ErrMalformed)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return false, 0, fmt.Errorf("%w: bad bool varint", ErrMalformed)
	}
	return v != 0, n, nil
}
