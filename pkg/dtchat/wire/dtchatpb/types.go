// Package dtchatpb is the canonical binary wire schema: a
// length-delimited, field-tagged record carrying either a chat message
// or a delivery acknowledgement. It is a hand-written Go schema
// encoded directly against the protobuf wire format
// (google.golang.org/protobuf/encoding/protowire) so the module needs
// no protoc code-generation step while still committing to a fixed
// field-number contract peers must agree on out of band.
//
// Field numbers (fixed, part of the wire contract):
//
//	ChatMessage:   1=uuid, 2=sender_uuid, 3=timestamp, 4=room_uuid,
//	               10=text (oneof), 11=delivery (oneof),
//	               12=file (reserved), 13=presence (reserved)
//	TextMessage:   1=content, 2=reply_to_uuid
//	DeliveryStatus: 1=target_uuid, 2=received, 3=read
package dtchatpb

// ContentCase discriminates ChatMessage's oneof content field.
type ContentCase int

const (
	ContentNone ContentCase = iota
	ContentText
	ContentDelivery
	ContentFile     // reserved: not produced by this core
	ContentPresence // reserved: not produced by this core
)

// ReservedPlaceholder is the fixed textual projection for the File and
// Presence oneof variants, which this core never produces but must be
// able to name when decoding traffic from a fuller peer.
const ReservedPlaceholder = "<unsupported content>"

type TextMessage struct {
	Content     string
	ReplyToUUID string // empty means absent
}

type DeliveryStatus struct {
	TargetUUID string
	Received   bool
	Read       bool
}

// ChatMessage is the canonical wire record.
type ChatMessage struct {
	UUID       string
	SenderUUID string
	Timestamp  int64 // signed 64-bit millisecond epoch
	RoomUUID   string

	Content  ContentCase
	Text     TextMessage
	Delivery DeliveryStatus
}
