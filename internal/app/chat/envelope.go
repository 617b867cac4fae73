/*
Package chat contains the routing core of the cluster chat service.

This file defines the message type tags and the Envelope, the typed JSON message
unit exchanged between clients and the router. An envelope carries an integer
"msgid" tag followed by message-specific fields; the tag selects the handler in
the Service dispatch table.
*/
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MsgID identifies the type of a message envelope on the wire.
type MsgID int

// Message type tags. The values are part of the wire protocol and must not be reordered.
const (
	MsgLogin MsgID = iota + 1
	MsgRegister
	MsgChat
	MsgAddFriend
	MsgCreateGroup
	MsgJoinGroup
	MsgGroupChat

	MsgRegisterAck
	MsgLoginAck
	MsgChatAck
	MsgAddFriendAck
	MsgCreateGroupAck
	MsgJoinGroupAck
	MsgGroupChatAck

	MsgLogout
)

// ErrMissingMsgID is returned when an inbound frame carries no "msgid" field.
var ErrMissingMsgID = errors.New("envelope is missing msgid field")

// Envelope is a parsed inbound message: the type tag plus the raw JSON it was
// decoded from. Handlers decode the raw bytes into their own typed request
// structs. Envelopes are ephemeral and never persisted by the core.
type Envelope struct {
	MsgID MsgID

	raw json.RawMessage
}

// ParseEnvelope extracts the message type tag from a raw JSON frame.
// The frame bytes are retained for handler-specific decoding.
func ParseEnvelope(data []byte) (Envelope, error) {
	var head struct {
		MsgID *MsgID `json:"msgid"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("invalid envelope JSON: %w", err)
	}

	if head.MsgID == nil {
		return Envelope{}, ErrMissingMsgID
	}

	return Envelope{
		MsgID: *head.MsgID,
		raw:   append(json.RawMessage(nil), data...),
	}, nil
}

// NewEnvelope builds an envelope from a typed message value. It is primarily
// used by tests and by the gateway tooling to construct outbound frames.
func NewEnvelope(id MsgID, v any) (Envelope, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal envelope payload: %w", err)
	}

	return Envelope{MsgID: id, raw: data}, nil
}

// Decode unmarshals the envelope's fields into dst.
func (e Envelope) Decode(dst any) error {
	return json.Unmarshal(e.raw, dst)
}

// Raw returns the original JSON bytes the envelope was parsed from.
func (e Envelope) Raw() []byte {
	return e.raw
}
