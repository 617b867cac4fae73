package chat

import (
	"errors"
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"msgid":3,"id":1,"toid":2,"msg":"hi"}`))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if env.MsgID != MsgChat {
		t.Errorf("MsgID = %d, want %d", env.MsgID, MsgChat)
	}

	var req chatRequest
	if err := env.Decode(&req); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if req.ID != 1 || req.ToID != 2 || req.Msg != "hi" {
		t.Errorf("unexpected decoded request: %+v", req)
	}
}

func TestParseEnvelopeMissingMsgID(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"id":1,"msg":"hi"}`))
	if !errors.Is(err, ErrMissingMsgID) {
		t.Fatalf("err = %v, want ErrMissingMsgID", err)
	}
}

func TestParseEnvelopeInvalidJSON(t *testing.T) {
	if _, err := ParseEnvelope([]byte(`{"msgid":`)); err == nil {
		t.Fatal("expected an error for truncated JSON")
	}
}

func TestNewEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(MsgChatAck, OpAck{MsgID: MsgChatAck, Msg: "ok"})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}

	reparsed, err := ParseEnvelope(env.Raw())
	if err != nil {
		t.Fatalf("ParseEnvelope over Raw: %v", err)
	}
	if reparsed.MsgID != MsgChatAck {
		t.Errorf("MsgID = %d, want %d", reparsed.MsgID, MsgChatAck)
	}
}
