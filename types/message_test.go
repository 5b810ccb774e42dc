package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMessageEncodeDecode(t *testing.T) {
	accepted := ProposalNumber{Counter: 2, Proposer: 4}
	msg := &Message{
		Sender:   1,
		Type:     MessageTypePrepareAck,
		Proposal: ProposalNumber{Counter: 3, Proposer: 1},
		Value:    "X",
		Accepted: &accepted,
	}

	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Sender != 1 || got.Type != MessageTypePrepareAck || got.Value != "X" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Proposal != msg.Proposal {
		t.Errorf("proposal mismatch: got %v, want %v", got.Proposal, msg.Proposal)
	}
	if got.AcceptedNumber() != accepted {
		t.Errorf("accepted mismatch: got %v, want %v", got.AcceptedNumber(), accepted)
	}
}

func TestMessageWireSchema(t *testing.T) {
	msg := &Message{
		Sender:   7,
		Type:     MessageTypePrepare,
		Proposal: ProposalNumber{Counter: 1, Proposer: 7},
		Value:    "X",
	}
	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("not a JSON object: %v", err)
	}
	for _, key := range []string{"sender_id", "message_type", "proposal_num", "message_value"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("wire record missing field %q", key)
		}
	}

	// Optional fields are omitted when unset
	if _, ok := fields["accepted_num"]; ok {
		t.Error("accepted_num should be omitted on a prepare")
	}
	if _, ok := fields["promised_num"]; ok {
		t.Error("promised_num should be omitted on a prepare")
	}
}

func TestDecodeMessageRejectsUnknownType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"sender_id":1,"message_type":"gossip"}`))
	if !errors.Is(err, ErrUnknownMessageType) {
		t.Errorf("expected ErrUnknownMessageType, got %v", err)
	}
}

func TestDecodeMessageRejectsMalformed(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"sender_id":`))
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}
