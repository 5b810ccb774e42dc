package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies the protocol message carried on the wire. The
// values match the message_type strings the runtime trace records.
type MessageType string

const (
	// MessageTypePrepare asks acceptors to promise a proposal number.
	MessageTypePrepare MessageType = "prepare"
	// MessageTypePrepareAck carries an acceptor's promise, together with the
	// number and value it last accepted (zero/empty if none).
	MessageTypePrepareAck MessageType = "prepare_ack"
	// MessageTypePrepareNack rejects a prepare; Promised carries the
	// acceptor's current promised number.
	MessageTypePrepareNack MessageType = "prepare_nack"
	// MessageTypeAccept asks acceptors to accept a numbered value.
	MessageTypeAccept MessageType = "accept"
	// MessageTypeAcceptAck confirms an accept was applied.
	MessageTypeAcceptAck MessageType = "accept_ack"
	// MessageTypeAcceptNack rejects an accept; Promised carries the
	// acceptor's current promised number.
	MessageTypeAcceptNack MessageType = "accept_nack"
	// MessageTypeChosen announces that a value has been chosen.
	MessageTypeChosen MessageType = "chosen"
)

// Message errors
var (
	ErrInvalidMessage     = errors.New("invalid message")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Message is the wire record exchanged between peers. Proposal is the number
// the message is about; Value is the proposed or accepted value, opaque to
// the protocol. Accepted and Promised are only set on the message types that
// carry them.
type Message struct {
	Sender   uint32         `json:"sender_id"`
	Type     MessageType    `json:"message_type"`
	Proposal ProposalNumber `json:"proposal_num"`
	Value    string         `json:"message_value"`

	// Accepted is the number of the acceptor's last applied accept,
	// reported alongside Value in a prepare_ack.
	Accepted *ProposalNumber `json:"accepted_num,omitempty"`

	// Promised is the acceptor's current promised number, reported in
	// prepare_nack and accept_nack replies.
	Promised *ProposalNumber `json:"promised_num,omitempty"`
}

// Encode serializes the message for transmission.
func (m *Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return data, nil
}

// DecodeMessage parses a wire message and validates its type.
func DecodeMessage(data []byte) (*Message, error) {
	m := &Message{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch m.Type {
	case MessageTypePrepare, MessageTypePrepareAck, MessageTypePrepareNack,
		MessageTypeAccept, MessageTypeAcceptAck, MessageTypeAcceptNack,
		MessageTypeChosen:
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}
}

// AcceptedNumber returns the reported accepted number, or the zero number if
// the message does not carry one.
func (m *Message) AcceptedNumber() ProposalNumber {
	if m.Accepted == nil {
		return ProposalNumber{}
	}
	return *m.Accepted
}

// PromisedNumber returns the reported promised number, or the zero number if
// the message does not carry one.
func (m *Message) PromisedNumber() ProposalNumber {
	if m.Promised == nil {
		return ProposalNumber{}
	}
	return *m.Promised
}
