package engine

import "github.com/blockberries/decreeberry/types"

// Tracer observes the protocol as it runs: every message sent and received
// in its wire shape, the chosen outcome, and dropped input. The trace
// package provides the structured-log implementation; NopTracer is the
// default.
type Tracer interface {
	// Sent is called for every outbound protocol message.
	Sent(m *types.Message)
	// Received is called for every message entering the state machine.
	Received(m *types.Message)
	// Chosen is called exactly once per node when the value is learned.
	Chosen(value string, number types.ProposalNumber)
	// Dropped is called when input is discarded without a state change.
	Dropped(err error)
}

// NopTracer discards all trace events.
type NopTracer struct{}

func (NopTracer) Sent(*types.Message)                 {}
func (NopTracer) Received(*types.Message)             {}
func (NopTracer) Chosen(string, types.ProposalNumber) {}
func (NopTracer) Dropped(error)                       {}

var _ Tracer = NopTracer{}
