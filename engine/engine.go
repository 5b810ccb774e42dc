package engine

import (
	"fmt"

	"github.com/blockberries/decreeberry/types"
	"github.com/blockberries/decreeberry/wal"
)

// Engine is the wire-facing facade over ConsensusState. It decodes inbound
// frames, encodes outbound messages, and enforces role capabilities on the
// public operations.
type Engine struct {
	state  *ConsensusState
	roster *types.Roster
	self   *types.Peer
	tracer Tracer
}

// NewEngine creates an engine for the peer selfID within roster.
func NewEngine(
	config *Config,
	roster *types.Roster,
	selfID uint32,
	journal wal.Journal,
	tracer Tracer,
) (*Engine, error) {
	if err := config.ValidateBasic(); err != nil {
		return nil, err
	}

	self := roster.Get(selfID)
	if self == nil {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownPeer, selfID)
	}
	if tracer == nil {
		tracer = NopTracer{}
	}
	if journal == nil {
		journal = wal.NopJournal{}
	}

	state, err := NewConsensusState(config, roster, self, journal, tracer)
	if err != nil {
		return nil, err
	}

	return &Engine{
		state:  state,
		roster: roster,
		self:   self,
		tracer: tracer,
	}, nil
}

// SetSender installs the outbound transport. The callback receives the peer
// id and the encoded frame and must not block.
func (e *Engine) SetSender(fn func(to uint32, data []byte)) {
	e.state.SetSender(func(to uint32, m *types.Message) {
		data, err := m.Encode()
		if err != nil {
			e.tracer.Dropped(fmt.Errorf("encoding %s to %d: %w", m.Type, to, err))
			return
		}
		fn(to, data)
	})
}

// Start starts the engine.
func (e *Engine) Start() error {
	return e.state.Start()
}

// Stop stops the engine.
func (e *Engine) Stop() error {
	return e.state.Stop()
}

// HandleMessage feeds one inbound frame to the engine. Malformed frames are
// reported to the tracer and discarded.
func (e *Engine) HandleMessage(data []byte) {
	m, err := types.DecodeMessage(data)
	if err != nil {
		e.tracer.Dropped(fmt.Errorf("decoding inbound frame: %w", err))
		return
	}
	e.state.AddMessage(m)
}

// Propose submits value for consensus. Only peers carrying the proposer
// role may propose; at most one proposal may be pending at a time.
func (e *Engine) Propose(value string) error {
	if !e.self.Roles.HasProposer() {
		return ErrNotProposer
	}
	return e.state.StartProposal(value)
}

// ChosenValue returns the chosen value, if this node has learned it.
func (e *Engine) ChosenValue() (string, bool) {
	return e.state.ChosenValue()
}

// SubscribeChosen returns a channel delivering the chosen value once.
func (e *Engine) SubscribeChosen() <-chan string {
	return e.state.SubscribeChosen()
}

// GetState returns the proposer phase and active round number.
func (e *Engine) GetState() (Phase, types.ProposalNumber) {
	return e.state.GetState()
}

// AcceptorRecord returns a copy of the durable acceptor record.
func (e *Engine) AcceptorRecord() (AcceptorRecord, bool) {
	return e.state.AcceptorRecord()
}

// Self returns this node's roster entry.
func (e *Engine) Self() *types.Peer {
	return e.self
}
