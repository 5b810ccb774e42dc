package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/blockberries/decreeberry/types"
	"github.com/blockberries/decreeberry/wal"
)

// ConsensusState owns all protocol state of one node. Inbound messages,
// propose requests and timeouts are funneled through a single receive
// goroutine, so the acceptor record and the proposer round are never
// mutated concurrently. Outbound sends go through the send callback and
// must not block.
type ConsensusState struct {
	mu sync.Mutex

	// Configuration
	config *Config
	roster *types.Roster
	self   *types.Peer

	// Proposer state: the current attempt, if any. attempt ties timeouts
	// to the round that scheduled them.
	seq        *types.Sequence
	round      *ProposerRound
	attempt    uint64
	pending    string
	hasPending bool
	retry      backoff.BackOff

	// Acceptor state; nil when the node does not carry the acceptor role
	acceptor *AcceptorState

	// Chosen surface
	notifier *ChosenNotifier

	// Timeouts
	timeoutTicker *TimeoutTicker

	// Trace collaborator
	tracer Tracer

	// Outbound send callback (set before Start)
	send func(to uint32, m *types.Message)

	// Event channels
	msgCh     chan *types.Message
	proposeCh chan string

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewConsensusState creates the state machine for self within roster. The
// journal is replayed into the acceptor record when self carries the
// acceptor role; non-acceptors may pass wal.NopJournal.
func NewConsensusState(
	config *Config,
	roster *types.Roster,
	self *types.Peer,
	journal wal.Journal,
	tracer Tracer,
) (*ConsensusState, error) {
	if tracer == nil {
		tracer = NopTracer{}
	}

	cs := &ConsensusState{
		config:        config,
		roster:        roster,
		self:          self,
		seq:           types.NewSequence(self.ID),
		retry:         config.newRetryBackoff(),
		notifier:      NewChosenNotifier(),
		timeoutTicker: NewTimeoutTicker(config.Timeouts),
		tracer:        tracer,
		msgCh:         make(chan *types.Message, config.MessageChannelSize),
		proposeCh:     make(chan string, 1),
	}

	if self.Roles.HasAcceptor() {
		acceptor, err := NewAcceptorState(self.ID, journal)
		if err != nil {
			return nil, err
		}
		cs.acceptor = acceptor
	}

	return cs, nil
}

// SetSender sets the outbound send callback. It must not block; the
// transport keeps per-peer queues for that reason.
func (cs *ConsensusState) SetSender(fn func(to uint32, m *types.Message)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.send = fn
}

// Start starts the state machine.
func (cs *ConsensusState) Start() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.started {
		return ErrAlreadyStarted
	}

	cs.ctx, cs.cancel = context.WithCancel(context.Background())
	cs.started = true

	cs.timeoutTicker.Start()

	cs.wg.Add(1)
	go cs.receiveRoutine()

	return nil
}

// Stop stops the state machine.
func (cs *ConsensusState) Stop() error {
	cs.mu.Lock()
	if !cs.started {
		cs.mu.Unlock()
		return ErrNotStarted
	}
	cs.started = false
	cs.mu.Unlock()

	cs.cancel()
	cs.timeoutTicker.Stop()
	cs.wg.Wait()

	return nil
}

// AddMessage enqueues a message from the network. A full channel drops the
// message; the transport is at-least-once and the protocol retries, so a
// drop only delays progress.
func (cs *ConsensusState) AddMessage(m *types.Message) {
	select {
	case cs.msgCh <- m:
	default:
		cs.tracer.Dropped(fmt.Errorf("message channel full, dropping %s from %d", m.Type, m.Sender))
	}
}

// StartProposal requests that value be proposed. At most one request may be
// outstanding.
func (cs *ConsensusState) StartProposal(value string) error {
	select {
	case cs.proposeCh <- value:
		return nil
	default:
		return ErrProposalInFlight
	}
}

// receiveRoutine is the main event loop
func (cs *ConsensusState) receiveRoutine() {
	defer cs.wg.Done()

	for {
		select {
		case <-cs.ctx.Done():
			return

		case m := <-cs.msgCh:
			cs.handleMessage(m)

		case value := <-cs.proposeCh:
			cs.handlePropose(value)

		case ti := <-cs.timeoutTicker.Chan():
			cs.handleTimeout(ti)
		}
	}
}

func (cs *ConsensusState) handleMessage(m *types.Message) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.dispatch(m)
}

// dispatch routes one message. Callers hold cs.mu; local self-delivery
// re-enters here directly rather than through the channel.
func (cs *ConsensusState) dispatch(m *types.Message) {
	cs.tracer.Received(m)

	switch m.Type {
	case types.MessageTypePrepare:
		cs.onPrepare(m)
	case types.MessageTypeAccept:
		cs.onAccept(m)
	case types.MessageTypePrepareAck:
		cs.onPrepareAck(m)
	case types.MessageTypeAcceptAck:
		cs.onAcceptAck(m)
	case types.MessageTypePrepareNack, types.MessageTypeAcceptNack:
		cs.onNack(m)
	case types.MessageTypeChosen:
		cs.onChosen(m)
	}
}

// sendTo emits a protocol message. Messages to self bypass the wire and
// re-enter the dispatch path synchronously.
func (cs *ConsensusState) sendTo(to uint32, m *types.Message) {
	cs.tracer.Sent(m)

	if to == cs.self.ID {
		cs.dispatch(m)
		return
	}
	if cs.send != nil {
		cs.send(to, m)
	}
}

// broadcastToAcceptors sends m to every acceptor, self included.
func (cs *ConsensusState) broadcastToAcceptors(m *types.Message) {
	for _, p := range cs.roster.Acceptors() {
		cs.sendTo(p.ID, m)
	}
}

// --- Acceptor handlers ---

func (cs *ConsensusState) onPrepare(m *types.Message) {
	if cs.acceptor == nil {
		cs.tracer.Dropped(fmt.Errorf("prepare %v from %d: not an acceptor", m.Proposal, m.Sender))
		return
	}

	reply, err := cs.acceptor.OnPrepare(m.Proposal)
	if err != nil {
		// Nothing durable, nothing promised: drop without replying.
		cs.tracer.Dropped(err)
		return
	}
	cs.sendTo(m.Sender, reply)
}

func (cs *ConsensusState) onAccept(m *types.Message) {
	if cs.acceptor == nil {
		cs.tracer.Dropped(fmt.Errorf("accept %v from %d: not an acceptor", m.Proposal, m.Sender))
		return
	}

	reply, err := cs.acceptor.OnAccept(m.Proposal, m.Value)
	if err != nil {
		cs.tracer.Dropped(err)
		return
	}
	cs.sendTo(m.Sender, reply)
}

// --- Proposer handlers ---

func (cs *ConsensusState) handlePropose(value string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, ok := cs.notifier.Value(); ok {
		return
	}

	cs.pending = value
	cs.hasPending = true
	if cs.round == nil {
		cs.startRound()
	}
}

// startRound begins a fresh attempt with a strictly larger number.
func (cs *ConsensusState) startRound() {
	cs.attempt++
	number := cs.seq.Next()
	cs.round = newProposerRound(number, cs.pending, cs.roster.Majority())

	prepare := &types.Message{
		Sender:   cs.self.ID,
		Type:     types.MessageTypePrepare,
		Proposal: number,
		Value:    cs.pending,
	}
	cs.timeoutTicker.ScheduleTimeout(TimeoutInfo{Attempt: cs.attempt, Phase: PhasePreparing})
	cs.broadcastToAcceptors(prepare)
}

func (cs *ConsensusState) onPrepareAck(m *types.Message) {
	round := cs.round
	if round == nil || round.Phase() != PhasePreparing || m.Proposal != round.Number() {
		return
	}

	if !round.observePromise(m.Sender, m.AcceptedNumber(), m.Value) {
		return
	}

	// Majority promised: propose the adopted value.
	value := round.enterAccepting()
	accept := &types.Message{
		Sender:   cs.self.ID,
		Type:     types.MessageTypeAccept,
		Proposal: round.Number(),
		Value:    value,
	}
	cs.timeoutTicker.ScheduleTimeout(TimeoutInfo{Attempt: cs.attempt, Phase: PhaseAccepting})
	cs.broadcastToAcceptors(accept)
}

func (cs *ConsensusState) onAcceptAck(m *types.Message) {
	round := cs.round
	if round == nil || round.Phase() != PhaseAccepting || m.Proposal != round.Number() {
		return
	}

	if !round.observeAcceptAck(m.Sender) {
		return
	}

	// Majority accepted this exact number: the value is chosen.
	round.choose()
	cs.round = nil
	cs.hasPending = false
	cs.decide(round.workingValue, round.Number(), true)
}

func (cs *ConsensusState) onNack(m *types.Message) {
	round := cs.round
	if round == nil || m.Proposal != round.Number() {
		return
	}

	// Only a strictly higher standing promise abandons the round; an equal
	// one is a retransmission artifact.
	promised := m.PromisedNumber()
	if round.Number().Less(promised) {
		cs.abandonRound(promised)
	}
}

func (cs *ConsensusState) onChosen(m *types.Message) {
	if cs.round != nil {
		cs.round.abandon()
		cs.round = nil
	}
	cs.hasPending = false
	cs.decide(m.Value, m.Proposal, false)
}

// decide records the outcome and, when this node drove the deciding round,
// announces it to every other peer (learners included).
func (cs *ConsensusState) decide(value string, number types.ProposalNumber, announce bool) {
	first, err := cs.notifier.Notify(value, number)
	if err != nil {
		// Safety violation: report, never apply.
		cs.tracer.Dropped(err)
		return
	}
	if !first {
		return
	}

	cs.tracer.Chosen(value, number)

	if announce {
		chosen := &types.Message{
			Sender:   cs.self.ID,
			Type:     types.MessageTypeChosen,
			Proposal: number,
			Value:    value,
		}
		for _, p := range cs.roster.Others(cs.self.ID) {
			cs.sendTo(p.ID, chosen)
		}
	}
}

// --- Timeouts ---

func (cs *ConsensusState) handleTimeout(ti TimeoutInfo) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	// Ignore timers scheduled by earlier attempts
	if ti.Attempt != cs.attempt {
		return
	}

	switch ti.Phase {
	case PhasePreparing, PhaseAccepting:
		if cs.round != nil && cs.round.Phase() == ti.Phase {
			cs.abandonRound(types.ProposalNumber{})
		}

	case PhaseAbandoned:
		// Retry timer: begin the next attempt unless the decision arrived
		// in the meantime.
		if cs.round == nil && cs.hasPending {
			if _, ok := cs.notifier.Value(); !ok {
				cs.startRound()
			}
		}
	}
}

// abandonRound terminates the current attempt and schedules a retry with a
// backoff delay. A competitor's promised number, when known, bumps the
// sequence so the retry outbids it.
func (cs *ConsensusState) abandonRound(promised types.ProposalNumber) {
	cs.round.abandon()
	cs.round = nil

	if !promised.IsZero() {
		cs.seq.Bump(promised)
	}

	cs.timeoutTicker.ScheduleTimeout(TimeoutInfo{
		Attempt:  cs.attempt,
		Phase:    PhaseAbandoned,
		Duration: cs.retry.NextBackOff(),
	})
}

// --- Observers ---

// GetState returns the current phase and, for an active round, its number.
func (cs *ConsensusState) GetState() (Phase, types.ProposalNumber) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.round != nil {
		return cs.round.Phase(), cs.round.Number()
	}
	if _, ok := cs.notifier.Value(); ok {
		return PhaseChosen, types.ProposalNumber{}
	}
	return PhaseIdle, types.ProposalNumber{}
}

// ChosenValue returns the chosen value, if this node has learned it.
func (cs *ConsensusState) ChosenValue() (string, bool) {
	return cs.notifier.Value()
}

// SubscribeChosen returns a channel delivering the chosen value once.
func (cs *ConsensusState) SubscribeChosen() <-chan string {
	return cs.notifier.Subscribe()
}

// AcceptorRecord returns a copy of the acceptor record and whether this
// node carries the acceptor role.
func (cs *ConsensusState) AcceptorRecord() (AcceptorRecord, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.acceptor == nil {
		return AcceptorRecord{}, false
	}
	return cs.acceptor.Record(), true
}
