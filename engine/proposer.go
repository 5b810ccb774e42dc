package engine

import (
	"github.com/blockberries/decreeberry/types"
)

// ProposerRound is the ephemeral bookkeeping for one consensus attempt. It
// is a passive state machine: the consensus state loop feeds it replies and
// asks it when to advance. Chosen and Abandoned are terminal; an abandoned
// attempt is never retried with the same number.
type ProposerRound struct {
	number       types.ProposalNumber
	initialValue string
	phase        Phase

	promises *PromiseSet
	acks     *QuorumTracker

	workingValue string
}

// newProposerRound starts an attempt at proposing value with the given
// number, gated by the majority threshold. The round begins in Preparing.
func newProposerRound(number types.ProposalNumber, value string, majority int) *ProposerRound {
	return &ProposerRound{
		number:       number,
		initialValue: value,
		phase:        PhasePreparing,
		promises:     NewPromiseSet(majority),
		acks:         NewQuorumTracker(majority),
	}
}

// Number returns the proposal number of this attempt.
func (r *ProposerRound) Number() types.ProposalNumber {
	return r.number
}

// Phase returns the round's current phase.
func (r *ProposerRound) Phase() Phase {
	return r.phase
}

// observePromise records a prepare ack. It returns true once a strict
// majority of distinct acceptors has promised this round's number.
func (r *ProposerRound) observePromise(from uint32, accepted types.ProposalNumber, value string) bool {
	if r.phase != PhasePreparing {
		return false
	}
	r.promises.Add(from, accepted, value)
	return r.promises.Reached()
}

// enterAccepting moves the round to its Accept phase and returns the value
// to propose: the adoption rule picks the value of the highest-numbered
// accept reported by any promise, falling back to the round's initial value.
// The promise set is discarded.
func (r *ProposerRound) enterAccepting() string {
	r.workingValue = r.promises.WorkingValue(r.initialValue)
	r.promises = nil
	r.phase = PhaseAccepting
	return r.workingValue
}

// observeAcceptAck records an accept ack from an acceptor. It returns true
// once a strict majority has acknowledged this round's exact number.
func (r *ProposerRound) observeAcceptAck(from uint32) bool {
	if r.phase != PhaseAccepting {
		return false
	}
	r.acks.Add(from)
	return r.acks.Reached()
}

// choose marks the round terminal with its value chosen.
func (r *ProposerRound) choose() {
	r.phase = PhaseChosen
}

// abandon marks the round terminal without a decision. The caller retries
// with a freshly drawn, strictly larger number.
func (r *ProposerRound) abandon() {
	r.phase = PhaseAbandoned
}
