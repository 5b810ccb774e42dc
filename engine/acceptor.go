package engine

import (
	"fmt"

	"github.com/blockberries/decreeberry/types"
	"github.com/blockberries/decreeberry/wal"
)

// AcceptorRecord is the durable protocol state of one acceptor. It is
// created at node start and only ever advances: Promised never decreases,
// and Accepted moves only to numbers at or above the promise that admitted
// them.
type AcceptorRecord struct {
	Promised types.ProposalNumber
	Accepted types.ProposalNumber
	Value    string
}

// AcceptorState applies the Prepare and Accept rules against the journaled
// AcceptorRecord. It is not safe for concurrent use; the consensus state
// loop serializes all calls.
type AcceptorState struct {
	self    uint32
	rec     AcceptorRecord
	journal wal.Journal
}

// NewAcceptorState restores an acceptor from its journal. A fresh journal
// yields the initial record: nothing promised, nothing accepted.
func NewAcceptorState(self uint32, journal wal.Journal) (*AcceptorState, error) {
	a := &AcceptorState{self: self, journal: journal}

	err := journal.Replay(func(e *wal.Entry) error {
		switch e.Type {
		case wal.EntryPromise:
			a.rec.Promised = e.Number
		case wal.EntryAccept:
			a.rec.Promised = e.Number
			a.rec.Accepted = e.Number
			a.rec.Value = e.Value
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to restore acceptor record: %w", err)
	}

	return a, nil
}

// OnPrepare applies the Prepare rule for proposal number n. If n is above
// the current promise, the promise is raised (journaled first) and a
// prepare_ack carrying the last accepted number and value is returned.
// Otherwise a prepare_nack carrying the standing promise is returned and the
// record is untouched.
func (a *AcceptorState) OnPrepare(n types.ProposalNumber) (*types.Message, error) {
	if !a.rec.Promised.Less(n) {
		promised := a.rec.Promised
		return &types.Message{
			Sender:   a.self,
			Type:     types.MessageTypePrepareNack,
			Proposal: n,
			Promised: &promised,
		}, nil
	}

	if err := a.journal.Append(&wal.Entry{Type: wal.EntryPromise, Number: n}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJournalWrite, err)
	}
	a.rec.Promised = n

	ack := &types.Message{
		Sender:   a.self,
		Type:     types.MessageTypePrepareAck,
		Proposal: n,
		Value:    a.rec.Value,
	}
	if !a.rec.Accepted.IsZero() {
		accepted := a.rec.Accepted
		ack.Accepted = &accepted
	}
	return ack, nil
}

// OnAccept applies the Accept rule for (n, v). An accept at or above the
// standing promise is applied: the promise is raised to n and (n, v) becomes
// the accepted pair, journaled before the ack is returned. Re-applying the
// pair already accepted changes nothing and re-acks. A stale accept returns
// an accept_nack carrying the standing promise.
func (a *AcceptorState) OnAccept(n types.ProposalNumber, v string) (*types.Message, error) {
	if n.Less(a.rec.Promised) {
		promised := a.rec.Promised
		return &types.Message{
			Sender:   a.self,
			Type:     types.MessageTypeAcceptNack,
			Proposal: n,
			Promised: &promised,
		}, nil
	}

	// Duplicate delivery of an applied accept: no state change, same ack.
	if a.rec.Accepted != n || a.rec.Value != v {
		if err := a.journal.Append(&wal.Entry{Type: wal.EntryAccept, Number: n, Value: v}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrJournalWrite, err)
		}
		a.rec.Promised = n
		a.rec.Accepted = n
		a.rec.Value = v
	}

	return &types.Message{
		Sender:   a.self,
		Type:     types.MessageTypeAcceptAck,
		Proposal: n,
		Value:    v,
	}, nil
}

// Record returns a copy of the current acceptor record.
func (a *AcceptorState) Record() AcceptorRecord {
	return a.rec
}
