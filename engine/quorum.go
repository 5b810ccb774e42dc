package engine

import (
	"github.com/blockberries/decreeberry/types"
)

// QuorumTracker counts distinct acceptor identities toward a threshold.
// Message arrivals are not counted: an acceptor that retransmits its ack is
// still one acceptor, so duplicate delivery can never inflate the tally.
type QuorumTracker struct {
	threshold int
	acked     map[uint32]struct{}
}

// NewQuorumTracker creates a tracker for the given threshold, normally
// Roster.Majority().
func NewQuorumTracker(threshold int) *QuorumTracker {
	return &QuorumTracker{
		threshold: threshold,
		acked:     make(map[uint32]struct{}),
	}
}

// Add records an acknowledgement from the given acceptor. It returns false
// if the acceptor was already counted.
func (q *QuorumTracker) Add(id uint32) bool {
	if _, ok := q.acked[id]; ok {
		return false
	}
	q.acked[id] = struct{}{}
	return true
}

// Size returns the number of distinct acceptors counted.
func (q *QuorumTracker) Size() int {
	return len(q.acked)
}

// Reached reports whether the threshold has been met.
func (q *QuorumTracker) Reached() bool {
	return len(q.acked) >= q.threshold
}

// PromiseSet accumulates prepare acks for one round and tracks the
// highest-numbered accepted value reported by any promise. That value is
// what the round must propose in its Accept phase, regardless of the
// proposer's own initial value.
type PromiseSet struct {
	quorum *QuorumTracker

	bestNumber types.ProposalNumber
	bestValue  string
}

// NewPromiseSet creates a PromiseSet gated by the given quorum threshold.
func NewPromiseSet(threshold int) *PromiseSet {
	return &PromiseSet{quorum: NewQuorumTracker(threshold)}
}

// Add records a promise from an acceptor, carrying the number and value it
// had accepted at promise time (zero/empty if none). Duplicate promises from
// the same acceptor are ignored. Returns true if the promise was new.
func (ps *PromiseSet) Add(from uint32, accepted types.ProposalNumber, value string) bool {
	if !ps.quorum.Add(from) {
		return false
	}
	if !accepted.IsZero() && ps.bestNumber.Less(accepted) {
		ps.bestNumber = accepted
		ps.bestValue = value
	}
	return true
}

// Reached reports whether a strict majority has promised.
func (ps *PromiseSet) Reached() bool {
	return ps.quorum.Reached()
}

// Size returns the number of distinct promises.
func (ps *PromiseSet) Size() int {
	return ps.quorum.Size()
}

// WorkingValue returns the value the round must propose: the value attached
// to the highest accepted number among the promises, or initial if no
// promise reported an accepted value.
func (ps *PromiseSet) WorkingValue(initial string) string {
	if ps.bestNumber.IsZero() {
		return initial
	}
	return ps.bestValue
}
