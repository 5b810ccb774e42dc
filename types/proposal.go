package types

import (
	"fmt"
	"sync"
)

// ProposalNumber is a totally ordered identifier for one consensus attempt.
// Counter is the primary sort key; Proposer breaks ties, so two distinct
// proposers can never issue an equal number. The zero value orders below
// every number a proposer can issue.
type ProposalNumber struct {
	Counter  uint64 `json:"counter"`
	Proposer uint32 `json:"proposer"`
}

// Compare returns -1, 0 or 1 as n orders before, equal to or after other.
func (n ProposalNumber) Compare(other ProposalNumber) int {
	switch {
	case n.Counter < other.Counter:
		return -1
	case n.Counter > other.Counter:
		return 1
	case n.Proposer < other.Proposer:
		return -1
	case n.Proposer > other.Proposer:
		return 1
	default:
		return 0
	}
}

// Less reports whether n orders strictly before other.
func (n ProposalNumber) Less(other ProposalNumber) bool {
	return n.Compare(other) < 0
}

// IsZero reports whether n is the "none" number, below every issued number.
func (n ProposalNumber) IsZero() bool {
	return n.Counter == 0 && n.Proposer == 0
}

// String returns the number as "counter.proposer", e.g. "3.2".
func (n ProposalNumber) String() string {
	return fmt.Sprintf("%d.%d", n.Counter, n.Proposer)
}

// Sequence issues proposal numbers for a single proposer. Every call to Next
// returns a number strictly greater than any number the sequence has issued
// or been bumped past. Safe for concurrent use.
type Sequence struct {
	mu       sync.Mutex
	counter  uint64
	proposer uint32
}

// NewSequence creates a Sequence for the given proposer id.
func NewSequence(proposer uint32) *Sequence {
	return &Sequence{proposer: proposer}
}

// Next issues the next proposal number.
func (s *Sequence) Next() ProposalNumber {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return ProposalNumber{Counter: s.counter, Proposer: s.proposer}
}

// Bump advances the sequence past n, so the next issued number is strictly
// greater than n. Used after a rejection carrying a competitor's promised
// number. Bumping below the current counter is a no-op.
func (s *Sequence) Bump(n ProposalNumber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.Counter > s.counter {
		s.counter = n.Counter
	}
}
