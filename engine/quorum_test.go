package engine

import (
	"testing"

	"github.com/blockberries/decreeberry/types"
)

func TestQuorumTrackerCountsDistinctPeers(t *testing.T) {
	q := NewQuorumTracker(3)

	if !q.Add(1) {
		t.Errorf("first ack from 1 not counted")
	}
	if q.Add(1) {
		t.Errorf("duplicate ack from 1 counted")
	}
	if q.Reached() {
		t.Errorf("quorum reached with one peer")
	}

	q.Add(2)
	if q.Reached() {
		t.Errorf("quorum reached at 2 of 3")
	}
	q.Add(3)
	if !q.Reached() {
		t.Errorf("quorum not reached at 3 of 3")
	}
	if q.Size() != 3 {
		t.Errorf("size = %d, want 3", q.Size())
	}
}

func TestPromiseSetAdoptsHighestAccepted(t *testing.T) {
	ps := NewPromiseSet(3)

	ps.Add(1, types.ProposalNumber{}, "")
	ps.Add(2, num(2, 1), "old")
	ps.Add(3, num(5, 4), "newer")

	if !ps.Reached() {
		t.Fatalf("quorum not reached with 3 promises")
	}
	if got := ps.WorkingValue("mine"); got != "newer" {
		t.Errorf("working value = %q, want the value of the highest accepted number", got)
	}
}

func TestPromiseSetKeepsInitialValueWhenNothingAccepted(t *testing.T) {
	ps := NewPromiseSet(2)

	ps.Add(1, types.ProposalNumber{}, "")
	ps.Add(2, types.ProposalNumber{}, "")

	if got := ps.WorkingValue("mine"); got != "mine" {
		t.Errorf("working value = %q, want the proposer's own value", got)
	}
}

func TestPromiseSetDuplicatePromiseDoesNotInflate(t *testing.T) {
	ps := NewPromiseSet(2)

	ps.Add(1, types.ProposalNumber{}, "")
	ps.Add(1, types.ProposalNumber{}, "")

	if ps.Reached() {
		t.Errorf("quorum reached from one peer acking twice")
	}
	if ps.Size() != 1 {
		t.Errorf("size = %d, want 1", ps.Size())
	}
}
