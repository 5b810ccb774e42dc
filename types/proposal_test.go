package types

import "testing"

func TestProposalNumberOrdering(t *testing.T) {
	cases := []struct {
		name string
		a, b ProposalNumber
		want int
	}{
		{"counter dominates", ProposalNumber{1, 9}, ProposalNumber{2, 1}, -1},
		{"proposer breaks ties", ProposalNumber{3, 1}, ProposalNumber{3, 2}, -1},
		{"equal", ProposalNumber{3, 2}, ProposalNumber{3, 2}, 0},
		{"greater counter", ProposalNumber{5, 0}, ProposalNumber{4, 9}, 1},
		{"zero below everything", ProposalNumber{}, ProposalNumber{1, 0}, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Compare(tc.b); got != tc.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
			if got := tc.b.Compare(tc.a); got != -tc.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tc.b, tc.a, got, -tc.want)
			}
		})
	}
}

func TestProposalNumberIsZero(t *testing.T) {
	if !(ProposalNumber{}).IsZero() {
		t.Error("zero value should be zero")
	}
	if (ProposalNumber{Counter: 1}).IsZero() {
		t.Error("issued number should not be zero")
	}
}

func TestSequenceStrictlyIncreasing(t *testing.T) {
	seq := NewSequence(3)

	prev := ProposalNumber{}
	for i := 0; i < 100; i++ {
		n := seq.Next()
		if !prev.Less(n) {
			t.Fatalf("number %v not greater than previous %v", n, prev)
		}
		if n.Proposer != 3 {
			t.Fatalf("expected proposer 3, got %d", n.Proposer)
		}
		prev = n
	}
}

func TestSequenceBump(t *testing.T) {
	seq := NewSequence(1)
	seq.Next() // counter 1

	// Bump past a competitor's higher number
	seq.Bump(ProposalNumber{Counter: 10, Proposer: 2})
	n := seq.Next()
	if n.Counter != 11 {
		t.Errorf("expected counter 11 after bump, got %d", n.Counter)
	}

	// Bumping below the current counter is a no-op
	seq.Bump(ProposalNumber{Counter: 5, Proposer: 2})
	n = seq.Next()
	if n.Counter != 12 {
		t.Errorf("expected counter 12, got %d", n.Counter)
	}
}

func TestSequencesNeverCollide(t *testing.T) {
	a := NewSequence(1)
	b := NewSequence(2)

	seen := make(map[ProposalNumber]bool)
	for i := 0; i < 50; i++ {
		for _, n := range []ProposalNumber{a.Next(), b.Next()} {
			if seen[n] {
				t.Fatalf("duplicate proposal number %v across proposers", n)
			}
			seen[n] = true
		}
	}
}
