package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blockberries/decreeberry/types"
)

func writeHostsfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hostsfile")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseHostsfile(t *testing.T) {
	path := writeHostsfile(t, `peer1:proposer1,acceptor1
peer2:acceptor1
peer3:acceptor1
peer4:learner1
`)

	roster, err := ParseHostsfile(path)
	if err != nil {
		t.Fatalf("ParseHostsfile: %v", err)
	}

	if roster.Size() != 4 {
		t.Fatalf("size = %d, want 4", roster.Size())
	}
	if roster.AcceptorCount() != 3 {
		t.Errorf("acceptors = %d, want 3", roster.AcceptorCount())
	}
	if roster.Majority() != 2 {
		t.Errorf("majority = %d, want 2", roster.Majority())
	}

	p1 := roster.Get(1)
	if p1 == nil || p1.Host != "peer1" {
		t.Fatalf("peer 1 = %+v, want host peer1", p1)
	}
	if !p1.Roles.HasProposer() || !p1.Roles.HasAcceptor() {
		t.Errorf("peer 1 roles = %v, want proposer+acceptor", p1.Roles)
	}

	p4 := roster.Get(4)
	if p4 == nil || !p4.Roles.IsLearner() {
		t.Errorf("peer 4 = %+v, want learner", p4)
	}
}

func TestParseHostsfileIDsFollowLineNumbers(t *testing.T) {
	path := writeHostsfile(t, `alpha:acceptor1
beta:acceptor2
gamma:proposer1,acceptor3
`)

	roster, err := ParseHostsfile(path)
	if err != nil {
		t.Fatal(err)
	}
	for id, host := range map[uint32]string{1: "alpha", 2: "beta", 3: "gamma"} {
		p := roster.Get(id)
		if p == nil || p.Host != host {
			t.Errorf("peer %d = %+v, want host %s", id, p, host)
		}
	}
}

func TestParseHostsfileSkipsBlankAndCommentLines(t *testing.T) {
	// Skipped lines still consume their line number, so ids stay stable
	// when a topology line is commented out.
	path := writeHostsfile(t, `peer1:acceptor1

# standby, not part of this run
peer4:acceptor2
`)

	roster, err := ParseHostsfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if roster.Size() != 2 {
		t.Fatalf("size = %d, want 2", roster.Size())
	}
	if p := roster.Get(4); p == nil || p.Host != "peer4" {
		t.Errorf("peer 4 = %+v, want host peer4", p)
	}
}

func TestParseHostsfileErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr error
	}{
		{"missing colon", "peer1 acceptor1\n", ErrMalformedHostsfile},
		{"empty host", ":acceptor1\n", ErrMalformedHostsfile},
		{"unknown role", "peer1:observer\n", ErrUnknownRole},
		{"empty role", "peer1:acceptor1,\n", ErrMalformedHostsfile},
		{"no acceptors", "peer1:proposer1\npeer2:learner\n", types.ErrNoAcceptors},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHostsfile(writeHostsfile(t, tc.content))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestSelfID(t *testing.T) {
	roster, err := ParseHostsfile(writeHostsfile(t, "peer1:acceptor1\npeer2:acceptor2\n"))
	if err != nil {
		t.Fatal(err)
	}

	id, err := SelfID(roster, "peer2")
	if err != nil || id != 2 {
		t.Errorf("SelfID = %d %v, want 2 nil", id, err)
	}
	if _, err := SelfID(roster, "stranger"); !errors.Is(err, ErrSelfNotInHostsfile) {
		t.Errorf("err = %v, want ErrSelfNotInHostsfile", err)
	}
}
