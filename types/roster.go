package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Role is a bitmask of protocol capabilities a peer carries. A peer with no
// bits set is a learner: it consumes the chosen value but never emits a
// protocol message.
type Role uint8

const (
	// RoleAcceptor lets a peer promise and accept proposals.
	RoleAcceptor Role = 1 << iota
	// RoleProposer lets a peer drive consensus attempts.
	RoleProposer

	// RoleLearner is the capability-less role.
	RoleLearner Role = 0
)

// HasAcceptor reports whether the role includes acceptor capability.
func (r Role) HasAcceptor() bool { return r&RoleAcceptor != 0 }

// HasProposer reports whether the role includes proposer capability.
func (r Role) HasProposer() bool { return r&RoleProposer != 0 }

// IsLearner reports whether the role carries no protocol capabilities.
func (r Role) IsLearner() bool { return r == RoleLearner }

// String returns the role as a comma-separated capability list.
func (r Role) String() string {
	if r.IsLearner() {
		return "learner"
	}
	var parts []string
	if r.HasProposer() {
		parts = append(parts, "proposer")
	}
	if r.HasAcceptor() {
		parts = append(parts, "acceptor")
	}
	return strings.Join(parts, ",")
}

// Roster errors
var (
	ErrPeerNotFound  = errors.New("peer not found")
	ErrDuplicatePeer = errors.New("duplicate peer id")
	ErrEmptyRoster   = errors.New("empty roster")
	ErrNoAcceptors   = errors.New("roster has no acceptors")
	ErrEmptyPeerHost = errors.New("peer has empty host")
)

// Peer is one node in the fixed topology.
type Peer struct {
	ID    uint32
	Host  string
	Roles Role
}

// Roster is the immutable set of peers taking part in the protocol. Membership
// is fixed for the lifetime of a consensus run; the quorum threshold is a
// strict majority of the acceptors.
type Roster struct {
	peers     []*Peer
	byID      map[uint32]*Peer
	acceptors int
}

// NewRoster creates a Roster from peers. Peer ids must be unique and at least
// one peer must carry the acceptor role.
func NewRoster(peers []*Peer) (*Roster, error) {
	if len(peers) == 0 {
		return nil, ErrEmptyRoster
	}

	r := &Roster{
		peers: make([]*Peer, len(peers)),
		byID:  make(map[uint32]*Peer),
	}

	for i, p := range peers {
		if p.Host == "" {
			return nil, fmt.Errorf("%w: peer %d", ErrEmptyPeerHost, p.ID)
		}
		if _, exists := r.byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePeer, p.ID)
		}
		cp := &Peer{ID: p.ID, Host: p.Host, Roles: p.Roles}
		r.peers[i] = cp
		r.byID[p.ID] = cp
		if cp.Roles.HasAcceptor() {
			r.acceptors++
		}
	}

	if r.acceptors == 0 {
		return nil, ErrNoAcceptors
	}

	sort.Slice(r.peers, func(i, j int) bool { return r.peers[i].ID < r.peers[j].ID })
	return r, nil
}

// Get returns the peer with the given id, or nil.
func (r *Roster) Get(id uint32) *Peer {
	return r.byID[id]
}

// Size returns the number of peers.
func (r *Roster) Size() int {
	return len(r.peers)
}

// Peers returns all peers in id order.
func (r *Roster) Peers() []*Peer {
	out := make([]*Peer, len(r.peers))
	copy(out, r.peers)
	return out
}

// Acceptors returns the peers carrying the acceptor role, in id order.
func (r *Roster) Acceptors() []*Peer {
	var out []*Peer
	for _, p := range r.peers {
		if p.Roles.HasAcceptor() {
			out = append(out, p)
		}
	}
	return out
}

// AcceptorCount returns the number of acceptors.
func (r *Roster) AcceptorCount() int {
	return r.acceptors
}

// Majority returns the strict-majority quorum threshold over the acceptors:
// floor(N/2) + 1.
func (r *Roster) Majority() int {
	return r.acceptors/2 + 1
}

// Others returns every peer except the one with the given id, in id order.
func (r *Roster) Others(self uint32) []*Peer {
	var out []*Peer
	for _, p := range r.peers {
		if p.ID != self {
			out = append(out, p)
		}
	}
	return out
}
