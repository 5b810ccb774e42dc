// Package types defines the core data structures for the Decreeberry consensus protocol.
//
// # Core Types
//
// ProposalNumber: A totally ordered (counter, proposer) pair identifying one
// consensus attempt. The counter is the primary sort key; the proposer id
// breaks ties so no two proposers ever issue an equal number.
//
// Sequence: A per-proposer generator of strictly increasing proposal numbers.
// It can be bumped past a competitor's number observed in a rejection, so a
// retried round always carries a number larger than anything seen so far.
//
// Message: The wire record exchanged between peers. Messages are JSON-encoded
// with the field names the protocol trace uses (sender_id, message_type,
// proposal_num, message_value), so every send is observable in exactly the
// shape it crossed the wire.
//
// Peer and Roster: The fixed set of nodes taking part in the protocol. Each
// peer carries role capabilities (proposer, acceptor, learner); the Roster
// computes the strict-majority quorum threshold over its acceptors.
//
// # Immutability
//
// ProposalNumber and Peer values are plain data and safe to copy. The Roster
// is immutable after construction and safe to share across goroutines.
package types
