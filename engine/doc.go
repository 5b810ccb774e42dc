// Package engine implements the single-decree Paxos state machine.
//
// A node agrees with its peers on exactly one value, despite competing
// proposals, message reordering, duplication and delay. The protocol runs in
// two numbered phases per attempt:
//
//	Idle → Preparing → Accepting → Chosen
//	         ↓ timeout/nack  ↓ timeout/nack
//	       Abandoned → (new attempt, larger number)
//
// # Core Components
//
// Engine: Facade wiring the state machine to transport, journal and trace.
// Decodes inbound wire messages and enqueues them for the state loop.
//
// ConsensusState: Owner of all protocol state for a node. A single receive
// goroutine funnels every inbound message, propose request and timeout, so
// acceptor and proposer state are never mutated concurrently.
//
// AcceptorState: The durable half of the protocol. Applies the Prepare and
// Accept rules against the journaled AcceptorRecord: promise only numbers
// above the current promise, accept only numbers at or above it.
//
// ProposerRound: One consensus attempt. Collects promises, adopts the value
// of the highest-numbered accept reported by any promise, then collects
// accept acks until a strict majority confirms the value chosen.
//
// QuorumTracker: Counts distinct acceptor identities toward the strict
// majority threshold. Retransmitted acks never inflate the count.
//
// ChosenNotifier: Surfaces the chosen value exactly once per node, however
// many times it is learned.
//
// TimeoutTicker: Bounds each phase's quorum wait. A fired timeout abandons
// the round; a fresh round follows with a strictly larger number after a
// backoff delay, so competing proposers eventually interleave.
//
// # Thread Safety
//
// All public methods are thread-safe. Protocol state transitions happen on a
// single goroutine; outbound sends are fire-and-forget.
//
// # Safety
//
// Once any quorum accepts a value, every later round's prepare quorum
// intersects it and the adoption rule forces the new proposer to carry that
// value forward. Two Chosen notifications can therefore never disagree.
package engine
