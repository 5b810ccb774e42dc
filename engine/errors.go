package engine

import "errors"

// Consensus errors
var (
	ErrAlreadyStarted    = errors.New("consensus already started")
	ErrNotStarted        = errors.New("consensus not started")
	ErrNotProposer       = errors.New("node does not carry the proposer role")
	ErrUnknownPeer       = errors.New("unknown peer")
	ErrProposalInFlight  = errors.New("a proposal is already in flight")
	ErrConflictingChosen = errors.New("conflicting chosen value")
	ErrJournalWrite      = errors.New("journal write failed")
	ErrInvalidConfig     = errors.New("invalid engine config")
)
