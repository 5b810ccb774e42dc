package wal

import (
	"encoding/json"
	"errors"

	"github.com/blockberries/decreeberry/types"
)

// Errors
var (
	ErrJournalClosed    = errors.New("journal is closed")
	ErrJournalCorrupted = errors.New("journal is corrupted")
	ErrUnknownEntryType = errors.New("unknown journal entry type")
)

// EntryType identifies the kind of acceptor mutation an entry records.
type EntryType string

const (
	// EntryPromise records a raised promised number (prepare applied).
	EntryPromise EntryType = "promise"
	// EntryAccept records an applied accept: number and value together.
	EntryAccept EntryType = "accept"
)

// Entry is one journaled acceptor mutation.
type Entry struct {
	Type   EntryType            `json:"type"`
	Number types.ProposalNumber `json:"number"`
	Value  string               `json:"value,omitempty"`
}

// Marshal serializes the entry payload.
func (e *Entry) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEntry parses and validates a journal entry payload.
func UnmarshalEntry(data []byte) (*Entry, error) {
	e := &Entry{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EntryPromise, EntryAccept:
		return e, nil
	default:
		return nil, ErrUnknownEntryType
	}
}

// Journal is the durable record of acceptor mutations.
type Journal interface {
	// Append writes an entry and syncs it to stable storage.
	Append(e *Entry) error

	// Replay calls fn for every intact entry in write order. It must be
	// called before the first Append.
	Replay(fn func(e *Entry) error) error

	// Close releases the journal. Append after Close fails.
	Close() error
}

// NopJournal is a no-op Journal for tests and non-acceptor nodes.
type NopJournal struct{}

func (NopJournal) Append(e *Entry) error                { return nil }
func (NopJournal) Replay(fn func(e *Entry) error) error { return nil }
func (NopJournal) Close() error                         { return nil }

var _ Journal = NopJournal{}
