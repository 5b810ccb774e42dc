// Package trace emits the structured protocol log. Every message sent or
// received and every decision is written as one JSON line, keyed by the
// fields of the wire schema, so a run of several nodes can be merged and
// replayed from the logs alone.
package trace

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/blockberries/decreeberry/types"
)

// Logger writes protocol events through zerolog. It implements
// engine.Tracer.
type Logger struct {
	log zerolog.Logger
}

// New creates a Logger writing JSON lines to w, stamped with this node's id.
func New(w io.Writer, selfID uint32) *Logger {
	return &Logger{
		log: zerolog.New(w).With().
			Timestamp().
			Uint32("peer_id", selfID).
			Logger(),
	}
}

// NewWithLogger wraps an existing zerolog logger.
func NewWithLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) event(action string, m *types.Message) *zerolog.Event {
	return l.log.Info().
		Str("action", action).
		Str("message_type", string(m.Type)).
		Uint32("sender_id", m.Sender).
		Str("proposal_num", m.Proposal.String()).
		Str("message_value", m.Value)
}

// Sent records an outbound protocol message.
func (l *Logger) Sent(m *types.Message) {
	l.event("sent", m).Msg("")
}

// Received records an inbound protocol message.
func (l *Logger) Received(m *types.Message) {
	l.event("received", m).Msg("")
}

// Chosen records the decision.
func (l *Logger) Chosen(value string, number types.ProposalNumber) {
	l.log.Info().
		Str("action", "chose").
		Str("proposal_num", number.String()).
		Str("message_value", value).
		Msg("")
}

// Dropped records a discarded message or a non-fatal protocol error.
func (l *Logger) Dropped(err error) {
	l.log.Warn().
		Str("action", "dropped").
		Err(err).
		Msg("")
}
