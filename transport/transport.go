package transport

import "errors"

var (
	ErrAlreadyStarted = errors.New("transport already started")
	ErrNotStarted     = errors.New("transport not started")
	ErrUnknownPeer    = errors.New("unknown peer")
)

// Handler consumes one inbound frame. It must not retain data.
type Handler func(data []byte)

// Transport delivers encoded frames to peers. Send must not block; the
// consensus loop calls it while holding its state lock.
type Transport interface {
	// Send enqueues a frame for the peer. Delivery is best-effort: frames
	// to unreachable peers or full queues are dropped.
	Send(to uint32, data []byte)

	Start() error
	Stop() error
}
