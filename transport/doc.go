// Package transport moves encoded protocol frames between peers.
//
// The TCP transport gives each remote peer a dedicated outbound queue and
// connection, so frames to one peer stay ordered while a slow or dead peer
// never blocks the consensus loop: Send enqueues without blocking and drops
// when the peer's queue is full. Connections are dialed lazily and redialed
// with exponential backoff; the protocol tolerates the resulting losses by
// retrying rounds.
//
// Frames are newline-delimited JSON. The in-memory transport wires several
// nodes together in one process for tests, optionally duplicating and
// delaying deliveries to exercise the protocol's tolerance for at-least-once
// transports.
package transport
