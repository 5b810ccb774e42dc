// Package wal provides the durable journal behind an acceptor's record.
//
// An acceptor's safety rests on two monotonic facts: the highest proposal
// number it has promised, and the highest-numbered accept it has applied. The
// journal records every mutation of those facts before the corresponding ack
// leaves the node, so a restarted acceptor replays the journal and can never
// regress a promise it already gave.
//
// # Format
//
// The journal is a single append-only file of framed records:
//
//	[length: 4 bytes BE][payload: JSON entry][crc32: 4 bytes BE]
//
// The CRC covers the payload. Replay stops at the first corrupt or truncated
// frame; everything before it is intact because entries are written strictly
// in order. A torn final frame (crash mid-write) is therefore tolerated.
//
// # Usage
//
//	j, err := wal.OpenFileJournal(path)
//	...
//	err = j.Replay(func(e *wal.Entry) error { ... })
//	...
//	err = j.Append(&wal.Entry{Type: wal.EntryPromise, Number: n})
//
// NopJournal satisfies the Journal interface with no-ops for tests and for
// nodes that do not carry the acceptor role.
package wal
