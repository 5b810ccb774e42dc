package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	journalFilePerm = 0600
	journalDirPerm  = 0700
	maxEntrySize    = 1 * 1024 * 1024 // 1MB max entry size
)

// FileJournal is a file-backed Journal. Entries are framed with a length
// prefix and a CRC32 over the payload, so a torn write at the tail is
// detected and discarded on replay.
type FileJournal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	buf    [4]byte
	closed bool
}

// OpenFileJournal opens (creating if needed) the journal at path.
func OpenFileJournal(path string) (*FileJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), journalDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, journalFilePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return &FileJournal{path: path, file: file}, nil
}

// Replay reads intact entries in write order, then truncates any corrupt or
// torn tail and positions the file for appending.
func (j *FileJournal) Replay(fn func(e *Entry) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	r := bufio.NewReader(j.file)
	var intact int64
	for {
		entry, n, err := readFrame(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			// Torn or corrupt tail: keep what came before it.
			break
		}
		if fn != nil {
			if err := fn(entry); err != nil {
				return err
			}
		}
		intact += n
	}

	// Drop anything past the last intact frame.
	if err := j.file.Truncate(intact); err != nil {
		return err
	}
	if _, err := j.file.Seek(intact, io.SeekStart); err != nil {
		return err
	}

	return nil
}

// Append writes an entry and syncs it to disk before returning.
func (j *FileJournal) Append(e *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	data, err := e.Marshal()
	if err != nil {
		return err
	}
	if len(data) > maxEntrySize {
		return fmt.Errorf("%w: entry of %d bytes", ErrJournalCorrupted, len(data))
	}

	binary.BigEndian.PutUint32(j.buf[:], uint32(len(data)))
	if _, err := j.file.Write(j.buf[:]); err != nil {
		return err
	}
	if _, err := j.file.Write(data); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(j.buf[:], crc32.ChecksumIEEE(data))
	if _, err := j.file.Write(j.buf[:]); err != nil {
		return err
	}

	return j.file.Sync()
}

// Close closes the journal file.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// Path returns the journal file path.
func (j *FileJournal) Path() string {
	return j.path
}

var _ Journal = (*FileJournal)(nil)

// readFrame reads one framed entry, returning the entry and the total frame
// size in bytes.
func readFrame(r io.Reader) (*Entry, int64, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, io.EOF
		}
		return nil, 0, err
	}

	length := binary.BigEndian.Uint32(buf[:])
	if length > maxEntrySize {
		return nil, 0, ErrJournalCorrupted
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, 0, err
	}

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, 0, err
	}
	expected := binary.BigEndian.Uint32(buf[:])
	if actual := crc32.ChecksumIEEE(data); actual != expected {
		return nil, 0, fmt.Errorf("%w: CRC mismatch (expected %08x, got %08x)", ErrJournalCorrupted, expected, actual)
	}

	entry, err := UnmarshalEntry(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrJournalCorrupted, err)
	}

	return entry, int64(4 + length + 4), nil
}
