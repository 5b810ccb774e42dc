package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blockberries/decreeberry/types"
	"github.com/blockberries/decreeberry/wal"
)

func newTestEngine(t *testing.T, selfID uint32) (*Engine, *types.Roster) {
	t.Helper()
	roster, err := types.NewRoster([]*types.Peer{
		{ID: 1, Host: "p1", Roles: types.RoleProposer | types.RoleAcceptor},
		{ID: 2, Host: "a1", Roles: types.RoleAcceptor},
		{ID: 3, Host: "a2", Roles: types.RoleAcceptor},
	})
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(testConfig(), roster, selfID, wal.NopJournal{}, NopTracer{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, roster
}

func TestNewEngineRejectsUnknownPeer(t *testing.T) {
	roster, err := types.NewRoster([]*types.Peer{
		{ID: 1, Host: "p1", Roles: types.RoleProposer | types.RoleAcceptor},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(testConfig(), roster, 42, wal.NopJournal{}, NopTracer{}); !errors.Is(err, ErrUnknownPeer) {
		t.Fatalf("err = %v, want ErrUnknownPeer", err)
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	roster, err := types.NewRoster([]*types.Peer{
		{ID: 1, Host: "p1", Roles: types.RoleAcceptor},
	})
	if err != nil {
		t.Fatal(err)
	}
	bad := testConfig()
	bad.MessageChannelSize = 0
	if _, err := NewEngine(bad, roster, 1, wal.NopJournal{}, NopTracer{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestEngineProposeRequiresProposerRole(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	if err := e.Propose("X"); !errors.Is(err, ErrNotProposer) {
		t.Fatalf("err = %v, want ErrNotProposer", err)
	}
}

func TestEngineRoundTripOverEncodedFrames(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	var mu sync.Mutex
	frames := make(map[uint32][][]byte)
	e.SetSender(func(to uint32, data []byte) {
		mu.Lock()
		defer mu.Unlock()
		frames[to] = append(frames[to], data)
	})

	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	if err := e.Propose("X"); err != nil {
		t.Fatal(err)
	}

	// The peer-2 acceptor answers through its own engine, wired back over
	// encoded frames.
	peer, err := NewEngine(testConfig(), mustRoster(t), 2, wal.NopJournal{}, NopTracer{})
	if err != nil {
		t.Fatal(err)
	}
	peer.SetSender(func(to uint32, data []byte) {
		if to == 1 {
			e.HandleMessage(data)
		}
	})
	if err := peer.Start(); err != nil {
		t.Fatal(err)
	}
	defer peer.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := 0
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			mu.Lock()
			pending := frames[2][seen:]
			seen = len(frames[2])
			mu.Unlock()
			for _, f := range pending {
				peer.HandleMessage(f)
			}
			if _, ok := e.ChosenValue(); ok {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	<-done

	if v, ok := e.ChosenValue(); !ok || v != "X" {
		t.Fatalf("chosen = %q %v, want X true", v, ok)
	}
}

func mustRoster(t *testing.T) *types.Roster {
	t.Helper()
	roster, err := types.NewRoster([]*types.Peer{
		{ID: 1, Host: "p1", Roles: types.RoleProposer | types.RoleAcceptor},
		{ID: 2, Host: "a1", Roles: types.RoleAcceptor},
		{ID: 3, Host: "a2", Roles: types.RoleAcceptor},
	})
	if err != nil {
		t.Fatal(err)
	}
	return roster
}

func TestEngineDropsMalformedFrames(t *testing.T) {
	var mu sync.Mutex
	var dropped []error
	tracer := &recordingTracer{onDropped: func(err error) {
		mu.Lock()
		defer mu.Unlock()
		dropped = append(dropped, err)
	}}

	e, err := NewEngine(testConfig(), mustRoster(t), 2, wal.NopJournal{}, tracer)
	if err != nil {
		t.Fatal(err)
	}

	e.HandleMessage([]byte("not json"))
	e.HandleMessage([]byte(`{"message_type":"bogus"}`))

	mu.Lock()
	defer mu.Unlock()
	if len(dropped) != 2 {
		t.Fatalf("dropped %d frames, want 2", len(dropped))
	}
}

type recordingTracer struct {
	onDropped func(error)
}

func (*recordingTracer) Sent(*types.Message)                 {}
func (*recordingTracer) Received(*types.Message)             {}
func (*recordingTracer) Chosen(string, types.ProposalNumber) {}
func (rt *recordingTracer) Dropped(err error) {
	if rt.onDropped != nil {
		rt.onDropped(err)
	}
}
