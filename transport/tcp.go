package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/blockberries/decreeberry/types"
)

const (
	// peerQueueSize bounds the outbound frames buffered per peer
	peerQueueSize = 1000

	// maxFrameSize bounds an inbound line
	maxFrameSize = 1 << 20

	dialTimeout  = 3 * time.Second
	writeTimeout = 5 * time.Second
)

// TCPConfig configures the TCP transport.
type TCPConfig struct {
	// Port every peer listens on.
	Port int

	// ReconnectInitial and ReconnectMax bound the redial backoff.
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

// DefaultTCPConfig returns default TCP transport configuration.
func DefaultTCPConfig() TCPConfig {
	return TCPConfig{
		Port:             7400,
		ReconnectInitial: 100 * time.Millisecond,
		ReconnectMax:     5 * time.Second,
	}
}

// TCP is the wire transport. One goroutine per remote peer drains that
// peer's queue over a lazily dialed connection; one accept loop feeds
// inbound frames to the handler.
type TCP struct {
	mu      sync.Mutex
	config  TCPConfig
	self    uint32
	peers   map[uint32]*peerQueue
	handler Handler
	log     zerolog.Logger

	listener net.Listener
	group    *errgroup.Group
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
}

// peerQueue is the ordered outbound path to one peer.
type peerQueue struct {
	id   uint32
	addr string
	ch   chan []byte
}

// NewTCP creates a TCP transport for self within roster. Inbound frames are
// passed to handler.
func NewTCP(config TCPConfig, roster *types.Roster, self uint32, handler Handler, log zerolog.Logger) *TCP {
	peers := make(map[uint32]*peerQueue)
	for _, p := range roster.Others(self) {
		// A host carrying an explicit port wins over the shared cluster port.
		addr := p.Host
		if _, _, err := net.SplitHostPort(addr); err != nil {
			addr = net.JoinHostPort(p.Host, fmt.Sprintf("%d", config.Port))
		}
		peers[p.ID] = &peerQueue{
			id:   p.ID,
			addr: addr,
			ch:   make(chan []byte, peerQueueSize),
		}
	}

	return &TCP{
		config:  config,
		self:    self,
		peers:   peers,
		handler: handler,
		log:     log.With().Str("component", "transport").Logger(),
	}
}

// Start binds the listener and launches the per-peer senders.
func (t *TCP) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", t.config.Port))
	if err != nil {
		return fmt.Errorf("binding listener: %w", err)
	}
	t.listener = listener

	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.group, _ = errgroup.WithContext(t.ctx)
	t.started = true

	t.group.Go(t.acceptLoop)
	for _, pq := range t.peers {
		pq := pq
		t.group.Go(func() error {
			t.sendLoop(pq)
			return nil
		})
	}

	return nil
}

// Stop closes the listener and waits for all loops to exit.
func (t *TCP) Stop() error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return ErrNotStarted
	}
	t.started = false
	t.mu.Unlock()

	t.cancel()
	t.listener.Close()
	return t.group.Wait()
}

// Send enqueues a frame for the peer. A full queue drops the frame.
func (t *TCP) Send(to uint32, data []byte) {
	pq, ok := t.peers[to]
	if !ok {
		t.log.Warn().Uint32("peer", to).Msg("send to unknown peer")
		return
	}

	select {
	case pq.ch <- data:
	default:
		t.log.Warn().Uint32("peer", to).Msg("peer queue full, dropping frame")
	}
}

// Addr returns the bound listener address, for tests using port 0.
func (t *TCP) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *TCP) acceptLoop() error {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.ctx.Done():
				return nil
			default:
				t.log.Warn().Err(err).Msg("accept failed")
				continue
			}
		}

		t.group.Go(func() error {
			t.readConn(conn)
			return nil
		})
	}
}

// readConn drains one inbound connection, one frame per line.
func (t *TCP) readConn(conn net.Conn) {
	defer conn.Close()

	go func() {
		<-t.ctx.Done()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameSize)
	for scanner.Scan() {
		frame := make([]byte, len(scanner.Bytes()))
		copy(frame, scanner.Bytes())
		t.handler(frame)
	}
	if err := scanner.Err(); err != nil && t.ctx.Err() == nil {
		t.log.Debug().Err(err).Msg("connection closed")
	}
}

// sendLoop drains one peer's queue, redialing with backoff on failure.
// Frames that fail to write are dropped, not requeued; the protocol
// retries.
func (t *TCP) sendLoop(pq *peerQueue) {
	var conn net.Conn
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-t.ctx.Done():
			return

		case frame := <-pq.ch:
			if conn == nil {
				conn = t.dial(pq)
				if conn == nil {
					return // shutting down
				}
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := conn.Write(append(frame, '\n')); err != nil {
				t.log.Debug().Uint32("peer", pq.id).Err(err).Msg("write failed, dropping connection")
				conn.Close()
				conn = nil
			}
		}
	}
}

// dial connects to the peer, retrying with exponential backoff until the
// transport stops.
func (t *TCP) dial(pq *peerQueue) net.Conn {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.config.ReconnectInitial
	b.MaxInterval = t.config.ReconnectMax
	b.MaxElapsedTime = 0

	for {
		conn, err := net.DialTimeout("tcp", pq.addr, dialTimeout)
		if err == nil {
			return conn
		}

		wait := b.NextBackOff()
		t.log.Debug().Uint32("peer", pq.id).Str("addr", pq.addr).Err(err).
			Dur("retry_in", wait).Msg("dial failed")

		select {
		case <-t.ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}
