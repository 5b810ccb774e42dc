package transport

import (
	"math/rand"
	"sync"
	"time"
)

// Network connects in-process nodes for tests. Deliveries run on their own
// goroutines, so ordering across peers is as loose as a real network;
// options add duplication and per-frame jitter on top.
type Network struct {
	mu      sync.Mutex
	nodes   map[uint32]Handler
	dup     bool
	jitter  time.Duration
	dropped map[uint32]bool
}

// NetworkOption configures a Network.
type NetworkOption func(*Network)

// WithDuplication delivers every frame twice.
func WithDuplication() NetworkOption {
	return func(n *Network) { n.dup = true }
}

// WithJitter delays each delivery by a random duration up to d, reordering
// frames between peers and, combined with duplication, within a peer pair.
func WithJitter(d time.Duration) NetworkOption {
	return func(n *Network) { n.jitter = d }
}

// NewNetwork creates an in-memory network.
func NewNetwork(opts ...NetworkOption) *Network {
	n := &Network{
		nodes:   make(map[uint32]Handler),
		dropped: make(map[uint32]bool),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Join registers a node and returns its transport endpoint.
func (n *Network) Join(id uint32, handler Handler) *Memory {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[id] = handler
	return &Memory{net: n, self: id}
}

// Partition drops all frames to and from the node until Heal.
func (n *Network) Partition(id uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropped[id] = true
}

// Heal reconnects a partitioned node.
func (n *Network) Heal(id uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.dropped, id)
}

func (n *Network) deliver(from, to uint32, data []byte) {
	n.mu.Lock()
	handler := n.nodes[to]
	blocked := n.dropped[from] || n.dropped[to]
	dup := n.dup
	jitter := n.jitter
	n.mu.Unlock()

	if handler == nil || blocked {
		return
	}

	copies := 1
	if dup {
		copies = 2
	}
	for i := 0; i < copies; i++ {
		go func() {
			if jitter > 0 {
				time.Sleep(time.Duration(rand.Int63n(int64(jitter))))
			}
			handler(data)
		}()
	}
}

// Memory is one node's endpoint on a Network.
type Memory struct {
	net  *Network
	self uint32
}

// Send delivers the frame asynchronously.
func (m *Memory) Send(to uint32, data []byte) {
	m.net.deliver(m.self, to, data)
}

// Start is a no-op; the network is live from Join.
func (m *Memory) Start() error { return nil }

// Stop detaches the node from the network.
func (m *Memory) Stop() error {
	m.net.mu.Lock()
	defer m.net.mu.Unlock()
	delete(m.net.nodes, m.self)
	return nil
}
