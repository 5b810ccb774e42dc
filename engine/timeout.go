package engine

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// timeoutChannelSize is the buffer size for timeout channels
	timeoutChannelSize = 100
)

// Phase identifies where a proposer round is in its lifecycle.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhasePreparing
	PhaseAccepting
	PhaseChosen
	PhaseAbandoned
)

// PhaseString returns a string representation of the phase
func PhaseString(p Phase) string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhasePreparing:
		return "Preparing"
	case PhaseAccepting:
		return "Accepting"
	case PhaseChosen:
		return "Chosen"
	case PhaseAbandoned:
		return "Abandoned"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// TimeoutInfo represents a timeout event. Attempt ties the event to one
// proposer round so a late-firing timer from a dead round is ignored.
type TimeoutInfo struct {
	Duration time.Duration
	Attempt  uint64
	Phase    Phase
}

// TimeoutConfig holds timeout configuration
type TimeoutConfig struct {
	Prepare      time.Duration
	PrepareDelta time.Duration
	Accept       time.Duration
	AcceptDelta  time.Duration
}

// DefaultTimeoutConfig returns default timeout configuration
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Prepare:      1000 * time.Millisecond,
		PrepareDelta: 500 * time.Millisecond,
		Accept:       1000 * time.Millisecond,
		AcceptDelta:  500 * time.Millisecond,
	}
}

// TimeoutTicker manages timeouts for the consensus state machine
type TimeoutTicker struct {
	mu     sync.Mutex
	config TimeoutConfig

	timer   *time.Timer
	tickCh  chan TimeoutInfo
	tockCh  chan TimeoutInfo
	stopCh  chan struct{}
	running bool

	// Metrics
	droppedTimeouts uint64
}

// NewTimeoutTicker creates a new TimeoutTicker
func NewTimeoutTicker(config TimeoutConfig) *TimeoutTicker {
	return &TimeoutTicker{
		config: config,
		tickCh: make(chan TimeoutInfo, timeoutChannelSize),
		tockCh: make(chan TimeoutInfo, timeoutChannelSize),
		stopCh: make(chan struct{}),
	}
}

// Start starts the timeout ticker
func (tt *TimeoutTicker) Start() {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if tt.running {
		return
	}
	tt.running = true

	go tt.run()
}

// Stop stops the timeout ticker
func (tt *TimeoutTicker) Stop() {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if !tt.running {
		return
	}
	tt.running = false

	close(tt.stopCh)
	if tt.timer != nil {
		tt.timer.Stop()
	}
}

// Chan returns the channel that delivers timeout events
func (tt *TimeoutTicker) Chan() <-chan TimeoutInfo {
	return tt.tockCh
}

// ScheduleTimeout schedules a new timeout, replacing any pending one.
// A zero Duration is filled in from the phase configuration.
func (tt *TimeoutTicker) ScheduleTimeout(ti TimeoutInfo) {
	tt.tickCh <- ti
}

func (tt *TimeoutTicker) run() {
	for {
		select {
		case <-tt.stopCh:
			return

		case ti := <-tt.tickCh:
			tt.mu.Lock()
			// Cancel any existing timer
			if tt.timer != nil {
				tt.timer.Stop()
			}

			if ti.Duration <= 0 {
				ti.Duration = tt.calculateDuration(ti)
			}
			tiCopy := ti

			// Start new timer
			tt.timer = time.AfterFunc(ti.Duration, func() {
				select {
				case tt.tockCh <- tiCopy:
				case <-tt.stopCh:
					// Ticker stopped, don't send
				default:
					// Channel full, drop timeout and log warning
					count := atomic.AddUint64(&tt.droppedTimeouts, 1)
					log.Printf("WARN: dropped timeout due to full channel: attempt=%d phase=%s total_dropped=%d",
						tiCopy.Attempt, PhaseString(tiCopy.Phase), count)
				}
			})
			tt.mu.Unlock()
		}
	}
}

// calculateDuration grows the phase timeout with the attempt counter, so
// later rounds wait longer for a quorum before giving up.
func (tt *TimeoutTicker) calculateDuration(ti TimeoutInfo) time.Duration {
	switch ti.Phase {
	case PhasePreparing:
		return tt.config.Prepare + time.Duration(ti.Attempt)*tt.config.PrepareDelta
	case PhaseAccepting:
		return tt.config.Accept + time.Duration(ti.Attempt)*tt.config.AcceptDelta
	default:
		return time.Second
	}
}

// DroppedTimeouts returns the number of timeouts dropped due to full channel
func (tt *TimeoutTicker) DroppedTimeouts() uint64 {
	return atomic.LoadUint64(&tt.droppedTimeouts)
}
