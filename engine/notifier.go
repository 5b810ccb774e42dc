package engine

import (
	"fmt"
	"sync"

	"github.com/blockberries/decreeberry/types"
)

// ChosenNotifier surfaces the chosen value exactly once per node. A node may
// learn the outcome repeatedly: from its own round reaching quorum, and from
// chosen broadcasts of other nodes. Only the first signal is forwarded;
// later signals for the same value are absorbed. A later signal carrying a
// DIFFERENT value is a safety violation and is reported, never applied.
type ChosenNotifier struct {
	mu     sync.Mutex
	chosen bool
	value  string
	number types.ProposalNumber
	subs   []chan string
}

// NewChosenNotifier creates a ChosenNotifier.
func NewChosenNotifier() *ChosenNotifier {
	return &ChosenNotifier{}
}

// Subscribe returns a channel that delivers the chosen value once. If the
// value is already known it is delivered immediately.
func (cn *ChosenNotifier) Subscribe() <-chan string {
	cn.mu.Lock()
	defer cn.mu.Unlock()

	ch := make(chan string, 1)
	if cn.chosen {
		ch <- cn.value
	} else {
		cn.subs = append(cn.subs, ch)
	}
	return ch
}

// Notify records that value was chosen under number. It returns true if this
// was the first signal, and an ErrConflictingChosen error if a later signal
// disagrees with the recorded value.
func (cn *ChosenNotifier) Notify(value string, number types.ProposalNumber) (bool, error) {
	cn.mu.Lock()
	defer cn.mu.Unlock()

	if cn.chosen {
		if cn.value != value {
			return false, fmt.Errorf("%w: have %q under %v, got %q under %v",
				ErrConflictingChosen, cn.value, cn.number, value, number)
		}
		return false, nil
	}

	cn.chosen = true
	cn.value = value
	cn.number = number

	for _, ch := range cn.subs {
		ch <- value
	}
	cn.subs = nil

	return true, nil
}

// Value returns the chosen value, if any.
func (cn *ChosenNotifier) Value() (string, bool) {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	return cn.value, cn.chosen
}
