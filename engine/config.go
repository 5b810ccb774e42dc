package engine

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig paces the gap between an abandoned round and the next attempt.
// Exponential growth with jitter keeps two competing proposers from
// re-colliding in lockstep forever.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// Config holds configuration for the consensus engine
type Config struct {
	// Timeouts bound each phase's quorum wait
	Timeouts TimeoutConfig

	// Retry paces new attempts after an abandoned round
	Retry RetryConfig

	// MessageChannelSize is the inbound message buffer of the state loop
	MessageChannelSize int
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Timeouts: DefaultTimeoutConfig(),
		Retry: RetryConfig{
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      1.5,
		},
		MessageChannelSize: 1000,
	}
}

// ValidateBasic performs basic validation of the config
func (cfg *Config) ValidateBasic() error {
	if cfg.Timeouts.Prepare <= 0 || cfg.Timeouts.Accept <= 0 {
		return ErrInvalidConfig
	}
	if cfg.Retry.InitialInterval <= 0 || cfg.Retry.Multiplier < 1 {
		return ErrInvalidConfig
	}
	if cfg.MessageChannelSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// newRetryBackoff builds the per-node retry pacer from the config.
func (cfg *Config) newRetryBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.Retry.InitialInterval
	b.MaxInterval = cfg.Retry.MaxInterval
	b.Multiplier = cfg.Retry.Multiplier
	b.MaxElapsedTime = 0 // rounds retry until a value is chosen
	b.Reset()
	return b
}
