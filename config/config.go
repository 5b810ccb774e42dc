// Package config loads node configuration: the hostsfile naming every peer
// and its roles, and an optional YAML file tuning timeouts, ports and the
// journal location.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blockberries/decreeberry/engine"
)

var (
	ErrNoConfigFile = errors.New("config file not found")
)

// NodeConfig is the per-node YAML configuration. Every field has a default;
// a missing file yields DefaultNodeConfig.
type NodeConfig struct {
	// Port is the TCP port every peer listens on.
	Port int `yaml:"port"`

	// JournalDir holds the acceptor journal. Empty disables journaling.
	JournalDir string `yaml:"journal_dir"`

	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Retry    RetryConfig    `yaml:"retry"`

	// MessageChannelSize is the inbound buffer of the consensus state loop.
	MessageChannelSize int `yaml:"message_channel_size"`
}

// TimeoutsConfig bounds each phase's quorum wait.
type TimeoutsConfig struct {
	Prepare      time.Duration `yaml:"prepare"`
	PrepareDelta time.Duration `yaml:"prepare_delta"`
	Accept       time.Duration `yaml:"accept"`
	AcceptDelta  time.Duration `yaml:"accept_delta"`
}

// RetryConfig paces new attempts after an abandoned round.
type RetryConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Multiplier      float64       `yaml:"multiplier"`
}

// DefaultNodeConfig returns the defaults used when no YAML file is given.
func DefaultNodeConfig() *NodeConfig {
	ec := engine.DefaultConfig()
	return &NodeConfig{
		Port: 7400,
		Timeouts: TimeoutsConfig{
			Prepare:      ec.Timeouts.Prepare,
			PrepareDelta: ec.Timeouts.PrepareDelta,
			Accept:       ec.Timeouts.Accept,
			AcceptDelta:  ec.Timeouts.AcceptDelta,
		},
		Retry: RetryConfig{
			InitialInterval: ec.Retry.InitialInterval,
			MaxInterval:     ec.Retry.MaxInterval,
			Multiplier:      ec.Retry.Multiplier,
		},
		MessageChannelSize: ec.MessageChannelSize,
	}
}

// LoadNodeConfig reads a YAML node config. Unset fields keep their defaults.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoConfigFile, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultNodeConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// EngineConfig converts the node config into the engine's configuration.
func (c *NodeConfig) EngineConfig() *engine.Config {
	return &engine.Config{
		Timeouts: engine.TimeoutConfig{
			Prepare:      c.Timeouts.Prepare,
			PrepareDelta: c.Timeouts.PrepareDelta,
			Accept:       c.Timeouts.Accept,
			AcceptDelta:  c.Timeouts.AcceptDelta,
		},
		Retry: engine.RetryConfig{
			InitialInterval: c.Retry.InitialInterval,
			MaxInterval:     c.Retry.MaxInterval,
			Multiplier:      c.Retry.Multiplier,
		},
		MessageChannelSize: c.MessageChannelSize,
	}
}
