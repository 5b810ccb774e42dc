// The decreeberry node binary. Every node in the cluster runs the same
// binary against the same hostsfile; the node's hostname selects its roster
// entry and roles. A proposer node given -v submits that value after an
// optional delay, and every node logs the chosen value when it learns it.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/blockberries/decreeberry/config"
	"github.com/blockberries/decreeberry/engine"
	"github.com/blockberries/decreeberry/trace"
	"github.com/blockberries/decreeberry/transport"
	"github.com/blockberries/decreeberry/wal"
)

func main() {
	var (
		hostsfile  = flag.String("h", "hostsfile", "path to the cluster hostsfile")
		value      = flag.String("v", "", "value to propose (proposer nodes only)")
		delay      = flag.Duration("t", 0, "delay before proposing")
		configPath = flag.String("c", "", "path to the YAML node config")
	)
	flag.Parse()

	if err := run(*hostsfile, *value, *delay, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "decreeberry: %v\n", err)
		os.Exit(1)
	}
}

func run(hostsfile, value string, delay time.Duration, configPath string) error {
	roster, err := config.ParseHostsfile(hostsfile)
	if err != nil {
		return err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("resolving hostname: %w", err)
	}
	selfID, err := config.SelfID(roster, hostname)
	if err != nil {
		return err
	}
	self := roster.Get(selfID)

	nodeCfg := config.DefaultNodeConfig()
	if configPath != "" {
		nodeCfg, err = config.LoadNodeConfig(configPath)
		if err != nil {
			return err
		}
	}

	journal := wal.Journal(wal.NopJournal{})
	if nodeCfg.JournalDir != "" && self.Roles.HasAcceptor() {
		path := filepath.Join(nodeCfg.JournalDir, fmt.Sprintf("acceptor-%d.wal", selfID))
		fj, err := wal.OpenFileJournal(path)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		journal = fj
		defer fj.Close()
	}

	tracer := trace.New(os.Stderr, selfID)
	log := zerolog.New(os.Stderr).With().Timestamp().Uint32("peer_id", selfID).Logger()

	eng, err := engine.NewEngine(nodeCfg.EngineConfig(), roster, selfID, journal, tracer)
	if err != nil {
		return err
	}

	tcpCfg := transport.DefaultTCPConfig()
	tcpCfg.Port = nodeCfg.Port
	tr := transport.NewTCP(tcpCfg, roster, selfID, eng.HandleMessage, log)
	eng.SetSender(tr.Send)

	if err := tr.Start(); err != nil {
		return err
	}
	defer tr.Stop()

	if err := eng.Start(); err != nil {
		return err
	}
	defer eng.Stop()

	log.Info().Str("host", hostname).Str("roles", self.Roles.String()).Msg("node started")

	if value != "" {
		if !self.Roles.HasProposer() {
			return engine.ErrNotProposer
		}
		go func() {
			if delay > 0 {
				time.Sleep(delay)
			}
			if err := eng.Propose(value); err != nil {
				log.Error().Err(err).Msg("proposal rejected")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case chosen := <-eng.SubscribeChosen():
		fmt.Printf("chose %q\n", chosen)
		// Stay up so the decision reaches every peer; retransmissions and
		// late learners still need this node.
		<-sigCh
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return nil
}
