package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blockberries/decreeberry/types"
)

var (
	ErrMalformedHostsfile = errors.New("malformed hostsfile")
	ErrUnknownRole        = errors.New("unknown role")
	ErrSelfNotInHostsfile = errors.New("own hostname not present in hostsfile")
)

// ParseHostsfile reads the cluster topology. Each non-empty line names one
// peer as `<host>:<role>[,<role>...]`; peer ids are assigned from the line
// number, starting at 1, so every node derives the same ids from the same
// file. Roles are `proposer`, `acceptor` and `learner`; a numeric suffix
// (`acceptor2`) names the instance in the original's trace format and is
// accepted and ignored.
func ParseHostsfile(path string) (*types.Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening hostsfile: %w", err)
	}
	defer f.Close()

	return parseHostsfile(f)
}

func parseHostsfile(f *os.File) (*types.Roster, error) {
	var peers []*types.Peer

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		host, rolesPart, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: missing ':'", ErrMalformedHostsfile, lineno)
		}
		host = strings.TrimSpace(host)
		if host == "" {
			return nil, fmt.Errorf("%w: line %d: empty host", ErrMalformedHostsfile, lineno)
		}

		roles, err := parseRoles(rolesPart)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}

		peers = append(peers, &types.Peer{
			ID:    uint32(lineno),
			Host:  host,
			Roles: roles,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading hostsfile: %w", err)
	}

	return types.NewRoster(peers)
}

func parseRoles(s string) (types.Role, error) {
	var roles types.Role
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(name, "proposer"):
			roles |= types.RoleProposer
		case strings.HasPrefix(name, "acceptor"):
			roles |= types.RoleAcceptor
		case strings.HasPrefix(name, "learner"):
			// Learner carries no capability bits.
		case name == "":
			return 0, fmt.Errorf("%w: empty role", ErrMalformedHostsfile)
		default:
			return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
		}
	}
	return roles, nil
}

// SelfID finds this node's peer id by matching hostname against the roster.
func SelfID(roster *types.Roster, hostname string) (uint32, error) {
	for _, p := range roster.Peers() {
		if p.Host == hostname {
			return p.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrSelfNotInHostsfile, hostname)
}
