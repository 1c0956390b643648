// Package routetable models the per-node host routing table interface
// consumed by the Route Installer: add_host_route / remove_route with
// enumeration, plus the Installer that pushes computed next-hops into it
// while suppressing installations on ground-truth malicious nodes.
package routetable

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/manet-trust-router/ledger"
	"github.com/signalsfoundry/manet-trust-router/metrics"
	"github.com/signalsfoundry/manet-trust-router/model"
)

var (
	// ErrEmptyDestination is returned by AddHostRoute when destAddr is empty.
	ErrEmptyDestination = errors.New("routetable: destination address is required")
	// ErrRouteNotFound is returned by RemoveRoute for an unknown index.
	ErrRouteNotFound = errors.New("routetable: route not found")
	// ErrInvalidInterface is returned when the outbound interface id is
	// negative. Installer.Install skips that hop and goes on with the rest
	// of the path; the error is neither logged nor returned.
	ErrInvalidInterface = errors.New("routetable: invalid interface id")
)

// Entry is one installed host route.
type Entry struct {
	Index       int
	DestAddr    string
	NextHopAddr string
	InterfaceID int
}

// Table is a per-node host routing table abstraction, standing in for the
// underlying OS route table that a real deployment would program.
type Table struct {
	NodeID model.NodeID

	entries map[int]Entry
	nextIdx int
}

// NewTable constructs an empty table for one node.
func NewTable(node model.NodeID) *Table {
	return &Table{NodeID: node, entries: make(map[int]Entry)}
}

// AddHostRoute installs a host route to destAddr via nextHopAddr on the
// given outbound interface, returning the route's enumeration index.
func (t *Table) AddHostRoute(destAddr, nextHopAddr string, interfaceID int) (int, error) {
	if destAddr == "" {
		return -1, ErrEmptyDestination
	}
	if interfaceID < 0 {
		return -1, ErrInvalidInterface
	}
	idx := t.nextIdx
	t.nextIdx++
	t.entries[idx] = Entry{Index: idx, DestAddr: destAddr, NextHopAddr: nextHopAddr, InterfaceID: interfaceID}
	return idx, nil
}

// RemoveRoute deletes the route at index.
func (t *Table) RemoveRoute(index int) error {
	if _, ok := t.entries[index]; !ok {
		return ErrRouteNotFound
	}
	delete(t.entries, index)
	return nil
}

// RemoveRoutesForDestination removes every existing entry for destAddr,
// mirroring the Installer's "remove any existing host-route entries for
// destination d's address" step before it installs a new one.
func (t *Table) RemoveRoutesForDestination(destAddr string) {
	for idx, e := range t.entries {
		if e.DestAddr == destAddr {
			delete(t.entries, idx)
		}
	}
}

// Routes returns a snapshot of every installed entry.
func (t *Table) Routes() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	return out
}

// AddressResolver maps a node identifier to the L3 address used for host
// routes, and an outbound interface identifier for a given next hop.
type AddressResolver interface {
	AddressOf(node model.NodeID) string
	InterfaceTo(node, nextHop model.NodeID) int
}

// Installer pushes computed next-hop paths into per-node route tables,
// skipping installation on nodes the ground-truth blackhole set marks
// malicious (simulating a node that refuses to forward).
type Installer struct {
	Tables     map[model.NodeID]*Table
	Addresses  AddressResolver
	Blackholes model.BlackholeSet
	Metrics    *metrics.Metrics

	// Ledger's dynamic classification hook is available here but
	// intentionally never consulted — only the ground-truth blackhole set
	// gates installation.
	Ledger *ledger.Ledger
}

// Install applies one flow's computed path. For every hop path[i], if
// path[i] is in the ground-truth malicious set the installation is skipped
// (counted as route_skips and one anticipated dropped packet); otherwise
// any existing routes for the destination are cleared and a fresh next-hop
// route is installed.
func (in *Installer) Install(path []model.NodeID) error {
	if len(path) < 2 {
		return nil
	}
	dst := path[len(path)-1]
	destAddr := in.Addresses.AddressOf(dst)

	for i := 0; i < len(path)-1; i++ {
		hop := path[i]
		nextHop := path[i+1]

		if in.Blackholes.Contains(hop) {
			in.Metrics.IncRouteSkips()
			in.Metrics.IncMaliciousDrops()
			continue
		}

		table, ok := in.Tables[hop]
		if !ok {
			return fmt.Errorf("routetable: no table registered for node %s", hop)
		}

		table.RemoveRoutesForDestination(destAddr)

		ifaceID := in.Addresses.InterfaceTo(hop, nextHop)
		nextHopAddr := in.Addresses.AddressOf(nextHop)
		if _, err := table.AddHostRoute(destAddr, nextHopAddr, ifaceID); err != nil {
			// Invalid interface index: skip this hop and continue trying
			// the rest of the path rather than aborting the whole install.
			continue
		}
	}
	return nil
}
