// Package model holds the plain data types shared across the routing core:
// node identifiers, positions, flows, and the ground-truth blackhole set.
package model

import (
	"fmt"
	"math"
)

// NodeID identifies a node in the MANET. It mirrors ns-3's Node::GetId(),
// a small non-negative integer assigned at node creation.
type NodeID uint32

func (n NodeID) String() string {
	return fmt.Sprintf("n%d", uint32(n))
}

// Position is a 2-D Euclidean coordinate (metres) for a ground-mobile node.
// A MANET node moves on a plane, so there is no third axis and no
// Earth-sphere line-of-sight check to perform.
type Position struct {
	X, Y float64
}

// DistanceTo returns the straight-line distance to another position, in the
// same units as X/Y (metres).
func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// LinkKey is the canonical, order-independent key under which the ledger
// indexes a link. Two nodes always hash to the same key regardless of which
// one is passed as src or dst.
type LinkKey struct {
	A, B NodeID
}

// NewLinkKey normalizes (a, b) into (min, max) so the ledger has exactly one
// record per unordered pair.
func NewLinkKey(a, b NodeID) LinkKey {
	if a <= b {
		return LinkKey{A: a, B: b}
	}
	return LinkKey{A: b, B: a}
}

func (k LinkKey) String() string {
	return fmt.Sprintf("%s-%s", k.A, k.B)
}

// Flow is an immutable source/destination pair driving one UDP flow for the
// duration of a run.
type Flow struct {
	Src NodeID
	Dst NodeID
}

// BlackholeSet is the ground-truth set of malicious node identifiers chosen
// at startup. It is consulted only by the Route Installer (to simulate
// forwarding refusal) and by evaluation accounting — never by the ledger or
// the topology builder, which must discover misbehavior from evidence alone.
type BlackholeSet map[NodeID]struct{}

// NewBlackholeSet builds a BlackholeSet from a slice of node IDs.
func NewBlackholeSet(ids ...NodeID) BlackholeSet {
	s := make(BlackholeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether node is in the ground-truth malicious set.
func (s BlackholeSet) Contains(node NodeID) bool {
	if s == nil {
		return false
	}
	_, ok := s[node]
	return ok
}
