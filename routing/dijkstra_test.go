package routing

import (
	"reflect"
	"testing"

	"github.com/signalsfoundry/manet-trust-router/ledger"
	"github.com/signalsfoundry/manet-trust-router/model"
	"github.com/signalsfoundry/manet-trust-router/topology"
)

func chain3() map[model.NodeID]model.Position {
	return map[model.NodeID]model.Position{
		0: {X: 0, Y: 0},
		1: {X: 50, Y: 0},
		2: {X: 100, Y: 0},
	}
}

// TestChainPath is scenario S1: no drops, 3 colinear nodes, path 0->2 must
// route through the middle hop in both modes.
func TestChainPath(t *testing.T) {
	l := ledger.New(ledger.DefaultTrustFloor)
	for _, mode := range []topology.Mode{topology.Baseline{}, topology.DefaultProposed()} {
		g := topology.Build(chain3(), l, 70, mode)
		got := ShortestPath(g, 0, 2)
		want := []model.NodeID{0, 1, 2}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: ShortestPath = %v, want %v", mode.Name(), got, want)
		}
	}
}

func TestMissingEndpointYieldsEmptyPath(t *testing.T) {
	l := ledger.New(ledger.DefaultTrustFloor)
	g := topology.Build(chain3(), l, 70, topology.Baseline{})
	if got := ShortestPath(g, 0, 99); got != nil {
		t.Fatalf("expected empty path for missing destination, got %v", got)
	}
}

func TestNoPathWhenDisconnected(t *testing.T) {
	positions := map[model.NodeID]model.Position{
		0: {X: 0, Y: 0},
		1: {X: 1000, Y: 0},
	}
	l := ledger.New(ledger.DefaultTrustFloor)
	g := topology.Build(positions, l, 70, topology.Baseline{})
	if got := ShortestPath(g, 0, 1); got != nil {
		t.Fatalf("expected empty path when out of range, got %v", got)
	}
}

// TestDetourAroundPenalizedLink is scenario S4: a square of 4 nodes with two
// equal 2-hop routes from 0 to 3, through node 1 or through node 2.
// Baseline (hop count only) breaks the tie toward node 1 by ascending id;
// once link (0,1)/(1,3) trust collapses, Proposed should prefer the detour
// through node 2.
func TestDetourAroundPenalizedLink(t *testing.T) {
	positions := map[model.NodeID]model.Position{
		0: {X: 0, Y: 0},
		1: {X: 50, Y: 0},
		2: {X: 50, Y: 50},
		3: {X: 100, Y: 50},
	}
	l := ledger.New(ledger.DefaultTrustFloor)
	const maxRange = 75.0 // wide enough to include the ~70.7m diagonals

	baselineGraph := topology.Build(positions, l, maxRange, topology.Baseline{})
	baselinePath := ShortestPath(baselineGraph, 0, 3)
	want := []model.NodeID{0, 1, 3}
	if !reflect.DeepEqual(baselinePath, want) {
		t.Fatalf("baseline path = %v, want %v", baselinePath, want)
	}

	// Drive links through node 1 to the trust floor.
	for i := 0; i < 5; i++ {
		l.Update(0, 1, 0, true, true)
		l.Update(1, 3, 0, true, true)
	}
	// Healthy SNR on the detour so its cost stays low.
	l.Update(0, 2, 20, false, true)
	l.Update(2, 3, 20, false, true)

	proposedGraph := topology.Build(positions, l, maxRange, topology.DefaultProposed())
	proposedPath := ShortestPath(proposedGraph, 0, 3)
	detour := []model.NodeID{0, 2, 3}
	if !reflect.DeepEqual(proposedPath, detour) {
		t.Fatalf("proposed path = %v, want detour %v", proposedPath, detour)
	}
}

func TestSourceEqualsDestination(t *testing.T) {
	l := ledger.New(ledger.DefaultTrustFloor)
	g := topology.Build(chain3(), l, 70, topology.Baseline{})
	got := ShortestPath(g, 1, 1)
	want := []model.NodeID{1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ShortestPath(same node) = %v, want %v", got, want)
	}
}
