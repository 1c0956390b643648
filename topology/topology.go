// Package topology builds the ephemeral weighted graph that the Path Solver
// runs over: a pure projection of node positions, the current ledger state,
// and a radio-range threshold. A Graph is built and discarded every
// heartbeat, from scratch, rather than incrementally patched.
package topology

import (
	"sort"

	"github.com/signalsfoundry/manet-trust-router/ledger"
	"github.com/signalsfoundry/manet-trust-router/model"
)

// Mode selects the edge-cost function and, implicitly, whether trust
// accounting is active. This is a tagged variant in place of a single
// trust_enabled boolean threaded through every call site.
type Mode interface {
	// EdgeWeight returns the cost of an edge given its current smoothed
	// SNR and trust.
	EdgeWeight(snr, trust float64) float64
	// TrustEnabled reports whether drops on this mode's edges should be
	// applied to ledger trust (vs. baseline mode, which only counts them).
	TrustEnabled() bool
	// Name identifies the mode for the DROP_SUMMARY / RESULT_DATA output.
	Name() string
}

// Proposed is the trust-weighted routing mode: cost = Alpha/snr + Beta/trust.
// Because trust is floored, the maximum per-edge cost is bounded
// (Alpha/snr_min + Beta/Floor), which preserves graph connectivity even
// across fully penalized links.
type Proposed struct {
	Alpha float64
	Beta  float64
}

// DefaultProposed returns the Proposed mode with its pinned defaults. Beta
// is pinned at 500.0: two historical constructors for this mode disagreed
// on 500.0 vs 1000.0, and 500.0 is the value that took effect at runtime.
func DefaultProposed() Proposed {
	return Proposed{Alpha: 1.0, Beta: 500.0}
}

func (p Proposed) EdgeWeight(snr, trust float64) float64 {
	return p.Alpha/snr + p.Beta/trust
}

func (Proposed) TrustEnabled() bool { return true }
func (Proposed) Name() string       { return "Proposed" }

// Baseline is pure hop-count routing: every in-range edge costs 1.0 and
// drops never touch trust.
type Baseline struct{}

func (Baseline) EdgeWeight(float64, float64) float64 { return 1.0 }
func (Baseline) TrustEnabled() bool                  { return false }
func (Baseline) Name() string                        { return "Baseline" }

// Edge is one undirected, weighted connection in the graph.
type Edge struct {
	To     model.NodeID
	Weight float64
}

// Graph is the derived, ephemeral topology for one heartbeat: a set of
// nodes and an adjacency list of undirected weighted edges. It is built and
// discarded each tick and never outlives a heartbeat.
type Graph struct {
	Nodes []model.NodeID
	adj   map[model.NodeID][]Edge
}

// Neighbors returns the edges incident to node, or nil if node is not in
// the graph.
func (g *Graph) Neighbors(node model.NodeID) []Edge {
	return g.adj[node]
}

// Has reports whether node is present in the graph.
func (g *Graph) Has(node model.NodeID) bool {
	_, ok := g.adj[node]
	return ok
}

// Build constructs the weighted graph for one heartbeat. Every unordered
// pair whose current Euclidean distance is strictly less than maxRange gets
// an undirected edge, regardless of whether either endpoint is currently
// classified as malicious — avoidance is the routing cost's job, not
// topology's.
func Build(positions map[model.NodeID]model.Position, l *ledger.Ledger, maxRange float64, mode Mode) *Graph {
	g := &Graph{adj: make(map[model.NodeID][]Edge, len(positions))}

	ids := make([]model.NodeID, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
		g.adj[id] = nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	g.Nodes = ids

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			if positions[a].DistanceTo(positions[b]) >= maxRange {
				continue
			}
			snr := l.SNR(a, b)
			trust := l.Trust(a, b)
			weight := mode.EdgeWeight(snr, trust)
			g.adj[a] = append(g.adj[a], Edge{To: b, Weight: weight})
			g.adj[b] = append(g.adj[b], Edge{To: a, Weight: weight})
		}
	}

	return g
}
