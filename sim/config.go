// Package sim is the Simulation Harness: it stands in for the out-of-scope
// PHY simulator described in the routing core's interface contract. It
// places nodes, moves them under a random-waypoint mobility model, selects
// the ground-truth blackhole set and the active flows, drives the
// Heartbeat Controller, and generates a minimal, deterministic stream of
// reception/drop trace events consistent with the topology it built —
// enough to exercise the Ledger, Topology Builder, Path Solver, and Route
// Installer end to end and reproduce the reference scenarios.
package sim

import "time"

// Config is the harness's configuration surface (see cmd/manetsim).
type Config struct {
	NumNodes      uint
	NumFlows      uint
	NumBlackholes uint
	SimTime       float64 // seconds
	MaxRadioRange float64 // metres
	DefaultSNR    float64 // dB
	RngSeed       uint
	RngRun        uint
	UseBlockchain bool
}

// DefaultConfig returns the defaults from the external interface table.
func DefaultConfig() Config {
	return Config{
		NumNodes:      30,
		NumFlows:      10,
		NumBlackholes: 7,
		SimTime:       60.0,
		MaxRadioRange: 150.0,
		DefaultSNR:    20.0,
		RngSeed:       1,
		RngRun:        1,
		UseBlockchain: true,
	}
}

const (
	// HeartbeatInterval is short enough to track pedestrian mobility, long
	// enough to amortize the Dijkstra fan-out.
	HeartbeatInterval = 100 * time.Millisecond

	// AreaSize is the side length, in metres, of the square deployment
	// area nodes are placed and move within.
	AreaSize = 500.0

	// MinSpeedMps and MaxSpeedMps bound the random-waypoint mobility
	// model's per-node speed to a pedestrian range.
	MinSpeedMps = 1.0
	MaxSpeedMps = 5.0

	// PerHopLatencyMs is the fixed per-hop forwarding delay used to
	// synthesize avg_latency_ms; the harness has no queueing model, so
	// this is a constant rather than a distribution.
	PerHopLatencyMs = 5.0

	// PhyDropProbability is the background radio-layer loss rate applied
	// independently of any blackhole behavior, giving the PHY drop
	// counter and trust-decay path something to exercise even on honest
	// links.
	PhyDropProbability = 0.02
)
