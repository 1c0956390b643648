package sim

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/manet-trust-router/evidence"
	"github.com/signalsfoundry/manet-trust-router/heartbeat"
	"github.com/signalsfoundry/manet-trust-router/internal/observability"
	"github.com/signalsfoundry/manet-trust-router/ledger"
	"github.com/signalsfoundry/manet-trust-router/metrics"
	"github.com/signalsfoundry/manet-trust-router/model"
	"github.com/signalsfoundry/manet-trust-router/routetable"
	"github.com/signalsfoundry/manet-trust-router/topology"
)

// Scenario wires every core component together for one run: node/flow
// setup, blackhole selection, counters, result emission.
type Scenario struct {
	Config Config

	// Ctx roots the spans onHeartbeat starts. A nil Ctx is safe: ctx()
	// falls back to context.Background(), which is all a run driven
	// entirely by a local loop (not an inbound request) needs.
	Ctx context.Context

	rng   *rand.Rand
	nodes map[model.NodeID]*nodeState

	Blackholes model.BlackholeSet
	Flows      []model.Flow

	Ledger    *ledger.Ledger
	Metrics   *metrics.Metrics
	Mode      topology.Mode
	Addresses *addressBook
	Ingestor  *evidence.Ingestor
	Installer *routetable.Installer
	Tables    map[model.NodeID]*routetable.Table
	Heartbeat *heartbeat.Controller

	// Collector is optional; when set by the caller it receives per-tick
	// timing and topology gauges. A nil Collector is always safe to use.
	Collector *observability.HeartbeatCollector

	currentPaths map[model.Flow][]model.NodeID

	sent         uint64
	delivered    uint64
	latencySumMs float64
	hopsSum      uint64
}

// seed combines rng_seed and rng_run into a single deterministic stream
// selector, so rng_run also salts position allocation and flow choice.
func seed(cfg Config) int64 {
	return int64(cfg.RngSeed)*1_000_003 + int64(cfg.RngRun)
}

// NewScenario builds a fully-wired scenario: nodes, blackholes, flows,
// ledger, ingestor, route tables, installer, and an armed heartbeat
// controller. No events are generated until Run is called.
func NewScenario(cfg Config) (*Scenario, error) {
	if cfg.NumFlows*2 > cfg.NumNodes {
		return nil, fmt.Errorf("sim: not enough nodes (%d) for %d flows", cfg.NumNodes, cfg.NumFlows)
	}
	if cfg.NumBlackholes >= cfg.NumNodes {
		return nil, fmt.Errorf("sim: num_blackholes (%d) must be less than num_nodes (%d)", cfg.NumBlackholes, cfg.NumNodes)
	}

	rng := rand.New(rand.NewSource(seed(cfg)))

	nodes := make(map[model.NodeID]*nodeState, cfg.NumNodes)
	allIDs := make([]model.NodeID, cfg.NumNodes)
	for i := uint(0); i < cfg.NumNodes; i++ {
		id := model.NodeID(i)
		nodes[id] = newNodeState(rng)
		allIDs[i] = id
	}

	blackholeIDs := choose(rng, allIDs, int(cfg.NumBlackholes))
	blackholes := model.NewBlackholeSet(blackholeIDs...)

	flows := chooseFlows(rng, allIDs, blackholes, int(cfg.NumFlows))

	l := ledger.New(ledger.DefaultTrustFloor)
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	var mode topology.Mode
	if cfg.UseBlockchain {
		mode = topology.DefaultProposed()
	} else {
		mode = topology.Baseline{}
	}

	addresses := newAddressBook(allIDs)

	tables := make(map[model.NodeID]*routetable.Table, cfg.NumNodes)
	for _, id := range allIDs {
		tables[id] = routetable.NewTable(id)
	}

	ingestor := &evidence.Ingestor{
		Ledger:       l,
		Metrics:      m,
		Positions:    positionSource{nodes: nodes},
		Addresses:    addresses,
		Blackholes:   blackholes,
		MaxRange:     cfg.MaxRadioRange,
		DefaultSNR:   cfg.DefaultSNR,
		TrustEnabled: mode.TrustEnabled(),
		KnownSources: make(map[model.NodeID]model.NodeID),
	}
	if err := ingestor.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	installer := &routetable.Installer{
		Tables:     tables,
		Addresses:  addresses,
		Blackholes: blackholes,
		Metrics:    m,
		Ledger:     l,
	}

	s := &Scenario{
		Config:       cfg,
		rng:          rng,
		nodes:        nodes,
		Blackholes:   blackholes,
		Flows:        flows,
		Ledger:       l,
		Metrics:      m,
		Mode:         mode,
		Addresses:    addresses,
		Ingestor:     ingestor,
		Installer:    installer,
		Tables:       tables,
		currentPaths: make(map[model.Flow][]model.NodeID, len(flows)),
	}

	s.Heartbeat = heartbeat.NewController(HeartbeatInterval)
	s.Heartbeat.AddListener(s.onHeartbeat)

	return s, nil
}

// ctx returns Ctx, or context.Background() when the caller never set one.
func (s *Scenario) ctx() context.Context {
	if s.Ctx != nil {
		return s.Ctx
	}
	return context.Background()
}

// choose returns n distinct elements of ids in the order rng.Perm produces,
// truncated to n. Used for both blackhole and flow-endpoint selection so
// that rng_run deterministically salts every draw.
func choose(rng *rand.Rand, ids []model.NodeID, n int) []model.NodeID {
	if n > len(ids) {
		n = len(ids)
	}
	perm := rng.Perm(len(ids))
	out := make([]model.NodeID, n)
	for i := 0; i < n; i++ {
		out[i] = ids[perm[i]]
	}
	return out
}

// chooseFlows selects up to n (src, dst) pairs whose endpoints are unique
// across all flows and disjoint from the ground-truth blackhole set. When
// fewer than 2n eligible nodes exist, it returns only as many flows as
// there are disjoint pairs.
func chooseFlows(rng *rand.Rand, ids []model.NodeID, blackholes model.BlackholeSet, n int) []model.Flow {
	eligible := make([]model.NodeID, 0, len(ids))
	for _, id := range ids {
		if !blackholes.Contains(id) {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) < 2 {
		return nil
	}

	perm := rng.Perm(len(eligible))
	flows := make([]model.Flow, 0, n)
	for i := 0; i < n && 2*i+1 < len(perm); i++ {
		flows = append(flows, model.Flow{Src: eligible[perm[2*i]], Dst: eligible[perm[2*i+1]]})
	}
	return flows
}
