package sim

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/manet-trust-router/internal/observability"
	"github.com/signalsfoundry/manet-trust-router/model"
	"github.com/signalsfoundry/manet-trust-router/routing"
	"github.com/signalsfoundry/manet-trust-router/topology"
)

// wallClockNow is the observability-only clock used to time heartbeat
// ticks. It is a var, not a direct time.Now() call, purely so tests never
// need to reach for it — no test in this package asserts on tick duration.
var wallClockNow = time.Now

// Result is the harness's evaluation output, feeding directly into the
// RESULT_DATA line.
type Result struct {
	RunID          uint
	UseBlockchain  bool
	Sent           uint64
	Delivered      uint64
	PDRPercent     float64
	AvgLatencyMs   float64
	AvgHops        float64
	MaliciousDrops uint64
}

// onHeartbeat is the Heartbeat Controller's listener: it advances mobility,
// rebuilds the topology graph, recomputes each flow's shortest path, and
// installs the resulting routes.
func (s *Scenario) onHeartbeat(now time.Duration) {
	_, span := observability.Tracer().Start(s.ctx(), "heartbeat.Tick",
		trace.WithAttributes(attribute.Int64("heartbeat.now_ms", now.Milliseconds())),
	)
	defer span.End()

	start := wallClockNow()

	dtSeconds := HeartbeatInterval.Seconds()
	// Advance nodes in ascending id order (NewScenario assigns ids
	// 0..NumNodes-1) so rng draws never depend on map iteration order.
	for id := 0; id < len(s.nodes); id++ {
		s.nodes[model.NodeID(id)].advance(s.rng, dtSeconds)
	}

	graph := topology.Build(positionsSnapshot(s.nodes), s.Ledger, s.Config.MaxRadioRange, s.Mode)

	installed := 0
	for _, flow := range s.Flows {
		path := routing.ShortestPath(graph, flow.Src, flow.Dst)
		s.currentPaths[flow] = path
		if len(path) >= 2 {
			s.Installer.Install(path)
			installed++
		}
	}
	span.SetAttributes(
		attribute.Int("heartbeat.flows_installed", installed),
		attribute.Int("heartbeat.node_count", len(s.nodes)),
	)

	if s.Collector != nil {
		s.Collector.ObserveTick(wallClockNow().Sub(start))
		s.Collector.SetTopologyCounts(len(s.nodes), installed, len(s.Blackholes))
	}
}

// transmitPacket walks path hop by hop, feeding a reception or drop trace
// event to the Ingestor at every hop and stopping at the first failure. It
// returns whether the packet reached its destination and how many hops it
// traveled (successfully or not) before the outcome was decided.
func (s *Scenario) transmitPacket(path []model.NodeID) (delivered bool, hops int) {
	hops = len(path) - 1
	for i := 0; i < hops; i++ {
		from, to := path[i], path[i+1]

		s.Ingestor.KnownSources[to] = from
		if s.rng.Float64() < PhyDropProbability {
			s.Ingestor.OnPHYDrop(fmt.Sprintf("/NodeList/%d/DeviceList/0/Phy/PhyRxDrop", to))
			return false, i + 1
		}
		s.Ingestor.OnReception(fmt.Sprintf("/NodeList/%d/DeviceList/0/Phy/PhyRxEnd", to))

		// A blackhole receiving a packet it must relay onward silently
		// drops it instead of forwarding — modeled as an L3 drop at the
		// receiving hop, attributed to the link it just arrived on.
		if i < hops-1 && s.Blackholes.Contains(to) {
			s.Ingestor.OnL3Drop(fmt.Sprintf("/NodeList/%d/Ipv4L3Protocol/Drop", to), s.Addresses.AddressOf(from))
			return false, i + 1
		}
	}
	return true, hops
}

// Run drives the full simulated duration in HeartbeatInterval steps,
// generating one packet attempt per active flow per heartbeat, and returns
// the aggregate evaluation result.
func (s *Scenario) Run() Result {
	totalTicks := int(s.Config.SimTime / HeartbeatInterval.Seconds())

	for tick := 1; tick <= totalTicks; tick++ {
		now := time.Duration(tick) * HeartbeatInterval
		s.Heartbeat.Tick(now)

		for _, flow := range s.Flows {
			path := s.currentPaths[flow]
			s.sent++
			if len(path) < 2 {
				continue
			}
			delivered, hopCount := s.transmitPacket(path)
			s.hopsSum += uint64(hopCount)
			if delivered {
				s.delivered++
				s.latencySumMs += float64(hopCount) * PerHopLatencyMs
			}
		}
	}
	s.Heartbeat.Stop()

	return s.result()
}

func (s *Scenario) result() Result {
	r := Result{
		RunID:          s.Config.RngRun,
		UseBlockchain:  s.Config.UseBlockchain,
		Sent:           s.sent,
		Delivered:      s.delivered,
		MaliciousDrops: s.Metrics.MaliciousDrops(),
	}
	if s.sent > 0 {
		r.PDRPercent = float64(s.delivered) / float64(s.sent) * 100.0
		r.AvgHops = float64(s.hopsSum) / float64(s.sent)
	}
	if s.delivered > 0 {
		r.AvgLatencyMs = s.latencySumMs / float64(s.delivered)
	}
	return r
}

// ModeName reports "Proposed" or "Baseline" for the DROP_SUMMARY line.
func (s *Scenario) ModeName() string {
	return s.Mode.Name()
}
