// Package metrics owns the evaluation-only counters for one simulation run:
// values threaded explicitly into the Evidence Ingestor and Route Installer
// rather than a global singleton (see DESIGN.md). None of these counters
// are read by any algorithmic path — they exist purely for the RESULT_DATA
// / DROP_SUMMARY output lines and for the optional Prometheus scrape
// endpoint.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles five of the six evaluation counters (trust_penalties is
// kept by ledger.Ledger) plus one supplemental counter (queue drops,
// present in the original ns-3 experiment but dropped by the distillation)
// behind Prometheus counters registered against a caller-supplied
// registry. Each counter is also kept as a plain uint64, read through the
// PHYDrops/L3Drops/... accessors, so output rendering never has to query
// Prometheus.
type Metrics struct {
	registry prometheus.Registerer
	gatherer prometheus.Gatherer

	phyDrops         prometheus.Counter
	l3Drops          prometheus.Counter
	blackholeL3Drops prometheus.Counter
	routeSkips       prometheus.Counter
	maliciousDrops   prometheus.Counter
	queueDrops       prometheus.Counter

	phyDropsN         uint64
	l3DropsN          uint64
	blackholeL3DropsN uint64
	routeSkipsN       uint64
	maliciousDropsN   uint64
	queueDropsN       uint64
}

// New constructs a Metrics value registered against reg. A nil reg gets its
// own fresh prometheus.NewRegistry() rather than the global default
// registry, so concurrent test runs and repeated CLI invocations in the
// same process never collide on collector names.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	gatherer := prometheus.Gatherer(prometheus.NewRegistry())
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{registry: reg, gatherer: gatherer}

	counters := []struct {
		name string
		help string
		dest *prometheus.Counter
	}{
		{"manet_phy_drops_total", "Packets discarded by the radio layer.", &m.phyDrops},
		{"manet_l3_drops_total", "Packets discarded at the network layer.", &m.l3Drops},
		{"manet_blackhole_l3_drops_total", "L3 drops observed at a ground-truth malicious node.", &m.blackholeL3Drops},
		{"manet_route_skips_total", "Route installations skipped on a ground-truth malicious node.", &m.routeSkips},
		{"manet_malicious_drops_total", "Loose upper bound on packets dropped by malicious nodes (double-counted by design, see DESIGN.md).", &m.maliciousDrops},
		{"manet_queue_drops_total", "L3 drops attributed to a full interface queue rather than a missing route.", &m.queueDrops},
	}

	for _, c := range counters {
		counter, err := registerCounter(reg, c.name, c.help)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", c.name, err)
		}
		*c.dest = counter
	}

	return m, nil
}

func registerCounter(reg prometheus.Registerer, name, help string) (prometheus.Counter, error) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

// Reset zeroes the plain-integer view of every counter used for
// RESULT_DATA / DROP_SUMMARY output. The Prometheus collectors keep their
// values, since prometheus.Counter has no Set/Reset method by design;
// callers that need a truly fresh Metrics for a new run should construct
// one with New instead.
func (m *Metrics) Reset() {
	m.phyDropsN = 0
	m.l3DropsN = 0
	m.blackholeL3DropsN = 0
	m.routeSkipsN = 0
	m.maliciousDropsN = 0
	m.queueDropsN = 0
}

func (m *Metrics) IncPHYDrops() { m.phyDropsN++; m.phyDrops.Inc() }
func (m *Metrics) IncL3Drops()  { m.l3DropsN++; m.l3Drops.Inc() }
func (m *Metrics) IncBlackholeL3Drops() {
	m.blackholeL3DropsN++
	m.blackholeL3Drops.Inc()
}
func (m *Metrics) IncRouteSkips()     { m.routeSkipsN++; m.routeSkips.Inc() }
func (m *Metrics) IncMaliciousDrops() { m.maliciousDropsN++; m.maliciousDrops.Inc() }
func (m *Metrics) IncQueueDrops()     { m.queueDropsN++; m.queueDrops.Inc() }

func (m *Metrics) PHYDrops() uint64         { return m.phyDropsN }
func (m *Metrics) L3Drops() uint64          { return m.l3DropsN }
func (m *Metrics) BlackholeL3Drops() uint64 { return m.blackholeL3DropsN }
func (m *Metrics) RouteSkips() uint64       { return m.routeSkipsN }
func (m *Metrics) MaliciousDrops() uint64   { return m.maliciousDropsN }
func (m *Metrics) QueueDrops() uint64       { return m.queueDropsN }

// Handler exposes a ready-to-use Prometheus /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// DropSummaryLine renders the [DROP_SUMMARY] line, e.g.:
//
//	[DROP_SUMMARY] RunID=1 | Mode=Proposed | PHYDrops=12 | L3Drops=3 | ...
//
// trustPenalties is supplied by the caller rather than tracked here: it is
// ledger.Ledger.TrustPenalties(), the only place trust decay is actually
// applied, so there is one counter instead of two that could drift apart.
func (m *Metrics) DropSummaryLine(runID uint, mode string, trustPenalties uint64) string {
	return fmt.Sprintf(
		"[DROP_SUMMARY] RunID=%d | Mode=%s | PHYDrops=%d | L3Drops=%d | BlackholeL3Drops=%d | RouteSkips=%d | TrustPenalties=%d | MaliciousDrops=%d",
		runID, mode, m.PHYDrops(), m.L3Drops(), m.BlackholeL3Drops(), m.RouteSkips(), trustPenalties, m.MaliciousDrops(),
	)
}

// ResultLine renders the machine-readable RESULT_DATA line.
func ResultLine(runID uint, useBlockchain bool, pdrPercent, avgLatencyMs, avgHops float64, maliciousDrops uint64) string {
	flag := 0
	if useBlockchain {
		flag = 1
	}
	return fmt.Sprintf(
		"RESULT_DATA, %d, %d, %.2f, %g, %g, %d",
		runID, flag, pdrPercent, avgLatencyMs, avgHops, maliciousDrops,
	)
}
