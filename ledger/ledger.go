// Package ledger implements the per-link reputation and signal-quality
// store described by the routing core: an exponentially smoothed SNR
// estimate and a trust score that decays geometrically on observed drops,
// floored so that no link is ever fully excluded from the topology.
//
// Ledger carries no internal synchronization. The routing core is driven by
// a single-threaded, cooperative discrete-event loop (the Evidence Ingestor
// writes, the Topology Builder reads, and the two never interleave), so a
// mutex would guard against a race that cannot occur — see DESIGN.md.
package ledger

import (
	"math"
	"sort"

	"github.com/signalsfoundry/manet-trust-router/model"
)

const (
	// DefaultTrust is returned for any pair the ledger has never observed.
	DefaultTrust = 1.0
	// DefaultSNR is returned for any pair the ledger has never observed, or
	// whose smoothed SNR is still zero.
	DefaultSNR = 20.0
	// DefaultTrustFloor is the hard lower bound enforced on every trust
	// update.
	DefaultTrustFloor = 0.3
	// emaAlpha is the smoothing factor applied to every positive SNR sample.
	emaAlpha = 0.3
	// trustDecayFactor is the multiplicative penalty applied to trust on
	// every drop observed with trust accounting enabled.
	trustDecayFactor = 0.5
	// maliciousFraction is the share of a node's incident links that must
	// be floored before the node is classified dynamically malicious.
	maliciousFraction = 0.5
)

// LinkMetric is the reputation and signal-quality record for one unordered
// node pair.
type LinkMetric struct {
	AvgSNR float64
	Drops  uint64
	Trust  float64
}

// LinkRecord is a read-only snapshot of one ledger entry, keyed by its
// canonical pair, for reporting and tests.
type LinkRecord struct {
	Key    model.LinkKey
	Metric LinkMetric
}

// Ledger is the mapping from unordered node pair to LinkMetric. It is
// created once at startup, mutated only by the Evidence Ingestor, and never
// destroyed during a run.
type Ledger struct {
	TrustFloor float64

	entries map[model.LinkKey]*LinkMetric
	// penalties counts every trust-decay application across all links. It
	// lives here (not in metrics.Metrics) because it is a direct byproduct
	// of Update and nothing else ever increments it; callers read it via
	// TrustPenalties().
	penalties uint64
}

// New constructs an empty ledger with the given trust floor. A floor of 0
// is replaced with DefaultTrustFloor.
func New(trustFloor float64) *Ledger {
	if trustFloor <= 0 {
		trustFloor = DefaultTrustFloor
	}
	return &Ledger{
		TrustFloor: trustFloor,
		entries:    make(map[model.LinkKey]*LinkMetric),
	}
}

// Reset clears every entry and counter, returning the ledger to its
// just-constructed state, so one ledger can be reused across scenarios.
// sim.NewScenario and the CLI build a fresh ledger per run instead of
// calling Reset.
func (l *Ledger) Reset() {
	l.entries = make(map[model.LinkKey]*LinkMetric)
	l.penalties = 0
}

func (l *Ledger) materialize(key model.LinkKey) *LinkMetric {
	m, ok := l.entries[key]
	if !ok {
		m = &LinkMetric{AvgSNR: 0.0, Drops: 0, Trust: DefaultTrust}
		l.entries[key] = m
	}
	return m
}

// Update applies one observation to the link (src, dst). If snr is
// positive, the smoothed SNR estimate is updated via EMA. If isDrop is set
// and trustEnabled is set, the drop counter is incremented and trust decays
// multiplicatively down to the floor; if isDrop is set and trustEnabled is
// not, only the drop counter advances (baseline mode never touches trust).
func (l *Ledger) Update(src, dst model.NodeID, snr float64, isDrop, trustEnabled bool) {
	key := model.NewLinkKey(src, dst)
	m := l.materialize(key)

	if snr > 0 {
		m.AvgSNR = emaAlpha*snr + (1-emaAlpha)*m.AvgSNR
	}

	if isDrop {
		m.Drops++
		if trustEnabled {
			m.Trust = math.Max(l.TrustFloor, m.Trust*trustDecayFactor)
			l.penalties++
		}
	}
}

// Trust returns the current trust for (src, dst), or DefaultTrust if the
// pair has never been observed. It never consults any externally supplied
// malicious-node set — trust is earned or lost only through Update.
func (l *Ledger) Trust(src, dst model.NodeID) float64 {
	m, ok := l.entries[model.NewLinkKey(src, dst)]
	if !ok {
		return DefaultTrust
	}
	return m.Trust
}

// SNR returns the current smoothed SNR for (src, dst), or DefaultSNR if the
// pair is unseen or its smoothed value is still zero.
func (l *Ledger) SNR(src, dst model.NodeID) float64 {
	m, ok := l.entries[model.NewLinkKey(src, dst)]
	if !ok || m.AvgSNR == 0 {
		return DefaultSNR
	}
	return m.AvgSNR
}

// TrustPenalties returns the running count of trust-decay applications
// across every link (the trust_penalties evaluation counter).
func (l *Ledger) TrustPenalties() uint64 {
	return l.penalties
}

// IsDynamicallyMalicious classifies node as malicious iff it has at least
// one ledger entry and more than half of its incident entries have trust
// strictly below the floor. Update clamps decayed trust at the floor
// (math.Max(l.TrustFloor, ...)), so trust can reach the floor but never
// drop below it, and this always evaluates false in practice. It is a
// preserved hook: nothing in routetable consults it, so dynamic
// classification never feeds routing decisions on its own.
func (l *Ledger) IsDynamicallyMalicious(node model.NodeID) bool {
	total := 0
	floored := 0
	for key, m := range l.entries {
		if key.A != node && key.B != node {
			continue
		}
		total++
		if m.Trust < l.TrustFloor {
			floored++
		}
	}
	if total == 0 {
		return false
	}
	return float64(floored)/float64(total) > maliciousFraction
}

// Snapshot returns every ledger entry sorted by key, for reporting and
// tests. The returned metrics are copies; mutating them has no effect on
// the ledger.
func (l *Ledger) Snapshot() []LinkRecord {
	out := make([]LinkRecord, 0, len(l.entries))
	for key, m := range l.entries {
		out = append(out, LinkRecord{Key: key, Metric: *m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.A != out[j].Key.A {
			return out[i].Key.A < out[j].Key.A
		}
		return out[i].Key.B < out[j].Key.B
	})
	return out
}
