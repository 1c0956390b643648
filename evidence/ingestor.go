// Package evidence translates simulator trace events into ledger updates.
// It implements the three trace taps described by the routing core's event
// subscription interface: successful reception, PHY drop, and L3 drop. Each
// carries the receiving node's identifier parsed from an opaque ns-3-style
// context path such as "/NodeList/3/DeviceList/0/Phy/PhyRxEnd".
package evidence

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/manet-trust-router/internal/observability"
	"github.com/signalsfoundry/manet-trust-router/ledger"
	"github.com/signalsfoundry/manet-trust-router/metrics"
	"github.com/signalsfoundry/manet-trust-router/model"
)

// PositionSource resolves a node's current position, used to bound the
// fan-out when the transmitting node is unknown and to synthesize an SNR
// estimate from distance.
type PositionSource interface {
	Position(node model.NodeID) (model.Position, bool)
	Nodes() []model.NodeID
}

// AddressBook maps an L3 address back to the node that owns it, used to
// recover the source of an L3 drop from a packet header.
type AddressBook interface {
	NodeForAddress(addr string) (model.NodeID, bool)
}

// Ingestor wires simulator trace events into the ledger and evaluation
// counters. It carries the ground-truth blackhole set purely for evaluation
// accounting (blackhole_l3_drops) — never to influence trust or weights.
type Ingestor struct {
	Ledger       *ledger.Ledger
	Metrics      *metrics.Metrics
	Positions    PositionSource
	Addresses    AddressBook
	Blackholes   model.BlackholeSet
	MaxRange     float64
	DefaultSNR   float64
	TrustEnabled bool

	// KnownSources restricts the fan-out to a single link when the source
	// of a reception is already known (e.g. a flow endpoint), rather than
	// updating every link within range. The simulation harness registers
	// each hop's sender here, keyed by its receiver, as it forwards a
	// packet.
	KnownSources map[model.NodeID]model.NodeID
}

// ParseContextNode extracts the receiving node id from an ns-3-style
// context path of the form "/NodeList/<id>/...". It returns false if the
// path cannot be parsed, in which case the event is dropped silently
// rather than treated as fatal.
func ParseContextNode(contextPath string) (model.NodeID, bool) {
	const marker = "/NodeList/"
	idx := strings.Index(contextPath, marker)
	if idx < 0 {
		return 0, false
	}
	rest := contextPath[idx+len(marker):]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, false
	}
	return model.NodeID(id), true
}

// candidateSources returns the nodes whose current distance to receiver is
// within MaxRange, excluding the receiver itself. If a known source is
// registered for receiver, only that source is returned instead of the
// full in-range fan-out.
func (in *Ingestor) candidateSources(receiver model.NodeID) []model.NodeID {
	if src, ok := in.KnownSources[receiver]; ok {
		return []model.NodeID{src}
	}

	rxPos, ok := in.Positions.Position(receiver)
	if !ok {
		return nil
	}

	var candidates []model.NodeID
	for _, other := range in.Positions.Nodes() {
		if other == receiver {
			continue
		}
		pos, ok := in.Positions.Position(other)
		if !ok {
			continue
		}
		if rxPos.DistanceTo(pos) < in.MaxRange {
			candidates = append(candidates, other)
		}
	}
	return candidates
}

// estimateSNR synthesizes a deterministic, monotone-in-distance SNR value
// because the underlying simulator's reception trace carries no SNR field.
// This estimator exists only to reproduce the reference experiment's
// numbers; a real deployment should surface a richer trace source instead
// (see DESIGN.md).
func (in *Ingestor) estimateSNR(a, b model.NodeID) float64 {
	posA, okA := in.Positions.Position(a)
	posB, okB := in.Positions.Position(b)
	if !okA || !okB {
		return in.DefaultSNR
	}
	distance := posA.DistanceTo(posB)
	snr := in.DefaultSNR - distance/10.0
	if snr < 5.0 {
		snr = 5.0
	}
	if snr > in.DefaultSNR {
		snr = in.DefaultSNR
	}
	return snr
}

// OnReception handles a successful reception (rx_ok) trace event.
func (in *Ingestor) OnReception(contextPath string) {
	_, span := observability.Tracer().Start(context.Background(), "evidence.OnReception")
	defer span.End()
	span.SetAttributes(attribute.String("evidence.context_path", contextPath))

	receiver, ok := ParseContextNode(contextPath)
	if !ok {
		return
	}
	for _, src := range in.candidateSources(receiver) {
		snr := in.estimateSNR(src, receiver)
		in.Ledger.Update(src, receiver, snr, false, in.TrustEnabled)
	}
}

// OnPHYDrop handles a radio-layer drop (rx_phy_drop) trace event, treated
// as a reception failure on the same candidate links as a successful
// reception.
func (in *Ingestor) OnPHYDrop(contextPath string) {
	_, span := observability.Tracer().Start(context.Background(), "evidence.OnPHYDrop")
	defer span.End()
	span.SetAttributes(attribute.String("evidence.context_path", contextPath))

	receiver, ok := ParseContextNode(contextPath)
	if !ok {
		return
	}
	in.Metrics.IncPHYDrops()
	for _, src := range in.candidateSources(receiver) {
		in.Ledger.Update(src, receiver, 0, true, in.TrustEnabled)
	}
}

// OnL3Drop handles a network-layer drop (l3_drop) trace event. The source
// is recovered from the packet's source address via the address book,
// rather than from the fan-out heuristic used for PHY-layer events.
func (in *Ingestor) OnL3Drop(contextPath, srcAddr string) {
	_, span := observability.Tracer().Start(context.Background(), "evidence.OnL3Drop")
	defer span.End()
	span.SetAttributes(
		attribute.String("evidence.context_path", contextPath),
		attribute.String("evidence.src_addr", srcAddr),
	)

	receiver, ok := ParseContextNode(contextPath)
	if !ok {
		return
	}
	in.Metrics.IncL3Drops()

	src, ok := in.Addresses.NodeForAddress(srcAddr)
	if !ok {
		return
	}
	in.Ledger.Update(src, receiver, 0, true, in.TrustEnabled)

	if in.Blackholes.Contains(receiver) {
		in.Metrics.IncMaliciousDrops()
		in.Metrics.IncBlackholeL3Drops()
		span.SetAttributes(attribute.Bool("evidence.blackhole_receiver", true))
	}
}

// OnQueueDrop handles a full-interface-queue drop, present in the original
// experiment but dropped by the distillation. Evidentially it is an L3
// drop like any other (Update still applies is_drop=true); it is only
// counted separately so operators can distinguish congestion from missing
// routes.
func (in *Ingestor) OnQueueDrop(contextPath, srcAddr string) {
	_, span := observability.Tracer().Start(context.Background(), "evidence.OnQueueDrop")
	defer span.End()
	span.SetAttributes(
		attribute.String("evidence.context_path", contextPath),
		attribute.String("evidence.src_addr", srcAddr),
	)

	receiver, ok := ParseContextNode(contextPath)
	if !ok {
		return
	}
	in.Metrics.IncQueueDrops()

	src, ok := in.Addresses.NodeForAddress(srcAddr)
	if !ok {
		return
	}
	in.Ledger.Update(src, receiver, 0, true, in.TrustEnabled)
}

// Validate reports a descriptive error if the ingestor is missing required
// collaborators. Callers wire this up once at startup; nothing in the hot
// event path returns an error — callbacks never raise, they log and return.
func (in *Ingestor) Validate() error {
	if in.Ledger == nil {
		return fmt.Errorf("evidence: ledger is required")
	}
	if in.Metrics == nil {
		return fmt.Errorf("evidence: metrics is required")
	}
	if in.Positions == nil {
		return fmt.Errorf("evidence: position source is required")
	}
	if in.Addresses == nil {
		return fmt.Errorf("evidence: address book is required")
	}
	if in.MaxRange <= 0 {
		return fmt.Errorf("evidence: max range must be positive")
	}
	return nil
}
