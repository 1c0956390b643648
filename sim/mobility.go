package sim

import (
	"math/rand"

	"github.com/signalsfoundry/manet-trust-router/model"
)

// nodeState tracks one node's position and random-waypoint destination. A
// MANET node has no orbit, so the mobility model is a small self-contained
// random-waypoint walker.
type nodeState struct {
	position model.Position
	waypoint model.Position
	speedMps float64
}

func newNodeState(rng *rand.Rand) *nodeState {
	n := &nodeState{
		position: randomPosition(rng),
		speedMps: MinSpeedMps + rng.Float64()*(MaxSpeedMps-MinSpeedMps),
	}
	n.waypoint = randomPosition(rng)
	return n
}

func randomPosition(rng *rand.Rand) model.Position {
	return model.Position{X: rng.Float64() * AreaSize, Y: rng.Float64() * AreaSize}
}

// advance moves the node toward its waypoint by at most speed*dt metres,
// picking a fresh waypoint whenever it arrives.
func (n *nodeState) advance(rng *rand.Rand, dt float64) {
	step := n.speedMps * dt
	remaining := n.position.DistanceTo(n.waypoint)
	if remaining <= step {
		n.position = n.waypoint
		n.waypoint = randomPosition(rng)
		return
	}
	dx := (n.waypoint.X - n.position.X) / remaining
	dy := (n.waypoint.Y - n.position.Y) / remaining
	n.position.X += dx * step
	n.position.Y += dy * step
}

// positionSource adapts a Scenario's live node table to evidence.PositionSource.
type positionSource struct {
	nodes map[model.NodeID]*nodeState
}

func (p positionSource) Position(node model.NodeID) (model.Position, bool) {
	n, ok := p.nodes[node]
	if !ok {
		return model.Position{}, false
	}
	return n.position, true
}

func (p positionSource) Nodes() []model.NodeID {
	ids := make([]model.NodeID, 0, len(p.nodes))
	for id := range p.nodes {
		ids = append(ids, id)
	}
	return ids
}

// positionsSnapshot copies current positions into a plain map, the input
// shape topology.Build expects.
func positionsSnapshot(nodes map[model.NodeID]*nodeState) map[model.NodeID]model.Position {
	out := make(map[model.NodeID]model.Position, len(nodes))
	for id, n := range nodes {
		out[id] = n.position
	}
	return out
}
