// Package routing computes least-cost paths over a topology.Graph. It
// implements a single-source Dijkstra terminated early on reaching the
// destination, using a binary heap priority queue — the one
// priority-queue idiom attested anywhere in the reference pack (see
// DESIGN.md) — rather than a linear scan, since the graph can be rebuilt on
// every heartbeat.
package routing

import (
	"container/heap"
	"math"

	"github.com/signalsfoundry/manet-trust-router/model"
	"github.com/signalsfoundry/manet-trust-router/topology"
)

// queueItem is one entry in the priority queue: a candidate node with its
// best known distance so far.
type queueItem struct {
	node  model.NodeID
	dist  float64
	index int
}

// priorityQueue is a min-heap over queueItem, ordered by distance and
// tie-broken by ascending node id for determinism.
type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].node < pq[j].node
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// ShortestPath returns the least-cost path from src to dst as an ordered
// sequence of node identifiers [src, ..., dst]. It returns an empty slice
// if either endpoint is missing from the graph or no path exists.
func ShortestPath(g *topology.Graph, src, dst model.NodeID) []model.NodeID {
	if !g.Has(src) || !g.Has(dst) {
		return nil
	}
	if src == dst {
		return []model.NodeID{src}
	}

	dist := make(map[model.NodeID]float64, len(g.Nodes))
	prev := make(map[model.NodeID]model.NodeID, len(g.Nodes))
	visited := make(map[model.NodeID]bool, len(g.Nodes))

	for _, n := range g.Nodes {
		dist[n] = math.Inf(1)
	}
	dist[src] = 0

	pq := make(priorityQueue, 0, len(g.Nodes))
	heap.Init(&pq)
	heap.Push(&pq, &queueItem{node: src, dist: 0})

	for pq.Len() > 0 {
		cur := heap.Pop(&pq).(*queueItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true

		if cur.node == dst {
			break
		}

		for _, edge := range g.Neighbors(cur.node) {
			if visited[edge.To] {
				continue
			}
			nd := dist[cur.node] + edge.Weight
			if nd < dist[edge.To] {
				dist[edge.To] = nd
				prev[edge.To] = cur.node
				heap.Push(&pq, &queueItem{node: edge.To, dist: nd})
			}
		}
	}

	if !visited[dst] {
		return nil
	}

	path := []model.NodeID{dst}
	for cur := dst; cur != src; {
		p, ok := prev[cur]
		if !ok {
			return nil
		}
		path = append(path, p)
		cur = p
	}
	// reverse in place
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
