package graph

import (
	"container/heap"
	"math"

	"github.com/homecare/carelinesolver/internal/model"
)

// shortestPath runs single-source Dijkstra over g's adjacency, keyed by
// edge.LengthM, and returns the distance and predecessor map needed to
// reconstruct the path to any reachable node. Unreachable nodes keep a
// distance of +Inf in dist. Grounded on the binary-heap Dijkstra shape used throughout
// the katalvlaran-lvlath graph package, adapted to integer NodeIDs and to
// RoadGraph's Edge record (which additionally carries MaxSpeedKPH, unused
// here — only LengthM feeds the shortest-path weight per spec §4.2).
func shortestPath(g *model.RoadGraph, start model.NodeID) (dist map[model.NodeID]float64, prevEdge map[model.NodeID]model.Edge) {
	dist = make(map[model.NodeID]float64, len(g.Nodes))
	prevEdge = make(map[model.NodeID]model.Edge, len(g.Nodes))
	for _, n := range g.Nodes {
		dist[n.ID] = math.Inf(1)
	}
	dist[start] = 0

	pq := &nodePQ{}
	heap.Init(pq)
	heap.Push(pq, &nodeItem{id: start, dist: 0})

	visited := make(map[model.NodeID]bool, len(g.Nodes))

	for pq.Len() > 0 {
		u := heap.Pop(pq).(*nodeItem)
		if visited[u.id] {
			continue
		}
		visited[u.id] = true

		for _, e := range g.Neighbors(u.id) {
			if visited[e.To] {
				continue
			}
			nd := dist[u.id] + e.LengthM
			if nd < dist[e.To] {
				dist[e.To] = nd
				prevEdge[e.To] = e
				heap.Push(pq, &nodeItem{id: e.To, dist: nd})
			}
		}
	}

	return dist, prevEdge
}

// pathEdges reconstructs the ordered edge sequence from start to target
// using the predecessor map returned by shortestPath. Returns nil if target
// is unreachable from start; the trivial start==target case returns an
// empty but non-nil path.
func pathEdges(start, target model.NodeID, dist map[model.NodeID]float64, prevEdge map[model.NodeID]model.Edge) []model.Edge {
	if target == start {
		return []model.Edge{}
	}
	if math.IsInf(dist[target], 1) {
		return nil
	}
	var rev []model.Edge
	cur := target
	for cur != start {
		e, ok := prevEdge[cur]
		if !ok {
			return nil
		}
		rev = append(rev, e)
		cur = e.From
	}
	// reverse in place
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// nodeItem is one entry in the Dijkstra priority queue.
type nodeItem struct {
	id   model.NodeID
	dist float64
}

// nodePQ implements container/heap.Interface over nodeItem, ordered by
// ascending distance.
type nodePQ []*nodeItem

func (pq nodePQ) Len() int            { return len(pq) }
func (pq nodePQ) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq nodePQ) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *nodePQ) Push(x interface{}) { *pq = append(*pq, x.(*nodeItem)) }
func (pq *nodePQ) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[:n-1]
	return it
}
