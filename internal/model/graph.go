package model

// NodeID identifies a vertex in a RoadGraph.
type NodeID int64

// Node is a graph vertex with a geographic position.
type Node struct {
	ID    NodeID
	Coord Coordinates
}

// Edge is a directed, weighted connection between two nodes.
type Edge struct {
	From        NodeID
	To          NodeID
	LengthM     float64
	MaxSpeedKPH float64 // 0 means "missing/malformed"; callers apply the default.
}

// RoadGraph is a directed weighted graph over geographic nodes. Edge weights
// (length, speed) are non-negative; negative weights are disallowed by
// construction (NewRoadGraph rejects them).
type RoadGraph struct {
	Nodes []Node
	Edges []Edge

	adjacency map[NodeID][]Edge
}

// NewRoadGraph validates and constructs a RoadGraph, rejecting negative edge
// lengths/speeds and edges referencing unknown nodes.
func NewRoadGraph(nodes []Node, edges []Edge) (*RoadGraph, error) {
	known := make(map[NodeID]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.ID] = struct{}{}
	}
	for _, e := range edges {
		if _, ok := known[e.From]; !ok {
			return nil, &InvalidInputError{Field: "edge.from", Reason: "references unknown node"}
		}
		if _, ok := known[e.To]; !ok {
			return nil, &InvalidInputError{Field: "edge.to", Reason: "references unknown node"}
		}
		if e.LengthM < 0 {
			return nil, &InvalidInputError{Field: "edge.length_m", Reason: "must be non-negative"}
		}
		if e.MaxSpeedKPH < 0 {
			return nil, &InvalidInputError{Field: "edge.max_speed_kph", Reason: "must be non-negative"}
		}
	}
	g := &RoadGraph{Nodes: nodes, Edges: edges}
	g.buildAdjacency()
	return g, nil
}

func (g *RoadGraph) buildAdjacency() {
	g.adjacency = make(map[NodeID][]Edge, len(g.Nodes))
	for _, e := range g.Edges {
		g.adjacency[e.From] = append(g.adjacency[e.From], e)
	}
}

// Neighbors returns the outgoing edges from node id, building the adjacency
// index lazily if this RoadGraph was constructed without NewRoadGraph (e.g.
// via zero value in a test).
func (g *RoadGraph) Neighbors(id NodeID) []Edge {
	if g.adjacency == nil {
		g.buildAdjacency()
	}
	return g.adjacency[id]
}

// Matrices holds the travel-time and distance matrices produced by the
// matrix builder, plus the node each row/column was resolved to. NodeIDs[0]
// is always the depot's nearest node.
type Matrices struct {
	T       [][]int // seconds
	D       [][]int // metres
	NodeIDs []NodeID
}

// N is the number of visits represented (matrix dimension is N+1).
func (m Matrices) N() int {
	if len(m.T) == 0 {
		return 0
	}
	return len(m.T) - 1
}

// Reachable reports whether arc i->j is not the infeasible sentinel.
func (m Matrices) Reachable(i, j int) bool {
	return m.T[i][j] < Sentinel
}
