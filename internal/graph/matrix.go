// Package graph builds the travel-time/distance matrices the routing engine
// consumes from a road graph and a set of geographic points (spec §4.2).
package graph

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/homecare/carelinesolver/internal/model"
)

const earthRadiusM = 6371000.0

// haversineM returns the great-circle distance between two coordinates in
// metres. Grounded on shivamshaw23-Hintro/pkg/geo/geo.go's Haversine, which
// this package reuses for nearest-node lookup rather than for edge weights
// (edge weights come from the road graph's own LengthM).
func haversineM(a, b model.Coordinates) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)
	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLon*sinLon
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

// nearestNode finds the graph node closest to coord by great-circle
// distance, tie-breaking by the smaller node ID (spec §4.2 step 1).
func nearestNode(g *model.RoadGraph, coord model.Coordinates) model.NodeID {
	var best model.NodeID
	bestDist := math.Inf(1)
	haveBest := false
	for _, n := range g.Nodes {
		d := haversineM(coord, n.Coord)
		if !haveBest || d < bestDist || (d == bestDist && n.ID < best) {
			best = n.ID
			bestDist = d
			haveBest = true
		}
	}
	return best
}

// Builder constructs travel-time/distance matrices from a RoadGraph.
type Builder struct {
	defaultSpeedKPH float64
	multiplier      float64
	perHopOverheadS int
	// parallelism is the worker-pool width used to fan the N² Dijkstra runs
	// out across goroutines (spec §5: "MAY parallelise ... across worker
	// threads; each Dijkstra invocation is independent and reads an
	// immutable graph. No shared mutable state."). 0 or 1 runs serially.
	parallelism int
}

// NewBuilder constructs a Builder from the relevant SolverConfig fields.
func NewBuilder(cfg model.SolverConfig, parallelism int) *Builder {
	return &Builder{
		defaultSpeedKPH: cfg.DefaultSpeedKPH,
		multiplier:      cfg.TravelTimeMultiplier,
		perHopOverheadS: cfg.PerHopOverheadS,
		parallelism:     parallelism,
	}
}

// speedKPH returns e's configured speed, or the builder's default when the
// edge speed is missing or non-positive (spec §4.2 step 4: "missing,
// list-valued, or non-numeric speed" all collapse to the default before
// this point — scenario decoding is responsible for mapping those JSON
// shapes down to 0).
func (b *Builder) speedKPH(e model.Edge) float64 {
	if e.MaxSpeedKPH <= 0 {
		return b.defaultSpeedKPH
	}
	return e.MaxSpeedKPH
}

// Build computes (T, D, nodeIDs) for the depot plus an ordered list of
// visit coordinates, per spec §4.2.
func (b *Builder) Build(ctx context.Context, g *model.RoadGraph, depot model.Coordinates, visits []model.Coordinates) (model.Matrices, error) {
	points := make([]model.Coordinates, 0, len(visits)+1)
	points = append(points, depot)
	points = append(points, visits...)

	nodeIDs := make([]model.NodeID, len(points))
	for i, p := range points {
		nodeIDs[i] = nearestNode(g, p)
	}

	n := len(points)
	T := make([][]int, n)
	D := make([][]int, n)
	for i := range T {
		T[i] = make([]int, n)
		D[i] = make([]int, n)
	}

	start := time.Now()
	log.Printf("[MATRIX] Building %dx%d matrix (parallelism=%d)", n, n, b.parallelism)

	rowFn := func(i int) {
		dist, prevEdge := shortestPath(g, nodeIDs[i])
		for j := 0; j < n; j++ {
			if i == j {
				T[i][j], D[i][j] = 0, 0
				continue
			}
			edges := pathEdges(nodeIDs[i], nodeIDs[j], dist, prevEdge)
			if edges == nil {
				T[i][j] = model.Sentinel
				D[i][j] = model.Sentinel
				continue
			}
			seconds, metres := b.walk(edges)
			T[i][j] = seconds
			D[i][j] = metres
		}
	}

	if b.parallelism > 1 {
		p := pool.New().WithMaxGoroutines(b.parallelism)
		for i := 0; i < n; i++ {
			i := i
			p.Go(func() { rowFn(i) })
		}
		p.Wait()
	} else {
		for i := 0; i < n; i++ {
			rowFn(i)
		}
	}

	log.Printf("[MATRIX] Built %dx%d matrix in %v", n, n, time.Since(start))

	return model.Matrices{T: T, D: D, NodeIDs: nodeIDs}, nil
}

// walk sums an edge path into (travel-time seconds, distance metres),
// applying the global slowdown multiplier and a fixed per-hop overhead to
// the travel time only (spec §4.2 step 3).
func (b *Builder) walk(edges []model.Edge) (seconds int, metres int) {
	var totalSeconds, totalMetres float64
	for _, e := range edges {
		speedMPS := b.speedKPH(e) * 1000 / 3600
		totalSeconds += e.LengthM / speedMPS
		totalMetres += e.LengthM
	}
	totalSeconds *= b.multiplier
	if len(edges) > 0 {
		totalSeconds += float64(b.perHopOverheadS)
	}
	return int(math.Round(totalSeconds)), int(math.Round(totalMetres))
}
