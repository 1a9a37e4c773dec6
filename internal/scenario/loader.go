package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/homecare/carelinesolver/internal/model"
)

// Scenario is one fully-decoded, validated intake document: the
// depot coordinate, visit/worker records, and the road graph they sit on.
type Scenario struct {
	Depot   model.Coordinates
	Visits  []model.Visit
	Workers []model.Worker
	Graph   *model.RoadGraph
}

// Load reads and decodes the scenario document at path, converting every
// record into its validated model type. defaultMaxStops (normally
// cfg.MaxStopsPerWorker) is substituted for any worker whose JSON record
// omits max_stops, so an operator-tuned CARE_MAX_STOPS_PER_WORKER actually
// reaches workers that don't set it explicitly per scenario. Any
// InvalidInputError surfaced by the model constructors propagates
// unwrapped-in-kind (wrapped with context) per spec §7's InvalidInput
// taxonomy.
func Load(path string, defaultMaxStops int) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	visits, err := decodeVisits(f.Visits)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to decode visits: %w", err)
	}
	workers, err := decodeWorkers(f.Workers, defaultMaxStops)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to decode workers: %w", err)
	}
	if err := model.ValidateBatch(visits, workers); err != nil {
		return Scenario{}, fmt.Errorf("failed to validate scenario: %w", err)
	}

	graph, err := decodeGraph(f.Graph)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to decode road graph: %w", err)
	}

	return Scenario{
		Depot:   model.Coordinates{Lat: f.Depot.Lat, Lon: f.Depot.Lon},
		Visits:  visits,
		Workers: workers,
		Graph:   graph,
	}, nil
}

func decodeVisits(in []visitJSON) ([]model.Visit, error) {
	out := make([]model.Visit, 0, len(in))
	for _, vj := range in {
		tokens := make([]model.Token, len(vj.Constraints))
		for i, c := range vj.Constraints {
			tokens[i] = model.Token(c)
		}
		v, err := model.NewVisit(
			vj.VisitID,
			model.Coordinates{Lat: vj.Coord.Lat, Lon: vj.Coord.Lon},
			vj.ServiceSeconds,
			model.Window{StartS: vj.WindowStartS, EndS: vj.WindowEndS},
			tokens,
			vj.GroupID,
		)
		if err != nil {
			return nil, fmt.Errorf("visit %q: %w", vj.VisitID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeWorkers(in []workerJSON, defaultMaxStops int) ([]model.Worker, error) {
	out := make([]model.Worker, 0, len(in))
	for _, wj := range in {
		tokens := make([]model.Token, len(wj.Capabilities))
		for i, c := range wj.Capabilities {
			tokens[i] = model.Token(c)
		}
		maxStops := wj.MaxStops
		if maxStops == 0 {
			maxStops = defaultMaxStops
		}
		w, err := model.NewWorker(
			wj.WorkerID,
			tokens,
			maxStops,
			model.Window{StartS: wj.AvailableStartS, EndS: wj.AvailableEndS},
		)
		if err != nil {
			return nil, fmt.Errorf("worker %q: %w", wj.WorkerID, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func decodeGraph(g graphJSON) (*model.RoadGraph, error) {
	nodes := make([]model.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = model.Node{ID: model.NodeID(n.ID), Coord: model.Coordinates{Lat: n.Coord.Lat, Lon: n.Coord.Lon}}
	}
	edges := make([]model.Edge, len(g.Edges))
	for i, e := range g.Edges {
		edges[i] = model.Edge{
			From:        model.NodeID(e.From),
			To:          model.NodeID(e.To),
			LengthM:     e.LengthM,
			MaxSpeedKPH: decodeSpeed(e.MaxSpeedKPH),
		}
	}
	return model.NewRoadGraph(nodes, edges)
}

// decodeSpeed implements spec §4.2 step 4: a missing, list-valued, or
// non-numeric max_speed_kph all collapse to 0, which model.Edge documents
// as "use the builder's default speed". Only a bare JSON number survives
// as a real value.
func decodeSpeed(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return f
}
