// Package scenario decodes the workbook-normalised record stream spec §6
// describes (one record per Visit and Worker, plus an embedded road graph)
// into the model package's validated domain types. Grounded on the
// teacher's tolerant JSON decode/marshal style (internal/database/
// json_store.go's load/save pair), adapted from a mutable on-disk store to
// a one-shot, read-only scenario load.
package scenario

import "encoding/json"

// file is the on-disk shape of one scenario document.
type file struct {
	Depot   coordJSON    `json:"depot"`
	Visits  []visitJSON  `json:"visits"`
	Workers []workerJSON `json:"workers"`
	Graph   graphJSON    `json:"road_graph"`
}

type coordJSON struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type visitJSON struct {
	VisitID        string    `json:"visit_id"`
	Coord          coordJSON `json:"coord"`
	ServiceSeconds int       `json:"service_seconds"`
	WindowStartS   int       `json:"window_start_s"`
	WindowEndS     int       `json:"window_end_s"`
	Constraints    []string  `json:"constraints"`
	GroupID        string    `json:"group_id,omitempty"`
}

type workerJSON struct {
	WorkerID        string   `json:"worker_id"`
	Capabilities    []string `json:"capabilities"`
	MaxStops        int      `json:"max_stops"`
	AvailableStartS int      `json:"available_start_s"`
	AvailableEndS   int      `json:"available_end_s"`
}

type nodeJSON struct {
	ID    int64     `json:"id"`
	Coord coordJSON `json:"coord"`
}

type edgeJSON struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
	// LengthM is always a plain number in practice, but is kept as a plain
	// float64 here — only MaxSpeedKPH is documented to arrive malformed.
	LengthM float64 `json:"length_m"`
	// MaxSpeedKPH is decoded loosely (spec §4.2 step 4: "missing,
	// list-valued, or non-numeric speed" must all collapse to the builder's
	// default) — unlike every other numeric field here, it cannot be typed
	// as float64 or a list-valued edge would fail the whole document.
	MaxSpeedKPH json.RawMessage `json:"max_speed_kph"`
}

type graphJSON struct {
	Nodes []nodeJSON `json:"nodes"`
	Edges []edgeJSON `json:"edges"`
}
