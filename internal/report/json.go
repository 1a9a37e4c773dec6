package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/homecare/carelinesolver/internal/model"
)

// jsonStop mirrors model.Stop with explicit json tags, since the public
// solution record (spec §6 Outputs) is a stable wire contract independent
// of the internal struct's field names.
type jsonStop struct {
	VisitID       string `json:"visit_id"`
	ArrivalS      int    `json:"arrival_s"`
	ServiceStartS int    `json:"service_start_s"`
	ServiceEndS   int    `json:"service_end_s"`
	DepartureS    int    `json:"departure_s"`
}

type jsonRoute struct {
	WorkerID     string     `json:"worker_id"`
	Stops        []jsonStop `json:"stops"`
	DepartDepotS int        `json:"depart_depot_s"`
	ReturnDepotS int        `json:"return_depot_s"`
}

type jsonDropped struct {
	VisitID   string        `json:"visit_id"`
	Reason    string        `json:"reason"`
	Uncovered []model.Token `json:"uncovered_tokens,omitempty"`
	Penalty   int           `json:"penalty"`
}

type jsonObjective struct {
	FixedCostTotal   int `json:"fixed_cost_total"`
	TravelTimeTotal  int `json:"travel_time_total"`
	DropPenaltyTotal int `json:"drop_penalty_total"`
	EarlySlackTotal  int `json:"early_slack_total"`
	Total            int `json:"total"`
}

// solutionRecord is the structured solution record spec §6 names: per
// worker, ordered visit list with arrival/departure seconds; dropped list
// with penalty and uncovered tokens; objective components.
type solutionRecord struct {
	RunID     string        `json:"run_id"`
	Routes    []jsonRoute   `json:"routes"`
	Dropped   []jsonDropped `json:"dropped"`
	Objective jsonObjective `json:"objective"`
}

func toRecord(runID string, sol model.Solution) solutionRecord {
	rec := solutionRecord{
		RunID: runID,
		Objective: jsonObjective{
			FixedCostTotal:   sol.Objective.FixedCostTotal,
			TravelTimeTotal:  sol.Objective.TravelTimeTotal,
			DropPenaltyTotal: sol.Objective.DropPenaltyTotal,
			EarlySlackTotal:  sol.Objective.EarlySlackTotal,
			Total:            sol.Objective.Total(),
		},
	}
	for _, r := range sol.Routes {
		jr := jsonRoute{WorkerID: r.WorkerID, DepartDepotS: r.DepartDepotS, ReturnDepotS: r.ReturnDepotS}
		for _, s := range r.Stops {
			jr.Stops = append(jr.Stops, jsonStop{
				VisitID:       s.VisitID,
				ArrivalS:      s.ArrivalS,
				ServiceStartS: s.ServiceStartS,
				ServiceEndS:   s.ServiceEndS,
				DepartureS:    s.DepartureS,
			})
		}
		rec.Routes = append(rec.Routes, jr)
	}
	for _, d := range sol.Dropped {
		rec.Dropped = append(rec.Dropped, jsonDropped{
			VisitID:   d.VisitID,
			Reason:    d.Reason,
			Uncovered: d.Uncovered,
			Penalty:   d.Penalty,
		})
	}
	return rec
}

// WriteJSON marshals sol as the structured solution record and writes it to
// path, via a temp-file-then-rename so a crash mid-write never leaves a
// truncated file in place. runID identifies the solve attempt that produced
// sol (spec §6: one record per run), so repeated solves over the same
// scenario never get confused for one another downstream.
func WriteJSON(runID string, sol model.Solution, path string) error {
	data, err := json.MarshalIndent(toRecord(runID, sol), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal solution record: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
