// Package report converts a solved model.Solution into the human-facing
// artifacts spec §4.5 asks for: a fixed-column per-worker timetable and a
// fleet-wide summary. It is a pure function of its inputs; no solver state
// is read or mutated. Grounded on the teacher's RoutingSummary/
// CalculatedRoute aggregation (internal/models/models.go), re-targeted from
// JSON-for-a-browser fields to the text table and seconds-to-wallclock
// arithmetic this domain needs.
package report

import (
	"fmt"
	"strings"

	"github.com/homecare/carelinesolver/internal/model"
	"github.com/homecare/carelinesolver/internal/routing"
)

// Row is one line of a worker's timetable.
type Row struct {
	Location        string
	Arrival         string
	ServiceStart    string
	ServiceEnd      string
	Departure       string
	TimeWindowStart string
	TimeWindowEnd   string
}

// WorkerTimetable is one worker's full block: every stop plus the per-route
// totals spec §4.5 names.
type WorkerTimetable struct {
	WorkerID          string
	Rows              []Row
	TotalRouteSeconds int
	TravelSeconds     int
	WaitSeconds       int
	ServiceSeconds    int
	DistanceMeters    int
}

// FleetSummary is the fleet-wide aggregate spec §4.5 names.
type FleetSummary struct {
	ActiveWorkers       int
	TotalRouteSeconds   int
	TotalTravelSeconds  int
	TotalWaitSeconds    int
	TotalServiceSeconds int
	TotalDistanceMeters int
	AverageSpeedKPH     float64
	DroppedCount        int
}

// Report bundles every worker's timetable with the fleet summary.
type Report struct {
	Timetables []WorkerTimetable
	Fleet      FleetSummary
}

// Generate builds a Report from sol, using in for the shift-absolute clock
// origin and the visit/matrix lookups a Solution alone doesn't carry.
func Generate(sol model.Solution, in routing.Input) Report {
	idxByVisit := make(map[string]int, len(in.Visits))
	for i, v := range in.Visits {
		idxByVisit[v.ID] = i + 1 // matrix index; depot is 0
	}
	windowByVisit := make(map[string]model.Window, len(in.Visits))
	for _, v := range in.Visits {
		windowByVisit[v.ID] = v.Window
	}

	var timetables []WorkerTimetable
	var fleet FleetSummary
	fleet.DroppedCount = len(sol.Dropped)

	for _, r := range sol.Routes {
		tt := buildTimetable(r, in, idxByVisit, windowByVisit)
		timetables = append(timetables, tt)

		fleet.ActiveWorkers++
		fleet.TotalRouteSeconds += tt.TotalRouteSeconds
		fleet.TotalTravelSeconds += tt.TravelSeconds
		fleet.TotalWaitSeconds += tt.WaitSeconds
		fleet.TotalServiceSeconds += tt.ServiceSeconds
		fleet.TotalDistanceMeters += tt.DistanceMeters
	}

	if fleet.TotalTravelSeconds > 0 {
		fleet.AverageSpeedKPH = (float64(fleet.TotalDistanceMeters) / 1000) / (float64(fleet.TotalTravelSeconds) / 3600)
	}

	return Report{Timetables: timetables, Fleet: fleet}
}

func buildTimetable(r model.Route, in routing.Input, idxByVisit map[string]int, windowByVisit map[string]model.Window) WorkerTimetable {
	tt := WorkerTimetable{WorkerID: r.WorkerID}

	prevIdx := 0
	prevDeparture := 0
	for _, s := range r.Stops {
		idx := idxByVisit[s.VisitID]
		tt.DistanceMeters += in.Matrices.D[prevIdx][idx]
		tt.TravelSeconds += s.ArrivalS - prevDeparture
		tt.WaitSeconds += s.ServiceStartS - s.ArrivalS
		tt.ServiceSeconds += s.ServiceEndS - s.ServiceStartS

		w := windowByVisit[s.VisitID]
		tt.Rows = append(tt.Rows, Row{
			Location:        s.VisitID,
			Arrival:         clockHHMM(in.Config.ShiftStartHour, s.ArrivalS),
			ServiceStart:    clockHHMM(in.Config.ShiftStartHour, s.ServiceStartS),
			ServiceEnd:      clockHHMM(in.Config.ShiftStartHour, s.ServiceEndS),
			Departure:       clockHHMM(in.Config.ShiftStartHour, s.DepartureS),
			TimeWindowStart: clockHHMM(in.Config.ShiftStartHour, w.StartS),
			TimeWindowEnd:   clockHHMM(in.Config.ShiftStartHour, w.EndS),
		})

		prevIdx = idx
		prevDeparture = s.DepartureS
	}
	tt.DistanceMeters += in.Matrices.D[prevIdx][0]
	tt.TravelSeconds += r.ReturnDepotS - prevDeparture
	tt.TotalRouteSeconds = r.ReturnDepotS - r.DepartDepotS
	return tt
}

// clockHHMM converts seconds-since-shift-start into a shift-absolute
// wall-clock string, wrapping past midnight rather than overflowing.
func clockHHMM(shiftStartHour, seconds int) string {
	total := shiftStartHour*3600 + seconds
	total = ((total % 86400) + 86400) % 86400
	return fmt.Sprintf("%02d:%02d", total/3600, (total%3600)/60)
}

// WriteText renders rep as the fixed-column UTF-8 table spec §4.5 asks for.
func WriteText(rep Report) string {
	var b strings.Builder
	for _, tt := range rep.Timetables {
		fmt.Fprintf(&b, "Worker %s\n", tt.WorkerID)
		fmt.Fprintf(&b, "%-10s %-8s %-8s %-8s %-8s %-10s %-10s\n",
			"Location", "Arrival", "Svc-Start", "Svc-End", "Departure", "Win-Start", "Win-End")
		for _, row := range tt.Rows {
			fmt.Fprintf(&b, "%-10s %-8s %-8s %-8s %-8s %-10s %-10s\n",
				row.Location, row.Arrival, row.ServiceStart, row.ServiceEnd, row.Departure,
				row.TimeWindowStart, row.TimeWindowEnd)
		}
		fmt.Fprintf(&b, "  route=%ds travel=%ds wait=%ds service=%ds distance=%dm\n\n",
			tt.TotalRouteSeconds, tt.TravelSeconds, tt.WaitSeconds, tt.ServiceSeconds, tt.DistanceMeters)
	}

	f := rep.Fleet
	fmt.Fprintf(&b, "Fleet summary: active_workers=%d dropped=%d route=%ds travel=%ds wait=%ds service=%ds distance=%dm avg_speed=%.1fkph\n",
		f.ActiveWorkers, f.DroppedCount, f.TotalRouteSeconds, f.TotalTravelSeconds, f.TotalWaitSeconds,
		f.TotalServiceSeconds, f.TotalDistanceMeters, f.AverageSpeedKPH)
	return b.String()
}
