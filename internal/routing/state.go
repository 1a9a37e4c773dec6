package routing

// Status is the routing engine's solver state machine (spec §4.4):
// Building -> Constructed -> Improving* -> Finalised, with early
// termination to Infeasible, or cooperative Cancelled.
type Status string

const (
	StatusBuilding    Status = "Building"
	StatusConstructed Status = "Constructed"
	StatusImproving   Status = "Improving"
	StatusFinalised   Status = "Finalised"
	StatusInfeasible  Status = "Infeasible"
	StatusCancelled   Status = "Cancelled"
)
