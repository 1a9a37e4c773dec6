package routing

import (
	"errors"
	"fmt"
)

// InfeasibleScenarioError is returned (as a distinct result, not panicked)
// when the scenario cannot even begin construction — e.g. visits exist but
// no worker is available to seat any of them — spec §7's InfeasibleScenario
// kind.
type InfeasibleScenarioError struct {
	Reason          string
	UnassignedCount int
}

func (e *InfeasibleScenarioError) Error() string {
	return fmt.Sprintf("routing: infeasible scenario: %s (unassigned=%d)", e.Reason, e.UnassignedCount)
}

// ErrBudgetExhausted is an informational sentinel: the returned solution is
// the best found within the wall-clock budget, not a hard failure.
var ErrBudgetExhausted = errors.New("routing: solver time budget exhausted")
