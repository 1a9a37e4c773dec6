// Package compat implements the compatibility oracle described in spec
// §4.3: it decides whether a worker fully covers a visit's requirements
// and, when not, reports the uncovered tokens and a severity penalty. The
// oracle is pure and depends on nothing but model.Token sets, so it is
// unit-testable in isolation from the routing engine (per the "scheduler
// / solver separation" design note).
package compat

import (
	"sort"

	"github.com/homecare/carelinesolver/internal/model"
)

// Oracle reports worker/visit compatibility and drop penalties.
type Oracle struct {
	penaltyTable map[model.Token]int
}

// New creates an Oracle with the given penalty table. A nil table falls
// back to model.DefaultPenaltyTable so the zero value still behaves
// sensibly in tests.
func New(penaltyTable map[model.Token]int) *Oracle {
	if penaltyTable == nil {
		penaltyTable = model.DefaultPenaltyTable
	}
	return &Oracle{penaltyTable: penaltyTable}
}

// Covers reports whether worker fully covers visit: every normalised
// constraint token of the visit must be present in the worker's capability
// set. Gender tokens (man/woman) compare by exact identity, same as every
// token except dog/cat.
func (o *Oracle) Covers(worker model.Worker, visit model.Visit) bool {
	return len(o.Uncovered(worker, visit)) == 0
}

// Uncovered returns the exact complement: the constraint tokens of visit,
// as written on the visit (dog, not dog_friendly), whose normalised
// capability token worker's capability set does not contain. The result is
// sorted so that two calls against the same (worker, visit) pair always
// agree on order, independent of Go's randomised map iteration (spec P8:
// same inputs and seed must yield bit-identical solutions).
func (o *Oracle) Uncovered(worker model.Worker, visit model.Visit) []model.Token {
	var missing []model.Token
	for raw := range visit.Constraints {
		needed := model.NormaliseConstraint(raw)
		if _, ok := worker.Capabilities[needed]; !ok {
			missing = append(missing, raw)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// Penalty sums the per-token penalty of the given (unnormalised, original
// constraint-token) list from the closed penalty table. Unknown tokens
// contribute 0 rather than panicking, since the model layer already
// rejects unknown tokens at construction time (I6) — this is defence
// against a caller passing an ad hoc token slice in tests.
func (o *Oracle) Penalty(tokens []model.Token) int {
	total := 0
	for _, t := range tokens {
		total += o.penaltyTable[t]
	}
	return total
}
