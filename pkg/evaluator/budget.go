package evaluator

import (
	"fmt"

	"github.com/thomasrohde/minischeme/pkg/diagnostics"
)

// DefaultMaxDepth bounds nested evaluation so runaway recursion is reported
// instead of exhausting the goroutine stack.
const DefaultMaxDepth = 100000

// Budget holds the resource limits for an evaluator.
type Budget struct {
	MaxDepth int
}

// Tracker records resource consumption during evaluation.
type Tracker struct {
	Depth     int `json:"depth"`
	PeakDepth int `json:"peakDepth"`
	Evals     int `json:"evals"`
	Calls     int `json:"calls"`
}

func (ev *Evaluator) enter() error {
	if ev.budget.MaxDepth > 0 && ev.tracker.Depth >= ev.budget.MaxDepth {
		return &RuntimeError{
			Code:    diagnostics.EDepth,
			Message: fmt.Sprintf("maximum evaluation depth exceeded (%d)", ev.budget.MaxDepth),
		}
	}
	ev.tracker.Depth++
	ev.tracker.Evals++
	if ev.tracker.Depth > ev.tracker.PeakDepth {
		ev.tracker.PeakDepth = ev.tracker.Depth
	}
	return nil
}

func (ev *Evaluator) leave() {
	ev.tracker.Depth--
}
