package bench

import (
	"ecs-bench/internal/config"
)

// Outcome classifies how a breakdown search terminated.
type Outcome string

const (
	// OutcomeConverged means the bracket narrowed to within tolerance.
	OutcomeConverged Outcome = "converged"
	// OutcomeBelowMinimum means even the first trial exceeded the target:
	// the breakdown point is below the minimum testable count.
	OutcomeBelowMinimum Outcome = "below_minimum"
	// OutcomeCeilingNotReached means the configured maximum entity count
	// never exceeded the target.
	OutcomeCeilingNotReached Outcome = "ceiling_not_reached"
)

// Decision is the search controller's answer after one trial: either the
// entity count for the next trial, or a terminal outcome.
type Decision struct {
	Done      bool
	Next      int
	Outcome   Outcome
	Breakdown int
}

// Search locates the breakdown entity count for one workload. It starts
// with an exponential probe doubling (by the growth factor) until a trial
// fails or the ceiling passes, establishing a [lastGood, firstBad] bracket,
// then binary-searches inside it.
type Search struct {
	cfg      config.BenchmarkConfig
	current  int
	lastGood int // highest passing count, -1 before the first pass
	firstBad int // lowest failing count, -1 before the first failure
	probing  bool
	trials   int
}

// NewSearch creates a search starting at the configured initial count.
func NewSearch(cfg config.BenchmarkConfig) *Search {
	return &Search{
		cfg:      cfg,
		current:  cfg.InitialEntities,
		lastGood: -1,
		firstBad: -1,
		probing:  true,
	}
}

// Current returns the entity count the pending trial should run at.
func (s *Search) Current() int {
	return s.current
}

// Trials returns the number of completed trials.
func (s *Search) Trials() int {
	return s.trials
}

// Bracket returns (lastGood, firstBad); either is -1 before it is known.
func (s *Search) Bracket() (int, int) {
	return s.lastGood, s.firstBad
}

// Report feeds the verdict for the current trial and returns the next
// step. exceeded is true when the trial's median frame time crossed the
// target.
func (s *Search) Report(exceeded bool) Decision {
	s.trials++

	if exceeded {
		s.firstBad = s.current
	} else {
		s.lastGood = s.current
	}

	// First trial already over target: nothing below it was measured, so
	// the breakdown point is below the minimum testable count.
	if s.lastGood < 0 {
		return Decision{Done: true, Outcome: OutcomeBelowMinimum}
	}

	if s.probing {
		if !exceeded {
			if s.current >= s.cfg.MaxEntities {
				// The ceiling passed; the search space is exhausted.
				return Decision{Done: true, Outcome: OutcomeCeilingNotReached, Breakdown: s.lastGood}
			}
			next := int(float64(s.current) * s.cfg.GrowthFactor)
			// Growth factors near 1.0 can truncate back to the current
			// count; every trial must advance or the run never ends.
			if next <= s.current {
				next = s.current + 1
			}
			if next > s.cfg.MaxEntities {
				next = s.cfg.MaxEntities
			}
			s.current = next
			return Decision{Next: next}
		}
		// Bracket established; fall through to binary search.
		s.probing = false
	}

	return s.bisect()
}

func (s *Search) bisect() Decision {
	mid := s.lastGood + (s.firstBad-s.lastGood)/2

	if s.firstBad-s.lastGood <= s.tolerance(mid) {
		return Decision{Done: true, Outcome: OutcomeConverged, Breakdown: s.lastGood}
	}

	s.current = mid
	return Decision{Next: mid}
}

// tolerance is the convergence gap: 1% of the midpoint by default, with an
// absolute floor so huge populations do not grind through needless trials.
func (s *Search) tolerance(mid int) int {
	tol := int(float64(mid) * s.cfg.TolerancePct)
	if tol < s.cfg.ToleranceFloor {
		tol = s.cfg.ToleranceFloor
	}
	return tol
}
