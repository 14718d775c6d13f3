package bench

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// exhaust drives a search against a simulated breakdown threshold and
// returns the terminal decision, or false if it failed to terminate.
func exhaust(s *Search, trueBreakdown int) (Decision, bool) {
	for i := 0; i < 500; i++ {
		decision := s.Report(s.Current() > trueBreakdown)
		if decision.Done {
			return decision, true
		}
	}
	return Decision{}, false
}

func TestSearchProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Property 1: the search always terminates, whatever the threshold.
	properties.Property("search terminates for any breakdown threshold", prop.ForAll(
		func(trueBreakdown int) bool {
			s := NewSearch(searchConfig())
			_, done := exhaust(s, trueBreakdown)
			return done
		},
		gen.IntRange(0, 100_000_000),
	))

	// Property 2: a converged result sits within tolerance below the true
	// breakdown point and never above it.
	properties.Property("converged breakdown is within tolerance, never above", prop.ForAll(
		func(trueBreakdown int) bool {
			cfg := searchConfig()
			s := NewSearch(cfg)
			decision, done := exhaust(s, trueBreakdown)
			if !done {
				return false
			}
			if decision.Outcome != OutcomeConverged {
				return true
			}
			if decision.Breakdown > trueBreakdown {
				return false
			}
			tolerance := int(float64(trueBreakdown) * cfg.TolerancePct)
			if tolerance < cfg.ToleranceFloor {
				tolerance = cfg.ToleranceFloor
			}
			return trueBreakdown-decision.Breakdown <= tolerance
		},
		gen.IntRange(10_000, 49_000_000),
	))

	// Property 3: thresholds below the starting count report below_minimum,
	// thresholds at or above the ceiling report ceiling_not_reached.
	properties.Property("sentinel outcomes match the threshold position", prop.ForAll(
		func(trueBreakdown int) bool {
			cfg := searchConfig()
			s := NewSearch(cfg)
			decision, done := exhaust(s, trueBreakdown)
			if !done {
				return false
			}
			switch {
			case trueBreakdown < cfg.InitialEntities:
				return decision.Outcome == OutcomeBelowMinimum && decision.Breakdown == 0
			case trueBreakdown >= cfg.MaxEntities:
				return decision.Outcome == OutcomeCeilingNotReached && decision.Breakdown == cfg.MaxEntities
			default:
				return decision.Outcome == OutcomeConverged
			}
		},
		gen.IntRange(0, 120_000_000),
	))

	// Property 4: trial counts stay logarithmic in the search space.
	properties.Property("trial count stays bounded", prop.ForAll(
		func(trueBreakdown int) bool {
			s := NewSearch(searchConfig())
			_, done := exhaust(s, trueBreakdown)
			return done && s.Trials() <= 60
		},
		gen.IntRange(0, 60_000_000),
	))

	properties.TestingRun(t)
}
