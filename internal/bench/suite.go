package bench

import (
	"fmt"
	"time"

	"ecs-bench/internal/config"
	"ecs-bench/internal/logging"
)

// Suite runs every registered workload to its breakdown point in sequence
// and aggregates the results into a single report. Like the Runner it is
// tick-driven and single-owner.
type Suite struct {
	registry *Registry
	runner   *Runner
	agg      *Aggregator
	logger   *logging.Logger
	cfg      config.BenchmarkConfig

	index    int
	started  bool
	finished bool
	aborted  bool
}

func NewSuite(registry *Registry, runner *Runner, logger *logging.Logger, cfg config.BenchmarkConfig) *Suite {
	return &Suite{
		registry: registry,
		runner:   runner,
		agg:      NewAggregator(cfg.TargetFrameTimeMs),
		logger:   logger,
		cfg:      cfg,
	}
}

// Start begins the suite at the first registered workload.
func (s *Suite) Start() error {
	if s.started && !s.finished {
		return fmt.Errorf("%w: suite in progress", ErrRunActive)
	}
	if s.registry.Len() == 0 {
		return fmt.Errorf("%w: no workloads registered", ErrInvalidConfig)
	}
	s.index = 0
	s.started = true
	s.finished = false
	s.aborted = false
	s.agg = NewAggregator(s.cfg.TargetFrameTimeMs)

	s.logger.Info("Starting benchmark suite", "workloads", s.registry.Len())
	first, err := s.registry.ByIndex(0)
	if err != nil {
		return err
	}
	return s.runner.Start(first, s.cfg)
}

// Tick advances the current run one step and moves to the next workload
// when a run completes. Returns true once the whole suite is finished.
func (s *Suite) Tick(dt time.Duration) (bool, error) {
	if !s.started || s.finished {
		return s.finished, nil
	}

	phase, err := s.runner.Tick(dt)
	if err != nil {
		s.finished = true
		s.aborted = true
		return true, err
	}

	switch phase {
	case PhaseCompleted:
		result, ok := s.runner.Result()
		if !ok {
			s.finished = true
			s.aborted = true
			return true, fmt.Errorf("%w: run completed without a result", ErrWorkloadFailed)
		}
		if err := s.agg.Add(*result); err != nil {
			s.finished = true
			s.aborted = true
			return true, err
		}

		s.index++
		if s.index >= s.registry.Len() {
			s.agg.Seal()
			s.finished = true
			s.logger.Info("Benchmark suite complete", "results", s.agg.Count())
			return true, nil
		}
		next, err := s.registry.ByIndex(s.index)
		if err != nil {
			s.finished = true
			s.aborted = true
			return true, err
		}
		return false, s.runner.Start(next, s.cfg)

	case PhaseAborted:
		s.finished = true
		s.aborted = true
		return true, nil
	}

	return false, nil
}

// Abort cancels the current run and ends the suite.
func (s *Suite) Abort() error {
	if !s.started || s.finished {
		return fmt.Errorf("%w: suite not running", ErrNotRunning)
	}
	return s.runner.Abort()
}

// Finished reports whether the suite has run to the end or was aborted.
func (s *Suite) Finished() bool {
	return s.finished
}

// Aborted reports whether the suite ended without covering every workload.
func (s *Suite) Aborted() bool {
	return s.aborted
}

// Progress returns the index of the workload being run and the total.
func (s *Suite) Progress() (current, total int) {
	return s.index, s.registry.Len()
}

// Report returns the aggregated report once the suite finished cleanly.
func (s *Suite) Report() (*Report, error) {
	if !s.finished || s.aborted {
		return nil, fmt.Errorf("%w: suite has no sealed report", ErrNotRunning)
	}
	return s.agg.Report()
}
