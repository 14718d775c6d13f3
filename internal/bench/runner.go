package bench

import (
	"fmt"
	"time"

	"ecs-bench/internal/config"
	"ecs-bench/internal/ecs"
	"ecs-bench/internal/logging"
	"ecs-bench/internal/metrics"
)

// Phase is the runner's state-machine phase.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSpawning   Phase = "spawning"
	PhaseWarmingUp  Phase = "warming_up"
	PhaseMeasuring  Phase = "measuring"
	PhaseEvaluating Phase = "evaluating"
	PhaseScaling    Phase = "scaling"
	PhaseCompleted  Phase = "completed"
	PhaseAborted    Phase = "aborted"
)

// Terminal reports whether the phase ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseAborted
}

// Active reports whether a run is in progress.
func (p Phase) Active() bool {
	return p != PhaseIdle && !p.Terminal()
}

// Snapshot is the read-only view of runner state polled by presentation.
// All slices are copies; the caller cannot mutate engine state through it.
type Snapshot struct {
	Phase              Phase            `json:"phase"`
	Workload           string           `json:"workload,omitempty"`
	EntityCount        int              `json:"entity_count"`
	Trial              int              `json:"trial"`
	Manual             bool             `json:"manual"`
	CurrentFrameTimeMs float64          `json:"current_frame_time_ms"`
	ThroughputEPS      float64          `json:"throughput_eps"`
	Window             metrics.Stats    `json:"window"`
	History            []float64        `json:"history"`
	SearchLow          int              `json:"search_low"`
	SearchHigh         int              `json:"search_high"`
	Result             *BreakdownResult `json:"result,omitempty"`
}

// Runner drives a single workload through spawn, warm-up, measurement and
// scaling phases, one bounded step per Tick. It is single-owner: the host
// loop is the only goroutine that may call its methods.
type Runner struct {
	world     *ecs.World
	logger    *logging.Logger
	log       *logging.Logger // run-scoped, tagged with run id and workload
	collector *metrics.Collector

	cfg      config.BenchmarkConfig
	workload Workload
	search   *Search

	phase        Phase
	entityCount  int
	pendingCount int
	spawned      bool
	warmupLeft   int
	trial        int
	manual       bool
	abortPending bool
	result       *BreakdownResult

	now func() time.Time
}

func NewRunner(world *ecs.World, logger *logging.Logger) *Runner {
	return &Runner{
		world:  world,
		logger: logger,
		log:    logger,
		phase:  PhaseIdle,
		now:    time.Now,
	}
}

// Phase returns the current phase.
func (r *Runner) Phase() Phase {
	return r.phase
}

// Result returns the breakdown result once the run completed.
func (r *Runner) Result() (*BreakdownResult, bool) {
	if r.result == nil {
		return nil, false
	}
	return r.result, true
}

// Start begins a run for one workload. Fails with ErrRunActive if a run is
// already in progress and ErrInvalidConfig for a bad configuration; neither
// failure touches existing state. Per the start contract the initial spawn
// happens here, leaving the runner in Spawning until the first Tick.
func (r *Runner) Start(workload Workload, cfg config.BenchmarkConfig) error {
	if r.phase.Active() {
		return fmt.Errorf("%w: phase %s", ErrRunActive, r.phase)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	r.cfg = cfg
	r.workload = workload
	r.collector = metrics.NewCollector(cfg.FrameHistory, cfg.SampleFrames)
	r.search = NewSearch(cfg)
	r.trial = 0
	r.manual = false
	r.abortPending = false
	r.result = nil

	runID := r.now().UTC().Format("20060102T150405.000")
	r.log = r.logger.WithRun(runID).WithWorkload(workload.Key())
	r.log.Info("Starting benchmark run",
		"initial_entities", cfg.InitialEntities,
		"target_ms", cfg.TargetFrameTimeMs,
	)

	if err := r.rescale(cfg.InitialEntities); err != nil {
		r.failRun()
		return fmt.Errorf("%w: initial spawn: %v", ErrWorkloadFailed, err)
	}
	r.spawned = true
	r.phase = PhaseSpawning
	return nil
}

// Tick advances the state machine by one bounded step. Called once per
// host frame; it never blocks waiting for anything. A WorkloadFailure ends
// the run in Aborted and is returned to the caller.
func (r *Runner) Tick(dt time.Duration) (Phase, error) {
	if r.phase == PhaseIdle || r.phase.Terminal() {
		return r.phase, nil
	}

	// Cooperative cancellation: observed only at tick boundaries, cleanup
	// guaranteed before settling.
	if r.abortPending {
		r.abortPending = false
		err := r.workload.Cleanup()
		r.setPhase(PhaseAborted)
		if err != nil {
			return r.phase, fmt.Errorf("%w: cleanup on abort: %v", ErrWorkloadFailed, err)
		}
		return r.phase, nil
	}

	switch r.phase {
	case PhaseSpawning:
		if !r.spawned {
			if err := r.rescale(r.pendingCount); err != nil {
				r.failRun()
				return r.phase, fmt.Errorf("%w: spawn %d entities: %v", ErrWorkloadFailed, r.pendingCount, err)
			}
			r.spawned = true
			return r.phase, nil
		}
		r.warmupLeft = r.cfg.WarmupFrames
		r.setPhase(PhaseWarmingUp)

	case PhaseWarmingUp:
		if r.warmupLeft > 0 {
			if _, err := r.runUpdate(dt); err != nil {
				return r.phase, err
			}
			r.warmupLeft--
		}
		if r.warmupLeft == 0 {
			r.collector.ClearSamples()
			r.setPhase(PhaseMeasuring)
		}

	case PhaseMeasuring:
		elapsed, err := r.runUpdate(dt)
		if err != nil {
			return r.phase, err
		}
		r.collector.AddSample(elapsed)
		if r.collector.SampleCount() >= r.cfg.SampleFrames {
			if r.manual {
				// Manual mode keeps measuring at a fixed count; the window
				// just rolls over.
				r.collector.ClearSamples()
			} else {
				r.setPhase(PhaseEvaluating)
			}
		}

	case PhaseEvaluating:
		r.evaluate()

	case PhaseScaling:
		r.trial++
		r.spawned = false
		r.setPhase(PhaseSpawning)
	}

	return r.phase, nil
}

// evaluate hands the finished trial's statistics to the search controller
// and either schedules the next trial or finishes the run.
func (r *Runner) evaluate() {
	stats := r.collector.SampleStats()
	exceeded := stats.MedianExceeds(r.cfg.TargetFrameTimeMs)

	r.log.WithTrial(r.trial, r.entityCount).TrialResult(stats.Median, r.cfg.TargetFrameTimeMs, exceeded)

	decision := r.search.Report(exceeded)
	if !decision.Done {
		r.pendingCount = decision.Next
		r.setPhase(PhaseScaling)
		return
	}

	result := newBreakdownResult(r.workload.Name(), decision.Outcome, decision.Breakdown, stats)
	r.result = &result

	if err := r.workload.Cleanup(); err != nil {
		r.log.Error("Cleanup after completed run failed", "error", err)
		r.setPhase(PhaseAborted)
		return
	}

	r.log.Info("Benchmark run complete",
		"outcome", string(decision.Outcome),
		"breakdown_point", decision.Breakdown,
		"throughput_eps", result.ThroughputEPS,
		"trials", r.search.Trials(),
	)
	r.setPhase(PhaseCompleted)
}

// Reset forces cleanup and returns to Idle from any state. The runner is
// always Idle afterwards, even if cleanup reported an error.
func (r *Runner) Reset() error {
	var err error
	if r.workload != nil {
		err = r.workload.Cleanup()
	}
	if r.collector != nil {
		r.collector.Reset()
	}
	r.workload = nil
	r.search = nil
	r.result = nil
	r.log = r.logger
	r.entityCount = 0
	r.trial = 0
	r.manual = false
	r.abortPending = false
	r.phase = PhaseIdle
	if err != nil {
		return fmt.Errorf("%w: cleanup on reset: %v", ErrWorkloadFailed, err)
	}
	return nil
}

// Abort requests cancellation of the active run. The flag is observed at
// the next Tick, which cleans up before settling into Aborted.
func (r *Runner) Abort() error {
	if !r.phase.Active() {
		return fmt.Errorf("%w: phase %s", ErrNotRunning, r.phase)
	}
	r.abortPending = true
	return nil
}

// SetEntityCount switches the run to manual inspection mode at a fixed
// entity count, bypassing the breakdown search. The population is rebuilt
// through the usual cleanup-then-spawn transition.
func (r *Runner) SetEntityCount(count int) error {
	if !r.phase.Active() {
		return fmt.Errorf("%w: phase %s", ErrNotRunning, r.phase)
	}
	if count < r.cfg.MinEntities || count > r.cfg.MaxEntities {
		return fmt.Errorf("%w: manual count %d outside [%d, %d]",
			ErrInvalidConfig, count, r.cfg.MinEntities, r.cfg.MaxEntities)
	}
	r.manual = true
	r.pendingCount = count
	r.spawned = false
	r.setPhase(PhaseSpawning)
	return nil
}

// Snapshot returns a copy of the current engine state for presentation.
func (r *Runner) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:       r.phase,
		EntityCount: r.entityCount,
		Trial:       r.trial,
		Manual:      r.manual,
		SearchLow:   -1,
		SearchHigh:  -1,
		Result:      r.result,
	}
	if r.workload != nil {
		snap.Workload = r.workload.Key()
	}
	if r.search != nil {
		snap.SearchLow, snap.SearchHigh = r.search.Bracket()
	}
	if r.collector != nil {
		snap.CurrentFrameTimeMs = r.collector.CurrentFrameTime()
		snap.ThroughputEPS = r.collector.Throughput()
		snap.Window = r.collector.SampleStats()
		snap.History = r.collector.History()
	}
	return snap
}

// rescale is the single transition through which entity populations ever
// change: it always cleans up the previous trial's entities before
// spawning the next, so no stale entities can leak across trials.
func (r *Runner) rescale(count int) error {
	if err := r.workload.Cleanup(); err != nil {
		return fmt.Errorf("cleanup before spawn: %w", err)
	}
	if err := r.workload.Spawn(count); err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	r.entityCount = count
	return nil
}

// runUpdate executes one frame of the workload and measures its wall-clock
// cost. The engine treats the update as a black box; internal parallelism
// of the store is invisible here.
func (r *Runner) runUpdate(dt time.Duration) (time.Duration, error) {
	start := r.now()
	err := r.workload.Update(dt)
	elapsed := r.now().Sub(start)
	r.collector.RecordFrame(elapsed, r.entityCount)
	if err != nil {
		r.failRun()
		return elapsed, fmt.Errorf("%w: update: %v", ErrWorkloadFailed, err)
	}
	return elapsed, nil
}

// failRun attempts a final cleanup and settles into Aborted. Used on every
// workload-failure path so no error leaves entities behind.
func (r *Runner) failRun() {
	if r.workload != nil {
		if err := r.workload.Cleanup(); err != nil {
			r.log.Error("Cleanup after workload failure failed", "error", err)
		}
	}
	r.setPhase(PhaseAborted)
}

func (r *Runner) setPhase(next Phase) {
	if next != r.phase {
		r.log.PhaseTransition(string(r.phase), string(next), r.entityCount)
	}
	r.phase = next
}
