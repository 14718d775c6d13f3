package bench

import (
	"errors"
	"testing"
	"time"

	"ecs-bench/internal/config"
	"ecs-bench/internal/ecs"
	"ecs-bench/internal/logging"
)

type fakeWorkload struct {
	key  string
	live int
	ops  []string

	updates      int
	failUpdateAt int
	spawnErr     error
	cleanupErr   error
}

func (f *fakeWorkload) Name() string        { return f.key }
func (f *fakeWorkload) Description() string { return "synthetic workload for runner tests" }
func (f *fakeWorkload) Key() string         { return f.key }

func (f *fakeWorkload) Spawn(count int) error {
	f.ops = append(f.ops, "spawn")
	if f.spawnErr != nil {
		return f.spawnErr
	}
	f.live = count
	return nil
}

func (f *fakeWorkload) Update(dt time.Duration) error {
	f.updates++
	f.ops = append(f.ops, "update")
	if f.failUpdateAt > 0 && f.updates >= f.failUpdateAt {
		return errors.New("simulated update failure")
	}
	return nil
}

func (f *fakeWorkload) Cleanup() error {
	f.ops = append(f.ops, "cleanup")
	if f.cleanupErr != nil {
		return f.cleanupErr
	}
	f.live = 0
	return nil
}

func runnerConfig() config.BenchmarkConfig {
	cfg := searchConfig()
	cfg.WarmupFrames = 1
	cfg.SampleFrames = 3
	cfg.FrameHistory = 16
	return cfg
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	logCfg := logging.TestLoggingConfig()
	return NewRunner(ecs.NewWorld(), logging.NewLogger(&logCfg))
}

// stubClock makes every measured update appear to cost perEntity times the
// current entity count, so trial verdicts become deterministic.
func stubClock(r *Runner, perEntity time.Duration) {
	now := time.Unix(0, 0)
	r.now = func() time.Time {
		now = now.Add(time.Duration(r.entityCount) * perEntity)
		return now
	}
}

func tickUntilTerminal(t *testing.T, r *Runner, limit int) Phase {
	t.Helper()
	dt := 16 * time.Millisecond
	for i := 0; i < limit; i++ {
		phase, err := r.Tick(dt)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if phase.Terminal() {
			return phase
		}
	}
	t.Fatalf("runner did not terminate within %d ticks, phase %s", limit, r.Phase())
	return r.Phase()
}

func TestRunnerRejectsInvalidConfig(t *testing.T) {
	r := newTestRunner(t)
	cfg := runnerConfig()
	cfg.GrowthFactor = 0.5

	err := r.Start(&fakeWorkload{key: "fake"}, cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if r.Phase() != PhaseIdle {
		t.Errorf("phase = %s after rejected start, want idle", r.Phase())
	}
}

func TestRunnerRejectsStartWhileActive(t *testing.T) {
	r := newTestRunner(t)
	if err := r.Start(&fakeWorkload{key: "fake"}, runnerConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}

	err := r.Start(&fakeWorkload{key: "other"}, runnerConfig())
	if !errors.Is(err, ErrRunActive) {
		t.Fatalf("err = %v, want ErrRunActive", err)
	}
}

func TestRunnerPhaseSequence(t *testing.T) {
	r := newTestRunner(t)
	stubClock(r, time.Microsecond)
	w := &fakeWorkload{key: "fake"}

	if err := r.Start(w, runnerConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if r.Phase() != PhaseSpawning {
		t.Fatalf("phase after start = %s, want spawning", r.Phase())
	}
	if w.live != 10_000 {
		t.Fatalf("initial spawn left %d entities, want 10000", w.live)
	}

	dt := 16 * time.Millisecond
	want := []Phase{PhaseWarmingUp, PhaseMeasuring, PhaseMeasuring, PhaseMeasuring, PhaseEvaluating, PhaseScaling, PhaseSpawning}
	for i, wantPhase := range want {
		phase, err := r.Tick(dt)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if phase != wantPhase {
			t.Fatalf("tick %d: phase = %s, want %s", i, phase, wantPhase)
		}
	}

	// One warm-up frame plus three sample frames per trial.
	if w.updates != 4 {
		t.Errorf("updates = %d after first trial, want 4", w.updates)
	}
}

func TestRunnerFindsBreakdown(t *testing.T) {
	// Per-entity cost of 1us against a 16.6ms target puts the true
	// breakdown at 16600 entities.
	r := newTestRunner(t)
	stubClock(r, time.Microsecond)
	w := &fakeWorkload{key: "fake"}

	cfg := runnerConfig()
	cfg.TargetFrameTimeMs = 16.6
	if err := r.Start(w, cfg); err != nil {
		t.Fatalf("start: %v", err)
	}

	phase := tickUntilTerminal(t, r, 1000)
	if phase != PhaseCompleted {
		t.Fatalf("terminal phase = %s, want completed", phase)
	}

	result, ok := r.Result()
	if !ok {
		t.Fatal("completed run has no result")
	}
	if result.Outcome != OutcomeConverged {
		t.Fatalf("outcome = %q, want converged", result.Outcome)
	}
	if result.BreakdownPoint != 16_250 {
		t.Errorf("breakdown = %d, want 16250", result.BreakdownPoint)
	}
	if result.ThroughputEPS <= 0 {
		t.Errorf("throughput = %f, want positive", result.ThroughputEPS)
	}
	if w.live != 0 {
		t.Errorf("%d entities left after completion, want 0", w.live)
	}
}

func TestRunnerBelowMinimum(t *testing.T) {
	// Per-entity cost of 1ms makes even the initial population fail.
	r := newTestRunner(t)
	stubClock(r, time.Millisecond)
	w := &fakeWorkload{key: "fake"}

	if err := r.Start(w, runnerConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}

	phase := tickUntilTerminal(t, r, 100)
	if phase != PhaseCompleted {
		t.Fatalf("terminal phase = %s, want completed", phase)
	}

	result, _ := r.Result()
	if result == nil || result.Outcome != OutcomeBelowMinimum {
		t.Fatalf("result = %+v, want below_minimum", result)
	}
	if result.BreakdownPoint != 0 {
		t.Errorf("breakdown = %d, want 0", result.BreakdownPoint)
	}
}

func TestRunnerCleanupBeforeEverySpawn(t *testing.T) {
	r := newTestRunner(t)
	stubClock(r, time.Microsecond)
	w := &fakeWorkload{key: "fake"}

	cfg := runnerConfig()
	cfg.TargetFrameTimeMs = 16.6
	if err := r.Start(w, cfg); err != nil {
		t.Fatalf("start: %v", err)
	}
	tickUntilTerminal(t, r, 1000)

	spawns := 0
	for i, op := range w.ops {
		if op != "spawn" {
			continue
		}
		spawns++
		if i == 0 || w.ops[i-1] != "cleanup" {
			t.Fatalf("spawn at op %d not preceded by cleanup", i)
		}
	}
	if spawns < 2 {
		t.Errorf("only %d spawns recorded, expected multiple trials", spawns)
	}
	if last := w.ops[len(w.ops)-1]; last != "cleanup" {
		t.Errorf("last op = %q, want final cleanup", last)
	}
}

func TestRunnerAbort(t *testing.T) {
	r := newTestRunner(t)
	stubClock(r, time.Microsecond)
	w := &fakeWorkload{key: "fake"}

	if err := r.Abort(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("abort while idle: err = %v, want ErrNotRunning", err)
	}

	if err := r.Start(w, runnerConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := r.Tick(16 * time.Millisecond); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}

	if err := r.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	phase, err := r.Tick(16 * time.Millisecond)
	if err != nil {
		t.Fatalf("tick after abort: %v", err)
	}
	if phase != PhaseAborted {
		t.Fatalf("phase = %s, want aborted", phase)
	}
	if w.live != 0 {
		t.Errorf("%d entities left after abort, want 0", w.live)
	}

	if err := r.Abort(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("abort after terminal: err = %v, want ErrNotRunning", err)
	}
}

func TestRunnerWorkloadFailureAborts(t *testing.T) {
	r := newTestRunner(t)
	stubClock(r, time.Microsecond)
	w := &fakeWorkload{key: "fake", failUpdateAt: 2}

	if err := r.Start(w, runnerConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}

	var tickErr error
	for i := 0; i < 20; i++ {
		_, err := r.Tick(16 * time.Millisecond)
		if err != nil {
			tickErr = err
			break
		}
	}
	if !errors.Is(tickErr, ErrWorkloadFailed) {
		t.Fatalf("err = %v, want ErrWorkloadFailed", tickErr)
	}
	if r.Phase() != PhaseAborted {
		t.Errorf("phase = %s, want aborted", r.Phase())
	}
	if w.live != 0 {
		t.Errorf("%d entities left after failure, want 0", w.live)
	}
}

func TestRunnerReset(t *testing.T) {
	r := newTestRunner(t)
	stubClock(r, time.Microsecond)
	w := &fakeWorkload{key: "fake"}

	if err := r.Start(w, runnerConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 3; i++ {
		r.Tick(16 * time.Millisecond)
	}

	if err := r.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if r.Phase() != PhaseIdle {
		t.Fatalf("phase = %s after reset, want idle", r.Phase())
	}
	if w.live != 0 {
		t.Errorf("%d entities left after reset, want 0", w.live)
	}

	// The runner is reusable after a reset.
	if err := r.Start(&fakeWorkload{key: "second"}, runnerConfig()); err != nil {
		t.Fatalf("start after reset: %v", err)
	}
}

func TestRunnerResetSurvivesCleanupError(t *testing.T) {
	r := newTestRunner(t)
	w := &fakeWorkload{key: "fake"}

	if err := r.Start(w, runnerConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}
	w.cleanupErr = errors.New("simulated cleanup failure")

	err := r.Reset()
	if !errors.Is(err, ErrWorkloadFailed) {
		t.Fatalf("err = %v, want ErrWorkloadFailed", err)
	}
	if r.Phase() != PhaseIdle {
		t.Errorf("phase = %s, want idle even when cleanup failed", r.Phase())
	}
}

func TestRunnerManualMode(t *testing.T) {
	r := newTestRunner(t)
	stubClock(r, time.Microsecond)
	w := &fakeWorkload{key: "fake"}

	if err := r.SetEntityCount(5_000); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("manual count while idle: err = %v, want ErrNotRunning", err)
	}

	if err := r.Start(w, runnerConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := r.SetEntityCount(10); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("out-of-range count: err = %v, want ErrInvalidConfig", err)
	}

	if err := r.SetEntityCount(5_000); err != nil {
		t.Fatalf("set entity count: %v", err)
	}

	// Manual mode respawns at the fixed count and then measures forever:
	// it must never reach Evaluating or a terminal phase on its own.
	for i := 0; i < 50; i++ {
		phase, err := r.Tick(16 * time.Millisecond)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if phase == PhaseEvaluating || phase.Terminal() {
			t.Fatalf("tick %d: manual mode reached %s", i, phase)
		}
	}
	if w.live != 5_000 {
		t.Errorf("live entities = %d, want the fixed 5000", w.live)
	}

	snap := r.Snapshot()
	if !snap.Manual {
		t.Error("snapshot does not report manual mode")
	}
	if snap.EntityCount != 5_000 {
		t.Errorf("snapshot entity count = %d, want 5000", snap.EntityCount)
	}
}

func TestRunnerSnapshot(t *testing.T) {
	r := newTestRunner(t)
	snap := r.Snapshot()
	if snap.Phase != PhaseIdle {
		t.Errorf("idle snapshot phase = %s", snap.Phase)
	}
	if snap.SearchLow != -1 || snap.SearchHigh != -1 {
		t.Errorf("idle snapshot bracket = [%d, %d], want [-1, -1]", snap.SearchLow, snap.SearchHigh)
	}

	stubClock(r, time.Microsecond)
	w := &fakeWorkload{key: "fake"}
	if err := r.Start(w, runnerConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 6; i++ {
		r.Tick(16 * time.Millisecond)
	}

	snap = r.Snapshot()
	if snap.Workload != "fake" {
		t.Errorf("snapshot workload = %q", snap.Workload)
	}
	if snap.EntityCount != 10_000 {
		t.Errorf("snapshot entity count = %d, want 10000", snap.EntityCount)
	}
	if snap.CurrentFrameTimeMs <= 0 {
		t.Errorf("snapshot frame time = %f, want positive", snap.CurrentFrameTimeMs)
	}
}
