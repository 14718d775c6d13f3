package bench

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"ecs-bench/internal/ecs"
	"ecs-bench/internal/logging"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	world := ecs.NewWorld()
	logCfg := logging.TestLoggingConfig()
	logger := logging.NewLogger(&logCfg)

	cfg := runnerConfig()
	cfg.TargetFrameTimeMs = 16.6

	registry := NewRegistry(world, cfg)
	runner := NewRunner(world, logger)
	stubClock(runner, time.Microsecond)
	return NewController(runner, registry, logger, cfg)
}

// exec issues a control operation from a separate goroutine and ticks the
// loop until the command has been consumed, mimicking the host loop.
func exec(t *testing.T, c *Controller, op func() error) error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- op() }()
	for i := 0; i < 1_000_000; i++ {
		select {
		case err := <-errCh:
			return err
		default:
			// Yield so the command goroutine runs even on GOMAXPROCS=1;
			// otherwise the stub-clocked run can finish before the
			// command is ever enqueued.
			runtime.Gosched()
			c.Tick(time.Millisecond)
		}
	}
	t.Fatal("control command was never consumed")
	return nil
}

func tickToTerminal(t *testing.T, c *Controller, limit int) StatusSnapshot {
	t.Helper()
	for i := 0; i < limit; i++ {
		if err := c.Tick(time.Millisecond); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if snap := c.Status(); snap.Phase.Terminal() {
			return snap
		}
	}
	t.Fatalf("run did not terminate within %d ticks", limit)
	return StatusSnapshot{}
}

func TestControllerSingleWorkloadRun(t *testing.T) {
	c := newTestController(t)

	if err := exec(t, c, func() error { return c.StartWorkload("simple_iteration") }); err != nil {
		t.Fatalf("start: %v", err)
	}

	snap := tickToTerminal(t, c, 10_000)
	if snap.Phase != PhaseCompleted {
		t.Fatalf("phase = %s, want completed", snap.Phase)
	}
	if snap.Result == nil || snap.Result.Outcome != OutcomeConverged {
		t.Fatalf("snapshot result = %+v, want converged", snap.Result)
	}

	report, err := fetchReport(t, c)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].Workload != "Simple Iteration" {
		t.Errorf("unexpected report results: %+v", report.Results)
	}
}

// fetchReport fetches the report while ticking the loop, like exec does
// for control operations.
func fetchReport(t *testing.T, c *Controller) (*Report, error) {
	t.Helper()
	type out struct {
		report *Report
		err    error
	}
	outCh := make(chan out, 1)
	go func() {
		r, err := c.Report()
		outCh <- out{r, err}
	}()
	for i := 0; i < 1_000_000; i++ {
		select {
		case o := <-outCh:
			return o.report, o.err
		default:
			runtime.Gosched()
			c.Tick(time.Millisecond)
		}
	}
	t.Fatal("report request was never consumed")
	return nil, nil
}

func TestControllerRejectsUnknownWorkload(t *testing.T) {
	c := newTestController(t)

	err := exec(t, c, func() error { return c.StartWorkload("no_such_workload") })
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestControllerReportStates(t *testing.T) {
	c := newTestController(t)

	if _, err := fetchReport(t, c); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("report with no run: err = %v, want ErrNotRunning", err)
	}

	if err := exec(t, c, func() error { return c.StartWorkload("simple_iteration") }); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := fetchReport(t, c); !errors.Is(err, ErrRunActive) {
		t.Fatalf("report mid-run: err = %v, want ErrRunActive", err)
	}
}

func TestControllerSuiteRun(t *testing.T) {
	c := newTestController(t)

	if err := exec(t, c, func() error { return c.StartSuite() }); err != nil {
		t.Fatalf("start suite: %v", err)
	}

	sawProgress := false
	for i := 0; i < 100_000; i++ {
		if err := c.Tick(time.Millisecond); err != nil {
			t.Fatalf("tick: %v", err)
		}
		snap := c.Status()
		if snap.Suite != nil {
			sawProgress = true
			if snap.Suite.Total != 6 {
				t.Fatalf("suite total = %d, want 6", snap.Suite.Total)
			}
		}
		if snap.Suite == nil && snap.Phase == PhaseCompleted && sawProgress {
			break
		}
	}
	if !sawProgress {
		t.Fatal("status never reported suite progress")
	}

	report, err := fetchReport(t, c)
	if err != nil {
		t.Fatalf("suite report: %v", err)
	}
	if len(report.Results) != 6 {
		t.Errorf("suite report has %d results, want 6", len(report.Results))
	}
}

func TestControllerAbortAndReset(t *testing.T) {
	c := newTestController(t)

	if err := exec(t, c, func() error { return c.Abort() }); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("abort while idle: err = %v, want ErrNotRunning", err)
	}

	if err := exec(t, c, func() error { return c.StartWorkload("position_velocity") }); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := exec(t, c, func() error { return c.Abort() }); err != nil {
		t.Fatalf("abort: %v", err)
	}
	snap := tickToTerminal(t, c, 100)
	if snap.Phase != PhaseAborted {
		t.Fatalf("phase = %s after abort, want aborted", snap.Phase)
	}

	if err := exec(t, c, func() error { return c.Reset() }); err != nil {
		t.Fatalf("reset: %v", err)
	}
	c.Tick(time.Millisecond)
	if phase := c.Status().Phase; phase != PhaseIdle {
		t.Errorf("phase = %s after reset, want idle", phase)
	}
}

func TestControllerManualOverride(t *testing.T) {
	c := newTestController(t)

	if err := exec(t, c, func() error { return c.StartWorkload("simple_iteration") }); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := exec(t, c, func() error { return c.SetEntityCount(5_000) }); err != nil {
		t.Fatalf("set entity count: %v", err)
	}

	for i := 0; i < 200; i++ {
		if err := c.Tick(time.Millisecond); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	snap := c.Status()
	if !snap.Manual {
		t.Error("status does not report manual mode")
	}
	if snap.EntityCount != 5_000 {
		t.Errorf("entity count = %d, want 5000", snap.EntityCount)
	}
	if snap.Phase.Terminal() {
		t.Errorf("manual run terminated on its own with phase %s", snap.Phase)
	}
}

func TestControllerWorkloadListing(t *testing.T) {
	c := newTestController(t)

	infos := c.Workloads()
	if len(infos) != 6 {
		t.Fatalf("catalog lists %d workloads, want 6", len(infos))
	}
	for _, info := range infos {
		if info.Key == "" || info.Name == "" || info.Description == "" {
			t.Errorf("incomplete workload info: %+v", info)
		}
	}
}
