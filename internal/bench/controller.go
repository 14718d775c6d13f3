package bench

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"ecs-bench/internal/config"
	"ecs-bench/internal/logging"
)

// ErrQueueFull is returned when the control queue cannot accept another
// command.
var ErrQueueFull = errors.New("control queue full")

// commandTimeout bounds how long a caller waits for the tick loop to pick
// its command up. The loop runs every frame, so this only fires when the
// host loop has stalled.
const commandTimeout = 5 * time.Second

type command struct {
	apply func() error
	reply chan error
}

// SuiteProgress reports how far a full-suite run has advanced.
type SuiteProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// StatusSnapshot is the runner snapshot plus suite progress, published to
// presentation goroutines once per tick.
type StatusSnapshot struct {
	Snapshot
	Suite *SuiteProgress `json:"suite,omitempty"`
}

// WorkloadInfo describes one catalog entry for listing endpoints.
type WorkloadInfo struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Controller is the only object presentation code talks to. Control
// operations are enqueued and executed by the tick loop between frames,
// so the runner keeps a single owner; reads go through a snapshot the
// loop republishes every tick.
type Controller struct {
	runner   *Runner
	registry *Registry
	logger   *logging.Logger
	cfg      config.BenchmarkConfig

	commands chan command

	mu    sync.RWMutex
	snap  StatusSnapshot
	suite *Suite
}

func NewController(runner *Runner, registry *Registry, logger *logging.Logger, cfg config.BenchmarkConfig) *Controller {
	c := &Controller{
		runner:   runner,
		registry: registry,
		logger:   logger,
		cfg:      cfg,
		commands: make(chan command, 16),
	}
	c.snap = StatusSnapshot{Snapshot: runner.Snapshot()}
	return c
}

// Tick is called by the host loop once per frame: it drains pending
// control commands, advances the engine one step, and republishes the
// snapshot. Only the host loop may call it.
func (c *Controller) Tick(dt time.Duration) error {
	for {
		select {
		case cmd := <-c.commands:
			cmd.reply <- cmd.apply()
			continue
		default:
		}
		break
	}

	var tickErr error
	if c.activeSuite() != nil {
		done, err := c.suite.Tick(dt)
		tickErr = err
		if done && err == nil && !c.suite.Aborted() {
			c.archiveNote()
		}
	} else {
		_, tickErr = c.runner.Tick(dt)
	}

	c.publish()
	return tickErr
}

func (c *Controller) archiveNote() {
	if report, err := c.suite.Report(); err == nil {
		c.logger.Info("Suite report sealed", "results", len(report.Results))
	}
}

func (c *Controller) activeSuite() *Suite {
	if c.suite != nil && !c.suite.Finished() {
		return c.suite
	}
	return nil
}

func (c *Controller) publish() {
	snap := StatusSnapshot{Snapshot: c.runner.Snapshot()}
	if c.suite != nil && !c.suite.Finished() {
		current, total := c.suite.Progress()
		snap.Suite = &SuiteProgress{Current: current, Total: total}
	}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}

// enqueue hands fn to the tick loop and waits for its verdict.
func (c *Controller) enqueue(fn func() error) error {
	cmd := command{apply: fn, reply: make(chan error, 1)}
	select {
	case c.commands <- cmd:
	default:
		return ErrQueueFull
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-time.After(commandTimeout):
		return fmt.Errorf("control command timed out after %s", commandTimeout)
	}
}

// StartWorkload begins a breakdown run for one workload by key.
func (c *Controller) StartWorkload(key string) error {
	return c.enqueue(func() error {
		w, err := c.registry.ByKey(key)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		c.suite = nil
		return c.runner.Start(w, c.cfg)
	})
}

// StartSuite begins a run over the whole catalog.
func (c *Controller) StartSuite() error {
	return c.enqueue(func() error {
		if c.runner.Phase().Active() {
			return fmt.Errorf("%w: phase %s", ErrRunActive, c.runner.Phase())
		}
		suite := NewSuite(c.registry, c.runner, c.logger, c.cfg)
		if err := suite.Start(); err != nil {
			return err
		}
		c.suite = suite
		return nil
	})
}

// Abort cancels the active run.
func (c *Controller) Abort() error {
	return c.enqueue(func() error {
		return c.runner.Abort()
	})
}

// Reset clears the engine back to idle.
func (c *Controller) Reset() error {
	return c.enqueue(func() error {
		c.suite = nil
		return c.runner.Reset()
	})
}

// SetEntityCount switches the active run to a fixed, manual count.
func (c *Controller) SetEntityCount(count int) error {
	return c.enqueue(func() error {
		c.suite = nil
		return c.runner.SetEntityCount(count)
	})
}

// Report returns the finalized report for the most recent run. It fails
// with ErrRunActive while a run is in progress and ErrNotRunning when
// there is nothing to report yet.
func (c *Controller) Report() (*Report, error) {
	var report *Report
	err := c.enqueue(func() error {
		if c.runner.Phase().Active() {
			return fmt.Errorf("%w: run in progress", ErrRunActive)
		}
		if c.suite != nil && c.suite.Finished() && !c.suite.Aborted() {
			r, err := c.suite.Report()
			if err != nil {
				return err
			}
			report = r
			return nil
		}
		result, ok := c.runner.Result()
		if !ok {
			return fmt.Errorf("%w: no completed run", ErrNotRunning)
		}
		agg := NewAggregator(c.cfg.TargetFrameTimeMs)
		if err := agg.Add(*result); err != nil {
			return err
		}
		report = agg.Seal()
		return nil
	})
	return report, err
}

// Status returns the most recently published snapshot. Safe from any
// goroutine.
func (c *Controller) Status() StatusSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Workloads lists the catalog. The registry is immutable after
// construction, so no synchronization is needed.
func (c *Controller) Workloads() []WorkloadInfo {
	infos := make([]WorkloadInfo, 0, c.registry.Len())
	for _, w := range c.registry.All() {
		infos = append(infos, WorkloadInfo{
			Key:         w.Key(),
			Name:        w.Name(),
			Description: w.Description(),
		})
	}
	return infos
}
