package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecs-bench/internal/archive"
	"ecs-bench/internal/bench"
	"ecs-bench/internal/config"
	"ecs-bench/internal/ecs"
	"ecs-bench/internal/logging"
	"ecs-bench/internal/metrics"
	"ecs-bench/internal/server"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		workloadKey = flag.String("workload", "", "Run a single workload by key")
		runSuite    = flag.Bool("suite", false, "Run the full workload suite")
		serve       = flag.Bool("serve", false, "Serve the dashboard REST API")
		listOnly    = flag.Bool("list", false, "List available workloads and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if env := os.Getenv("BENCH_ENV"); env != "" {
		logging.SetupEnvironmentLogging(cfg, env)
	}

	logger := logging.NewLogger(&cfg.Logging)

	world := ecs.NewWorld()
	registry := bench.NewRegistry(world, cfg.Benchmark)

	if *listOnly {
		for _, w := range registry.All() {
			fmt.Printf("%-24s %s\n", w.Key(), w.Description())
		}
		return
	}

	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = archive.NewStore(archive.Config{
			DataPath: cfg.Archive.DataPath,
			InMemory: cfg.Archive.InMemory,
		})
		if err != nil {
			log.Fatalf("Failed to open report archive: %v", err)
		}
		defer store.Close()
	}

	runner := bench.NewRunner(world, logger)
	controller := bench.NewController(runner, registry, logger, cfg.Benchmark)

	switch {
	case *serve || cfg.Server.Enabled:
		runServer(cfg, controller, store, logger)
	case *workloadKey != "" || *runSuite:
		runBatch(cfg, controller, store, logger, *workloadKey)
	default:
		printUsage()
		os.Exit(1)
	}
}

// runBatch drives one workload (or the whole suite) to completion, then
// exports and archives the report.
func runBatch(cfg *config.Config, controller *bench.Controller, store *archive.Store, logger *logging.Logger, workloadKey string) {
	start := func() error {
		if workloadKey != "" {
			return controller.StartWorkload(workloadKey)
		}
		return controller.StartSuite()
	}

	startErr := make(chan error, 1)
	go func() { startErr <- start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	last := time.Now()
	started := false
loop:
	for {
		select {
		case err := <-startErr:
			if err != nil {
				log.Fatalf("Failed to start run: %v", err)
			}
			started = true
		case sig := <-sigCh:
			logger.Info("Received signal, aborting run", "signal", sig.String())
			go controller.Abort()
		case now := <-ticker.C:
			if err := controller.Tick(now.Sub(last)); err != nil {
				log.Fatalf("Run failed: %v", err)
			}
			last = now
			if started && controller.Status().Phase.Terminal() {
				break loop
			}
		}
	}

	if controller.Status().Phase == bench.PhaseAborted {
		logger.Warn("Run aborted before completion")
		os.Exit(1)
	}

	report := finishReport(controller)
	printSummary(report)

	if path, err := report.WriteFile(cfg.Export.ResultsDir); err != nil {
		logger.Error("Failed to export report", "error", err)
	} else {
		logger.Info("Report exported", "path", path)
	}

	if store != nil {
		if id, err := store.Save(report); err != nil {
			logger.Error("Failed to archive report", "error", err)
		} else {
			logger.Info("Report archived", "id", id)
		}
	}
}

// finishReport fetches the sealed report while keeping the loop ticking,
// since report retrieval goes through the control queue.
func finishReport(controller *bench.Controller) *bench.Report {
	type out struct {
		report *bench.Report
		err    error
	}
	outCh := make(chan out, 1)
	go func() {
		r, err := controller.Report()
		outCh <- out{r, err}
	}()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case o := <-outCh:
			if o.err != nil {
				log.Fatalf("Failed to build report: %v", o.err)
			}
			return o.report
		case now := <-ticker.C:
			controller.Tick(now.Sub(last))
			last = now
		}
	}
}

func printSummary(report *bench.Report) {
	fmt.Printf("\nBenchmark results (target %.1fms/frame, %s, %d cores)\n\n",
		report.TargetFrameTimeMs, report.SystemInfo.OS, report.SystemInfo.CPUCores)
	fmt.Printf("%-28s %12s %14s %10s  %s\n", "WORKLOAD", "BREAKDOWN", "THROUGHPUT", "MEDIAN", "OUTCOME")
	for _, r := range report.Results {
		fmt.Printf("%-28s %12s %14s %8.2fms  %s\n",
			r.Workload,
			metrics.FormatCount(r.BreakdownPoint),
			metrics.FormatThroughput(r.ThroughputEPS),
			r.FrameTimeMs.Median,
			r.Outcome,
		)
	}
	fmt.Println()
}

// runServer hosts the REST API and keeps the engine loop ticking until a
// shutdown signal arrives.
func runServer(cfg *config.Config, controller *bench.Controller, store *archive.Store, logger *logging.Logger) {
	srv := server.NewHTTPServer(cfg, controller, store, logger)

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case err := <-serverErr:
			log.Fatalf("HTTP server failed: %v", err)
		case sig := <-sigCh:
			logger.Info("Shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				logger.Error("Graceful shutdown failed", "error", err)
			}
			return
		case now := <-ticker.C:
			if err := controller.Tick(now.Sub(last)); err != nil {
				logger.Error("Run failed", "error", err)
			}
			last = now
		}
	}
}

func printUsage() {
	fmt.Printf(`ECS Benchmark Engine

Usage:
  %s [options]

Options:
  -config string
        Path to configuration file (YAML)
  -workload string
        Run a single workload to its breakdown point (see -list)
  -suite
        Run every workload and aggregate a suite report
  -serve
        Serve the dashboard REST API instead of a batch run
  -list
        List available workloads and exit

Environment Variables:
  Configuration can be overridden with BENCH_ prefixed variables,
  e.g. BENCH_TARGET_FRAME_TIME_MS=33.3 or BENCH_MAX_ENTITIES=1000000.
  BENCH_ENV=development|production|test selects a logging preset.

Examples:
  # Full suite with defaults
  %s -suite

  # One workload with a custom config
  %s -workload simple_iteration -config bench.yaml

  # Dashboard mode
  %s -serve
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}
