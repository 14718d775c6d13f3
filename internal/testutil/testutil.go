// Package testutil provides shared helpers for engine tests.
package testutil

import (
	"testing"

	"ecs-bench/internal/archive"
	"ecs-bench/internal/config"
	"ecs-bench/internal/logging"
)

// TestLogger creates a logger that discards output.
func TestLogger() *logging.Logger {
	testLogConfig := logging.TestLoggingConfig()
	return logging.NewLogger(&testLogConfig)
}

// TestConfig creates a configuration suited to fast tests: tiny warm-up
// and sample windows, an in-memory archive, and no HTTP server.
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Benchmark.WarmupFrames = 1
	cfg.Benchmark.SampleFrames = 3
	cfg.Benchmark.FrameHistory = 16
	cfg.Server.Enabled = false
	cfg.Server.Port = 0
	cfg.Archive.InMemory = true
	return cfg
}

// TestArchive creates an in-memory report archive, closed with the test.
func TestArchive(t *testing.T) *archive.Store {
	t.Helper()

	store, err := archive.NewStore(archive.Config{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to create test archive: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
