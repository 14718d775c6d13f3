package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"ecs-bench/internal/config"
)

type Logger struct {
	*slog.Logger
	config *config.LoggingConfig
}

// NewLogger creates a new structured logger using slog
func NewLogger(cfg *config.LoggingConfig) *Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var writer io.Writer
	switch cfg.Output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		if cfg.Output != "" {
			file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err == nil {
				writer = file
			} else {
				writer = os.Stdout
				slog.Warn("Failed to open log file, using stdout", "error", err, "file", cfg.Output)
			}
		} else {
			writer = os.Stdout
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text", "console":
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return &Logger{
		Logger: logger,
		config: cfg,
	}
}

// WithRun returns a logger tagged with the run ID
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", runID),
		config: l.config,
	}
}

// WithWorkload returns a logger tagged with the workload name
func (l *Logger) WithWorkload(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("workload", name),
		config: l.config,
	}
}

// WithTrial returns a logger tagged with the trial index and entity count
func (l *Logger) WithTrial(trial, entities int) *Logger {
	return &Logger{
		Logger: l.Logger.With("trial", trial, "entities", entities),
		config: l.config,
	}
}

// TrialResult logs the outcome of one measurement trial. The workload and
// trial attributes come from the WithWorkload/WithTrial enriched logger.
func (l *Logger) TrialResult(medianMs, targetMs float64, exceeded bool) {
	verdict := "under"
	if exceeded {
		verdict = "over"
	}
	l.Info("Trial complete",
		"median_ms", medianMs,
		"target_ms", targetMs,
		"verdict", verdict,
	)
}

// PhaseTransition logs a runner phase change
func (l *Logger) PhaseTransition(from, to string, entities int) {
	l.Debug("Phase transition",
		"from", from,
		"to", to,
		"entities", entities,
	)
}
