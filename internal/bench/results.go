package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"ecs-bench/internal/metrics"
)

// FrameTime is the frame-time distribution of the final trial, in ms.
type FrameTime struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// BreakdownResult is the outcome of one workload's breakdown search.
type BreakdownResult struct {
	Workload       string    `json:"workload"`
	BreakdownPoint int       `json:"breakdown_point"`
	ThroughputEPS  float64   `json:"throughput_eps"`
	FrameTimeMs    FrameTime `json:"frame_time_ms"`
	Outcome        Outcome   `json:"outcome"`
}

// newBreakdownResult shapes a terminal search decision plus the final
// trial's statistics into a result. Peak throughput is the breakdown count
// divided by the final trial's median frame time.
func newBreakdownResult(workload string, outcome Outcome, breakdown int, stats metrics.Stats) BreakdownResult {
	var eps float64
	if stats.Median > 0 && breakdown > 0 {
		eps = float64(breakdown) / (stats.Median / 1000.0)
	}
	return BreakdownResult{
		Workload:       workload,
		BreakdownPoint: breakdown,
		ThroughputEPS:  eps,
		FrameTimeMs: FrameTime{
			Min:    stats.Min,
			Max:    stats.Max,
			Median: stats.Median,
		},
		Outcome: outcome,
	}
}

// SystemInfo records the host the suite ran on.
type SystemInfo struct {
	OS       string `json:"os"`
	CPUCores int    `json:"cpu_cores"`
}

func hostSystemInfo() SystemInfo {
	return SystemInfo{
		OS:       runtime.GOOS,
		CPUCores: runtime.NumCPU(),
	}
}

// Report is the finished, exportable suite report.
type Report struct {
	Timestamp         string            `json:"timestamp"`
	TargetFrameTimeMs float64           `json:"target_frame_time_ms"`
	SystemInfo        SystemInfo        `json:"system_info"`
	Results           []BreakdownResult `json:"results"`
}

// ToJSON serializes the report with stable indentation.
func (r *Report) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}
	return data, nil
}

// WriteFile writes the report to a timestamped JSON file under dir,
// creating the directory if needed. Returns the file path.
func (r *Report) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := r.ToJSON()
	if err != nil {
		return "", err
	}

	filename := filepath.Join(dir, fmt.Sprintf("benchmark_%s.json", time.Now().UTC().Format("20060102_150405")))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return filename, nil
}

// ParseReport deserializes a report produced by ToJSON.
func ParseReport(data []byte) (*Report, error) {
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// Aggregator accumulates one BreakdownResult per completed workload run,
// in run order. No partial report is readable until Seal is called.
type Aggregator struct {
	targetMs float64
	results  []BreakdownResult
	sealed   bool
	report   *Report
}

func NewAggregator(targetMs float64) *Aggregator {
	return &Aggregator{targetMs: targetMs}
}

// Add appends a completed workload's result. Fails once sealed.
func (a *Aggregator) Add(result BreakdownResult) error {
	if a.sealed {
		return fmt.Errorf("aggregator is sealed, cannot add result for %q", result.Workload)
	}
	a.results = append(a.results, result)
	return nil
}

// Count returns the number of collected results.
func (a *Aggregator) Count() int {
	return len(a.results)
}

// Seal finalizes the report. Further Add calls fail; Report becomes
// available.
func (a *Aggregator) Seal() *Report {
	if a.sealed {
		return a.report
	}
	results := make([]BreakdownResult, len(a.results))
	copy(results, a.results)
	a.report = &Report{
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		TargetFrameTimeMs: a.targetMs,
		SystemInfo:        hostSystemInfo(),
		Results:           results,
	}
	a.sealed = true
	return a.report
}

// Report returns the finalized report, or an error while the suite is
// still in progress.
func (a *Aggregator) Report() (*Report, error) {
	if !a.sealed {
		return nil, fmt.Errorf("suite still in progress, report not available")
	}
	return a.report, nil
}
