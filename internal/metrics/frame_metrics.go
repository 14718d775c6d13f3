// Package metrics collects frame-timing statistics for the benchmark
// engine: a rolling history window for presentation and a per-trial sample
// set the breakdown decision is made from.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Collector ingests frame durations. It is owned by the runner and reset at
// every trial boundary; it holds no locks.
type Collector struct {
	history    []float64 // rolling frame times in ms, ring buffer
	historyLen int
	head       int
	full       bool

	samples    []float64
	current    float64
	throughput float64
}

// NewCollector creates a collector with the given rolling-history length
// and expected sample window size.
func NewCollector(historyLen, sampleCap int) *Collector {
	if historyLen <= 0 {
		historyLen = 300
	}
	return &Collector{
		history:    make([]float64, historyLen),
		historyLen: historyLen,
		samples:    make([]float64, 0, sampleCap),
	}
}

// RecordFrame updates the rolling history and the throughput estimate.
// Called every frame regardless of phase.
func (c *Collector) RecordFrame(dt time.Duration, entityCount int) {
	ms := float64(dt) / float64(time.Millisecond)
	c.current = ms

	c.history[c.head] = ms
	c.head = (c.head + 1) % c.historyLen
	if c.head == 0 {
		c.full = true
	}

	if dt > 0 {
		c.throughput = float64(entityCount) / dt.Seconds()
	}
}

// AddSample records one frame duration for the current measurement trial.
func (c *Collector) AddSample(dt time.Duration) {
	c.samples = append(c.samples, float64(dt)/float64(time.Millisecond))
}

// SampleCount returns the number of samples in the current trial.
func (c *Collector) SampleCount() int {
	return len(c.samples)
}

// ClearSamples discards the current trial's samples, keeping the rolling
// history intact.
func (c *Collector) ClearSamples() {
	c.samples = c.samples[:0]
}

// CurrentFrameTime returns the most recent frame time in ms.
func (c *Collector) CurrentFrameTime() float64 {
	return c.current
}

// Throughput returns the most recent entities-per-second estimate.
func (c *Collector) Throughput() float64 {
	return c.throughput
}

// History returns the rolling frame-time window, oldest first.
func (c *Collector) History() []float64 {
	if !c.full {
		out := make([]float64, c.head)
		copy(out, c.history[:c.head])
		return out
	}
	out := make([]float64, c.historyLen)
	n := copy(out, c.history[c.head:])
	copy(out[n:], c.history[:c.head])
	return out
}

// Reset clears all state, history included.
func (c *Collector) Reset() {
	for i := range c.history {
		c.history[i] = 0
	}
	c.head = 0
	c.full = false
	c.samples = c.samples[:0]
	c.current = 0
	c.throughput = 0
}

// Stats summarizes one trial's samples. All times in milliseconds.
type Stats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	Count  int     `json:"count"`
}

// SampleStats computes statistics over the current trial's samples.
// Returns the zero Stats when no samples were collected.
func (c *Collector) SampleStats() Stats {
	if len(c.samples) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(c.samples))
	copy(sorted, c.samples)
	sort.Float64s(sorted)

	n := len(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range sorted {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	var median float64
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		median = sorted[n/2]
	}

	return Stats{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Median: median,
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		P95:    percentile(sorted, 0.95),
		P99:    percentile(sorted, 0.99),
		Count:  n,
	}
}

// MedianExceeds reports whether the trial median crossed the target. The
// median is used rather than the mean to resist single-frame scheduling or
// GC outliers.
func (s Stats) MedianExceeds(targetMs float64) bool {
	return s.Median > targetMs
}

func percentile(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// FormatCount renders an entity count with a K/M/B suffix.
func FormatCount(count int) string {
	switch {
	case count >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", float64(count)/1_000_000_000)
	case count >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(count)/1_000_000)
	case count >= 1_000:
		return fmt.Sprintf("%.1fK", float64(count)/1_000)
	default:
		return fmt.Sprintf("%d", count)
	}
}

// FormatThroughput renders an entities-per-second rate with a suffix.
func FormatThroughput(eps float64) string {
	switch {
	case eps >= 1_000_000_000:
		return fmt.Sprintf("%.2fB/s", eps/1_000_000_000)
	case eps >= 1_000_000:
		return fmt.Sprintf("%.2fM/s", eps/1_000_000)
	case eps >= 1_000:
		return fmt.Sprintf("%.1fK/s", eps/1_000)
	default:
		return fmt.Sprintf("%.0f/s", eps)
	}
}
