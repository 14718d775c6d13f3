package bench

import "errors"

var (
	// ErrInvalidConfig rejects a run whose configuration fails validation.
	// The run never begins.
	ErrInvalidConfig = errors.New("invalid benchmark config")

	// ErrRunActive rejects Start while another run is in progress. The
	// current run is unaffected.
	ErrRunActive = errors.New("benchmark run already active")

	// ErrNotRunning rejects control operations that need an active run.
	ErrNotRunning = errors.New("no benchmark run active")

	// ErrWorkloadFailed wraps a spawn/update/cleanup failure. The run ends
	// in Aborted after a final cleanup attempt.
	ErrWorkloadFailed = errors.New("workload operation failed")
)
