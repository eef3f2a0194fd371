// Package harness times repeated invocations of benchmark operations.
package harness

import "time"

// Time runs op trials times back to back and returns the mean wall-clock
// time per call in seconds. A single start/end pair brackets the whole
// batch, so per-call overhead is amortised rather than sampled. Fewer than
// one trial counts as one.
func Time(trials int, op func()) float64 {
	return Measure(trials, op).Seconds()
}

// Measure is like Time but returns the mean as a time.Duration.
func Measure(trials int, op func()) time.Duration {
	trials = max(trials, 1)

	start := time.Now()

	for range trials {
		op()
	}

	return Mean(time.Since(start), trials)
}

// Mean divides the elapsed time of a batch by its trial count. It applies
// the same contract as Measure to batches timed elsewhere, such as inside
// an engine process.
func Mean(elapsed time.Duration, trials int) time.Duration {
	return elapsed / time.Duration(max(trials, 1))
}
