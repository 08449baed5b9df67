package module

import (
	"time"
)

// VerificationMetrics reports the activity of the orchestrator and the compute worker.
type VerificationMetrics interface {
	// StageFinished records one invocation of a stage and how it ended
	// (skipped, succeeded or failed). The duration covers the whole invocation,
	// including the time spent waiting for the compute worker.
	StageFinished(stage string, status string, duration time.Duration)

	// WorkerRequestHandled records a request handled by the compute worker.
	WorkerRequestHandled(action string, failed bool, duration time.Duration)

	// WorkerEnginesInitialized records an attempt to initialize the compute engines.
	WorkerEnginesInitialized(success bool)

	// WorkerInboxSize sets the number of requests waiting in the worker inbox.
	WorkerInboxSize(size int)

	// OutstandingRequests sets the number of worker-bound requests awaiting a response.
	OutstandingRequests(count int)

	// PlaybackStarted counts started playbacks.
	PlaybackStarted()
}
