package metrics

import (
	"time"

	"github.com/zkpodai/attested-audio/module"
)

type NoopCollector struct{}

var _ module.VerificationMetrics = (*NoopCollector)(nil)

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

func (nc *NoopCollector) StageFinished(stage string, status string, duration time.Duration)      {}
func (nc *NoopCollector) WorkerRequestHandled(action string, failed bool, duration time.Duration) {}
func (nc *NoopCollector) WorkerEnginesInitialized(success bool)                                   {}
func (nc *NoopCollector) WorkerInboxSize(size int)                                                {}
func (nc *NoopCollector) OutstandingRequests(count int)                                           {}
func (nc *NoopCollector) PlaybackStarted()                                                        {}
