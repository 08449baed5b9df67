package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zkpodai/attested-audio/module"
)

type VerificationCollector struct {
	// Orchestrator
	stageInvocations *prometheus.CounterVec   // stage invocations by stage and status
	stageDuration    *prometheus.HistogramVec // duration of stage invocations
	outstanding      prometheus.Gauge         // worker-bound requests awaiting a response
	playbacks        prometheus.Counter       // started playbacks

	// Compute worker
	workerRequests *prometheus.CounterVec   // handled requests by action and result
	workerDuration *prometheus.HistogramVec // handling duration by action
	workerInits    *prometheus.CounterVec   // engine initialization attempts by result
	workerInbox    prometheus.Gauge         // requests waiting in the inbox
}

var _ module.VerificationMetrics = (*VerificationCollector)(nil)

func NewVerificationCollector(registerer prometheus.Registerer) *VerificationCollector {
	vc := &VerificationCollector{
		stageInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "stage_invocations_total",
			Namespace: namespaceAttest,
			Subsystem: subsystemOrchestrator,
			Help:      "the number of stage invocations by stage and status",
		}, []string{LabelStage, LabelStatus}),

		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "stage_duration_seconds",
			Namespace: namespaceAttest,
			Subsystem: subsystemOrchestrator,
			Help:      "the duration of stage invocations",
			Buckets:   []float64{.001, .01, .1, .5, 1, 5, 15, 60, 300},
		}, []string{LabelStage}),

		outstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "outstanding_requests",
			Namespace: namespaceAttest,
			Subsystem: subsystemOrchestrator,
			Help:      "the number of worker-bound requests awaiting a response",
		}),

		playbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "playbacks_total",
			Namespace: namespaceAttest,
			Subsystem: subsystemOrchestrator,
			Help:      "the number of started playbacks",
		}),

		workerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "requests_total",
			Namespace: namespaceAttest,
			Subsystem: subsystemWorker,
			Help:      "the number of requests handled by the compute worker",
		}, []string{LabelAction, LabelResult}),

		workerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "request_duration_seconds",
			Namespace: namespaceAttest,
			Subsystem: subsystemWorker,
			Help:      "the duration of requests handled by the compute worker",
			Buckets:   []float64{.001, .01, .1, .5, 1, 5, 15, 60, 300},
		}, []string{LabelAction}),

		workerInits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "engine_initializations_total",
			Namespace: namespaceAttest,
			Subsystem: subsystemWorker,
			Help:      "the number of compute engine initialization attempts",
		}, []string{LabelResult}),

		workerInbox: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "inbox_size",
			Namespace: namespaceAttest,
			Subsystem: subsystemWorker,
			Help:      "the number of requests waiting in the compute worker inbox",
		}),
	}

	registerer.MustRegister(
		vc.stageInvocations,
		vc.stageDuration,
		vc.outstanding,
		vc.playbacks,
		vc.workerRequests,
		vc.workerDuration,
		vc.workerInits,
		vc.workerInbox,
	)

	return vc
}

func (vc *VerificationCollector) StageFinished(stage string, status string, duration time.Duration) {
	vc.stageInvocations.WithLabelValues(stage, status).Inc()
	vc.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (vc *VerificationCollector) WorkerRequestHandled(action string, failed bool, duration time.Duration) {
	vc.workerRequests.WithLabelValues(action, result(!failed)).Inc()
	vc.workerDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func (vc *VerificationCollector) WorkerEnginesInitialized(success bool) {
	vc.workerInits.WithLabelValues(result(success)).Inc()
}

func (vc *VerificationCollector) WorkerInboxSize(size int) {
	vc.workerInbox.Set(float64(size))
}

func (vc *VerificationCollector) OutstandingRequests(count int) {
	vc.outstanding.Set(float64(count))
}

func (vc *VerificationCollector) PlaybackStarted() {
	vc.playbacks.Inc()
}

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}
