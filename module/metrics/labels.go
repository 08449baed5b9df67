package metrics

const (
	namespaceAttest = "attest"

	subsystemOrchestrator = "orchestrator"
	subsystemWorker       = "worker"
)

const (
	LabelStage  = "stage"
	LabelStatus = "status"
	LabelAction = "action"
	LabelResult = "result"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
