package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zkpodai/attested-audio/engine/common/fifoqueue"
	"github.com/zkpodai/attested-audio/model/bundle"
	"github.com/zkpodai/attested-audio/model/messages"
	"github.com/zkpodai/attested-audio/model/verification"
	"github.com/zkpodai/attested-audio/module"
	"github.com/zkpodai/attested-audio/module/component"
	"github.com/zkpodai/attested-audio/module/irrecoverable"
)

// resolution is an outcome held back until the state it produced has been published.
type resolution struct {
	future  *Future
	outcome verification.Outcome
}

// command is a stage request waiting to be processed by the event loop, or waiting for
// its worker response.
type command struct {
	stage     verification.Stage
	future    *Future
	submitted time.Time
}

// Engine is the orchestrator. It owns the verification state and drives the compute
// worker.
//
// All state is owned by a single event loop routine. Stage requests are queued and
// processed in order; proof and hash verification are sent to the compute worker while
// signature verification and playback run directly on the event loop. Every request to
// the worker carries an id, and each response resolves exactly the request it answers.
//
// The orchestrator owns the compute worker: the worker is started by the event loop and
// the orchestrator is only done once the worker is done.
type Engine struct {
	*component.ComponentManager

	log       zerolog.Logger
	metrics   module.VerificationMetrics
	bundle    *bundle.Bundle
	worker    module.ComputeWorker
	recoverer module.SignerRecoverer
	player    module.Player

	inbox         *fifoqueue.FifoQueue[command]
	inboxNotifier module.Notifier
	loopDone      chan struct{}

	// only accessed by the event loop
	state         *verification.State
	pending       map[messages.RequestID]command
	lastRequestID messages.RequestID
	resolved      []resolution

	snapshotMu sync.RWMutex
	snapshot   verification.State
}

// New creates an orchestrator for b. The worker must not have been started; it is started
// and shut down together with the orchestrator.
func New(
	log zerolog.Logger,
	metrics module.VerificationMetrics,
	b *bundle.Bundle,
	worker module.ComputeWorker,
	recoverer module.SignerRecoverer,
	player module.Player,
) (*Engine, error) {
	inbox, err := fifoqueue.NewFifoQueue[command]()
	if err != nil {
		return nil, fmt.Errorf("could not create orchestrator inbox: %w", err)
	}

	e := &Engine{
		log:           log.With().Str("engine", "orchestrator").Logger(),
		metrics:       metrics,
		bundle:        b,
		worker:        worker,
		recoverer:     recoverer,
		player:        player,
		inbox:         inbox,
		inboxNotifier: module.NewNotifier(),
		loopDone:      make(chan struct{}),
		state:         verification.NewState(),
		pending:       make(map[messages.RequestID]command),
	}
	e.snapshot = e.state.Snapshot()

	e.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(e.eventLoop).
		Build()

	return e, nil
}

// RequestProofVerification verifies the proof on the compute worker. It is a no-op
// resolving as skipped once the proof is verified.
func (e *Engine) RequestProofVerification() *Future {
	return e.enqueue(verification.StageProof)
}

// RequestHashVerification hashes the audio on the compute worker and compares the result
// with the last public input. It is a no-op resolving as skipped once the hash is verified.
func (e *Engine) RequestHashVerification() *Future {
	return e.enqueue(verification.StageHash)
}

// RequestSignatureVerification recovers the signer of every signature in order, stopping
// at the first failure. It is a no-op resolving as skipped once all signatures are verified.
func (e *Engine) RequestSignatureVerification() *Future {
	return e.enqueue(verification.StageSignatures)
}

// RequestPlayback starts an independent playback of the bundle audio. Every call starts a
// new playback.
func (e *Engine) RequestPlayback() *Future {
	return e.enqueue(verification.StagePlayback)
}

// RunAll verifies the proof, the hash and the signatures in this order, waiting for each
// stage before requesting the next. It stops at the first failed stage and returns its
// error together with the outcomes so far.
func (e *Engine) RunAll(ctx context.Context) ([]verification.Outcome, error) {
	requests := []func() *Future{
		e.RequestProofVerification,
		e.RequestHashVerification,
		e.RequestSignatureVerification,
	}

	outcomes := make([]verification.Outcome, 0, len(requests))
	for _, request := range requests {
		outcome, err := request().Wait(ctx)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
		if outcome.Status == verification.StatusFailed {
			return outcomes, outcome.Err
		}
	}
	return outcomes, nil
}

// State returns a snapshot of the verification state as of the last processed event.
func (e *Engine) State() verification.State {
	e.snapshotMu.RLock()
	defer e.snapshotMu.RUnlock()
	return e.snapshot.Snapshot()
}

func (e *Engine) enqueue(stage verification.Stage) *Future {
	future := newFuture(stage, e.loopDone)
	e.inbox.Push(command{
		stage:     stage,
		future:    future,
		submitted: time.Now(),
	})
	e.inboxNotifier.Notify()
	return future
}

// eventLoop starts the compute worker and processes stage requests, worker responses and
// worker faults until shutdown. On exit it waits for the worker to shut down; requests
// left unresolved are dropped.
func (e *Engine) eventLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	defer close(e.loopDone)

	e.worker.Start(ctx)
	defer func() {
		<-e.worker.Done()
		e.log.Debug().Int("dropped_requests", len(e.pending)+e.inbox.Len()).Msg("orchestrator terminated")
	}()

	select {
	case <-e.worker.Ready():
	case <-ctx.Done():
		return
	}
	ready()

	notifier := e.inboxNotifier.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notifier:
			e.processCommands(ctx)
		case response := <-e.worker.Responses():
			e.onResponse(response)
		case fault := <-e.worker.Faults():
			e.onFault(fault)
		}
		e.publish()
		e.flushResolutions()
	}
}

func (e *Engine) processCommands(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		cmd, ok := e.inbox.Pop()
		if !ok {
			return
		}

		switch cmd.stage {
		case verification.StageProof, verification.StageHash:
			e.onWorkerStage(cmd)
		case verification.StageSignatures:
			e.onSignatureVerification(cmd)
		case verification.StagePlayback:
			e.onPlayback(cmd)
		default:
			e.fail(cmd, fmt.Errorf("unknown stage %s", cmd.stage))
		}
	}
}

// publish refreshes the snapshot served by State.
func (e *Engine) publish() {
	e.state.Loading = len(e.pending) > 0
	e.metrics.OutstandingRequests(len(e.pending))

	snapshot := e.state.Snapshot()
	e.snapshotMu.Lock()
	e.snapshot = snapshot
	e.snapshotMu.Unlock()
}

func (e *Engine) resolve(cmd command, outcome verification.Outcome) {
	e.metrics.StageFinished(outcome.Stage.String(), outcome.Status.String(), time.Since(cmd.submitted))
	e.resolved = append(e.resolved, resolution{future: cmd.future, outcome: outcome})
}

// flushResolutions resolves the futures of the last event. Called after publish, so a
// caller whose future resolved observes the resulting state.
func (e *Engine) flushResolutions() {
	for _, r := range e.resolved {
		r.future.resolve(r.outcome)
	}
	e.resolved = e.resolved[:0]
}

func (e *Engine) succeed(cmd command) {
	e.resolve(cmd, verification.Succeeded(cmd.stage))
}

func (e *Engine) skip(cmd command) {
	e.log.Debug().Str("stage", cmd.stage.String()).Msg("stage already verified, skipping")
	e.resolve(cmd, verification.Skipped(cmd.stage))
}

// fail records err as the current error and resolves cmd as failed. Progress is kept.
func (e *Engine) fail(cmd command, err error) {
	e.log.Warn().Err(err).Str("stage", cmd.stage.String()).Msg("stage failed")
	e.state.SetError(verification.Message(err))
	e.resolve(cmd, verification.Failed(cmd.stage, err))
}
