package worker

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zkpodai/attested-audio/engine/common/fifoqueue"
	"github.com/zkpodai/attested-audio/model/bundle"
	"github.com/zkpodai/attested-audio/model/messages"
	"github.com/zkpodai/attested-audio/module"
	"github.com/zkpodai/attested-audio/module/component"
	"github.com/zkpodai/attested-audio/module/irrecoverable"
)

// DefaultInboxCapacity is the maximum number of queued requests.
const DefaultInboxCapacity = 64

// ErrInboxFull is returned by Submit when the inbox has reached its capacity.
var ErrInboxFull = errors.New("compute worker inbox is full")

// Engine is the compute worker. It runs a single worker routine that takes requests from
// its inbox in FIFO order, dispatches them to the proof and hash engines and publishes one
// response per request.
//
// The engines are initialized lazily, once, on the first request. A failed initialization
// is reported as the failure of that request and attempted again on the next one.
//
// The worker holds its own copy of the bundle and shares no mutable state with the caller.
type Engine struct {
	*component.ComponentManager

	log     zerolog.Logger
	metrics module.VerificationMetrics
	bundle  bundle.Bundle
	loader  module.EngineLoader

	inbox         *fifoqueue.FifoQueue[messages.WorkerRequest]
	inboxNotifier module.Notifier
	responses     chan messages.WorkerResponse
	faults        chan messages.WorkerFault

	// only accessed by the worker routine
	initialized bool
	engines     *module.Engines
}

var _ module.ComputeWorker = (*Engine)(nil)

// New creates a compute worker over a copy of b. The engines are obtained from loader
// when the first request is handled.
func New(
	log zerolog.Logger,
	metrics module.VerificationMetrics,
	b *bundle.Bundle,
	loader module.EngineLoader,
	inboxCapacity int,
) (*Engine, error) {
	inbox, err := fifoqueue.NewFifoQueue[messages.WorkerRequest](
		fifoqueue.WithCapacity(inboxCapacity),
		fifoqueue.WithLengthObserver(metrics.WorkerInboxSize),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create compute worker inbox: %w", err)
	}

	e := &Engine{
		log:           log.With().Str("engine", "compute_worker").Logger(),
		metrics:       metrics,
		bundle:        b.Copy(),
		loader:        loader,
		inbox:         inbox,
		inboxNotifier: module.NewNotifier(),
		responses:     make(chan messages.WorkerResponse, inboxCapacity),
		faults:        make(chan messages.WorkerFault, 1),
	}

	e.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(e.processRequestsLoop).
		Build()

	return e, nil
}

// Submit queues a request for the worker routine. Requests submitted before the worker is
// started are handled once it starts.
// Expected errors:
//   - ErrInboxFull if the inbox has reached its capacity
//   - component.ErrComponentShutdown if the worker has been shut down
func (e *Engine) Submit(request messages.WorkerRequest) error {
	select {
	case <-e.ShutdownSignal():
		return component.ErrComponentShutdown
	case <-e.Done():
		return component.ErrComponentShutdown
	default:
	}

	if !e.inbox.Push(request) {
		return ErrInboxFull
	}
	e.inboxNotifier.Notify()
	return nil
}

func (e *Engine) Responses() <-chan messages.WorkerResponse {
	return e.responses
}

func (e *Engine) Faults() <-chan messages.WorkerFault {
	return e.faults
}

func (e *Engine) processRequestsLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	e.log.Debug().Msg("compute worker started")

	notifier := e.inboxNotifier.Channel()
	for {
		select {
		case <-ctx.Done():
			e.log.Debug().Int("dropped_requests", e.inbox.Len()).Msg("compute worker terminated")
			return
		case <-notifier:
			e.processAvailableRequests(ctx)
		}
	}
}

// processAvailableRequests handles queued requests until the inbox is empty or shutdown
// is signalled.
func (e *Engine) processAvailableRequests(ctx irrecoverable.SignalerContext) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if empty := e.processNextRequest(ctx); empty {
			return
		}
	}
}

// processNextRequest handles the request at the head of the inbox. It returns true when
// there was nothing left to process.
// A panic outside of request handling is reported as a worker fault, after which the rest
// of the inbox is left for the next notification.
func (e *Engine) processNextRequest(ctx irrecoverable.SignalerContext) (empty bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("compute worker fault")
			e.fault(ctx, fmt.Errorf("panic in compute worker: %v", r))
			empty = true
		}
	}()

	request, ok := e.inbox.Pop()
	if !ok {
		return true
	}

	response := e.handle(ctx, request)
	e.respond(ctx, response)
	return false
}

// respond publishes a response. Responses to requests handled while shutting down are
// dropped.
func (e *Engine) respond(ctx irrecoverable.SignalerContext, response messages.WorkerResponse) {
	if ctx.Err() != nil {
		return
	}
	select {
	case e.responses <- response:
	case <-ctx.Done():
	}
}

func (e *Engine) fault(ctx irrecoverable.SignalerContext, err error) {
	select {
	case e.faults <- messages.WorkerFault{Err: err}:
	case <-ctx.Done():
	}
}
