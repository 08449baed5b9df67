package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zkpodai/attested-audio/model/messages"
	"github.com/zkpodai/attested-audio/module"
)

// handle dispatches a request to its engine and translates the outcome into a response.
// A panic while handling is converted into an error response for the request.
func (e *Engine) handle(ctx context.Context, request messages.WorkerRequest) (response messages.WorkerResponse) {
	start := time.Now()
	lg := e.log.With().
		Uint64("request_id", uint64(request.ID)).
		Str("action", request.Action.String()).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			lg.Error().Interface("panic", r).Msg("request handler panicked")
			response = messages.NewErrorResponse(request.ID, fmt.Errorf("unexpected failure handling %s request: %v", request.Action, r))
		}

		e.metrics.WorkerRequestHandled(request.Action.String(), response.Failed(), time.Since(start))
		if response.Failed() {
			lg.Info().Str("error", response.FailureMessage()).Dur("duration", time.Since(start)).Msg("request failed")
			return
		}
		lg.Info().Dur("duration", time.Since(start)).Msg("request handled")
	}()

	switch request.Action {
	case messages.ActionVerify:
		return e.handleVerify(ctx, request)
	case messages.ActionHash:
		return e.handleHash(ctx, request)
	default:
		return messages.NewErrorResponse(request.ID, fmt.Errorf("unknown action %q", request.Action))
	}
}

func (e *Engine) handleVerify(ctx context.Context, request messages.WorkerRequest) messages.WorkerResponse {
	engines, err := e.ensureEngines(ctx)
	if err != nil {
		return messages.NewErrorResponse(request.ID, err)
	}

	err = engines.Verifier.Verify(ctx, e.bundle.VerifyingKey, e.bundle.Proof, e.bundle.PublicInputs, e.bundle.Config)
	if err != nil {
		return messages.NewErrorResponse(request.ID, err)
	}
	return messages.NewVerifyResponse(request.ID)
}

func (e *Engine) handleHash(ctx context.Context, request messages.WorkerRequest) messages.WorkerResponse {
	engines, err := e.ensureEngines(ctx)
	if err != nil {
		return messages.NewErrorResponse(request.ID, err)
	}

	digest, err := engines.Hasher.Hash(ctx, e.bundle.CombinedWav)
	if err != nil {
		return messages.NewErrorResponse(request.ID, err)
	}
	if digest == nil {
		return messages.NewErrorResponse(request.ID, errors.New("hash engine returned no digest"))
	}

	// padding and comparison are left to the orchestrator
	return messages.NewHashResponse(request.ID, digest.Text(16))
}

// ensureEngines initializes the engines on first use.
func (e *Engine) ensureEngines(ctx context.Context) (*module.Engines, error) {
	if e.initialized {
		return e.engines, nil
	}

	engines, err := e.loader(ctx)
	if err == nil && (engines == nil || engines.Verifier == nil || engines.Hasher == nil) {
		err = errors.New("engine loader returned incomplete engines")
	}
	e.metrics.WorkerEnginesInitialized(err == nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize compute engines: %w", err)
	}

	e.engines = engines
	e.initialized = true
	e.log.Info().Msg("compute engines initialized")
	return engines, nil
}
