package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zkpodai/attested-audio/model/bundle"
	"github.com/zkpodai/attested-audio/model/messages"
	"github.com/zkpodai/attested-audio/model/verification"
	"github.com/zkpodai/attested-audio/module/util"
)

// actionFor maps the worker-bound stages to their request action.
func actionFor(stage verification.Stage) messages.Action {
	if stage == verification.StageHash {
		return messages.ActionHash
	}
	return messages.ActionVerify
}

// onWorkerStage sends a proof or hash request to the compute worker, unless the stage is
// already verified.
func (e *Engine) onWorkerStage(cmd command) {
	if e.state.Verified(cmd.stage) {
		e.skip(cmd)
		return
	}

	e.state.ClearError()

	e.lastRequestID++
	request := messages.WorkerRequest{
		ID:     e.lastRequestID,
		Action: actionFor(cmd.stage),
	}

	if err := e.worker.Submit(request); err != nil {
		e.fail(cmd, verification.NewWorkerTransportFailuref("could not submit %s request: %w", request.Action, err))
		return
	}

	e.pending[request.ID] = cmd
	e.log.Debug().
		Uint64("request_id", uint64(request.ID)).
		Str("action", request.Action.String()).
		Msg("request sent to compute worker")
}

// onResponse resolves the request answered by response. A failed response that cannot be
// attributed to a request fails every outstanding request; an unattributable success is
// stale and dropped.
func (e *Engine) onResponse(response messages.WorkerResponse) {
	lg := e.log.With().
		Uint64("request_id", uint64(response.ID)).
		Str("action", response.Action.String()).
		Logger()

	cmd, ok := e.pending[response.ID]
	if !ok {
		if response.Failed() {
			lg.Warn().Str("error", response.FailureMessage()).Msg("uncorrelated failure from compute worker")
			e.failAll(verification.NewWorkerTransportFailure(errors.New(response.FailureMessage())))
			return
		}
		lg.Warn().Msg("dropping stale response from compute worker")
		return
	}
	delete(e.pending, response.ID)

	if response.Error != nil {
		switch cmd.stage {
		case verification.StageProof:
			e.fail(cmd, verification.NewEngineVerificationFailure(response.Error.Message))
		default:
			e.fail(cmd, verification.NewEngineHashFault(response.Error.Message))
		}
		return
	}
	if response.Failed() || response.Action != actionFor(cmd.stage) {
		e.fail(cmd, verification.NewWorkerTransportFailuref("unexpected response action %q for %s request", response.Action, cmd.stage))
		return
	}

	switch cmd.stage {
	case verification.StageProof:
		e.onProofVerified(cmd)
	case verification.StageHash:
		e.onHashComputed(cmd, response.Result)
	}
}

// onFault fails every outstanding request: a worker fault carries no request id.
func (e *Engine) onFault(fault messages.WorkerFault) {
	e.log.Error().Err(fault.Err).Int("outstanding_requests", len(e.pending)).Msg("compute worker fault")
	e.failAll(verification.NewWorkerTransportFailure(fault))
}

func (e *Engine) failAll(err error) {
	if len(e.pending) == 0 {
		e.state.SetError(verification.Message(err))
		return
	}
	for id, cmd := range e.pending {
		delete(e.pending, id)
		e.fail(cmd, err)
	}
}

func (e *Engine) onProofVerified(cmd command) {
	// a concurrent request may have verified the proof already
	if !e.state.ProofVerified {
		e.state.MarkVerified(verification.StageProof)
		e.state.AppendProgress(fmt.Sprintf(
			"Proof verification successful. Public inputs are: [%s]",
			strings.Join(e.bundle.PaddedPublicInputs(), ", "),
		))
	}
	e.log.Info().Msg("proof verified")
	e.succeed(cmd)
}

// onHashComputed compares the hash computed by the worker with the last public input.
// Both sides are normalized to zero-padded lowercase hex.
func (e *Engine) onHashComputed(cmd command, result string) {
	expected, err := e.bundle.ExpectedHash()
	if err != nil {
		e.fail(cmd, err)
		return
	}

	if bundle.PadHex(result) != expected.PaddedHex() {
		e.fail(cmd, verification.LocalHashMismatch{
			Computed: result,
			Expected: expected.PaddedHex(),
		})
		return
	}

	if !e.state.HashVerified {
		e.state.MarkVerified(verification.StageHash)
		e.state.AppendProgress("Hash: " + result)
	}
	e.log.Info().Str("hash", result).Msg("audio hash verified")
	e.succeed(cmd)
}

// onSignatureVerification recovers the signer of every signature in stored order, on the
// event loop. Iteration stops at the first failure; lines of earlier signatures are kept.
// No resumption state is kept: a retry starts from the first signature.
func (e *Engine) onSignatureVerification(cmd command) {
	if e.state.SignaturesVerified {
		e.skip(cmd)
		return
	}

	progress := util.LogProgress(e.log, "signature verification", len(e.bundle.Signatures))
	for i, signed := range e.bundle.Signatures {
		address, err := e.recoverer.RecoverSigner(signed.Message, signed.Signature)
		if err != nil {
			e.fail(cmd, verification.SignatureVerificationFailure{
				Index:   i,
				Message: signed.Message,
				Err:     err,
			})
			return
		}

		e.state.AppendProgress(fmt.Sprintf("Verified signature from %s on message %s", address, signed.Message))
		e.log.Debug().Str("address", address).Int("index", i).Msg("signature verified")
		progress()
	}

	e.state.MarkVerified(verification.StageSignatures)
	e.succeed(cmd)
}

// onPlayback starts a new playback. There is no de-duplication: every call plays.
func (e *Engine) onPlayback(cmd command) {
	if err := e.player.Play(e.bundle.CombinedWav); err != nil {
		e.fail(cmd, verification.NewPlaybackFailure(err))
		return
	}
	e.metrics.PlaybackStarted()
	e.succeed(cmd)
}
