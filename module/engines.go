package module

import (
	"context"
	"math/big"

	"github.com/zkpodai/attested-audio/model/bundle"
	"github.com/zkpodai/attested-audio/model/messages"
)

// ProofVerifier checks a zero-knowledge proof against a verifying key, public inputs and
// engine parameters. It is deterministic and side-effect free.
type ProofVerifier interface {
	// Verify returns nil if the proof is valid.
	// All returned errors mean the proof must be considered rejected.
	Verify(ctx context.Context, verifyingKey, proof []byte, publicInputs []bundle.FieldElement, config []byte) error
}

// AudioHasher maps raw audio bytes to a field-element-sized integer.
// It is deterministic and side-effect free.
type AudioHasher interface {
	Hash(ctx context.Context, audio []byte) (*big.Int, error)
}

// SignerRecoverer recovers the address that signed message.
type SignerRecoverer interface {
	// RecoverSigner returns the signer address in its canonical text form.
	// Returns an error wrapping signature.ErrInvalidSignature if no signer can be recovered.
	RecoverSigner(message string, signature string) (string, error)
}

// Player starts playback of an audio container. Every call is independent: it neither
// waits for nor cancels earlier playbacks.
type Player interface {
	Play(audio []byte) error
}

// Engines bundles the engines the compute worker dispatches to.
type Engines struct {
	Verifier ProofVerifier
	Hasher   AudioHasher
}

// EngineLoader initializes the compute engines. The compute worker calls it lazily,
// on its first request, and again after a failed attempt.
type EngineLoader func(ctx context.Context) (*Engines, error)

// ComputeWorker is the isolated execution context running the expensive engine work.
// It is reachable only through messages: requests are submitted, responses and
// context-level faults are delivered on channels.
type ComputeWorker interface {
	Startable
	ReadyDoneAware

	// Submit queues a request without blocking.
	Submit(request messages.WorkerRequest) error

	// Responses delivers one response per handled request, in handling order.
	Responses() <-chan messages.WorkerResponse

	// Faults delivers faults of the worker that are not tied to a request.
	Faults() <-chan messages.WorkerFault
}
