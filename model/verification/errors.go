package verification

import (
	"errors"
	"fmt"

	"github.com/zkpodai/attested-audio/model/messages"
)

// ErrWorkerTerminated is returned while waiting on a request that was dropped because the
// compute worker shut down. It is never recorded as the state's error.
var ErrWorkerTerminated = errors.New("compute worker terminated before responding")

// EngineVerificationFailure indicates that the proof engine rejected the proof.
type EngineVerificationFailure struct {
	Msg string
}

func NewEngineVerificationFailure(msg string) error {
	return EngineVerificationFailure{Msg: msg}
}

func (e EngineVerificationFailure) Error() string {
	return fmt.Sprintf("proof verification failed: %s", e.Msg)
}

// IsEngineVerificationFailure returns whether err is an EngineVerificationFailure
func IsEngineVerificationFailure(err error) bool {
	var e EngineVerificationFailure
	return errors.As(err, &e)
}

// EngineHashFault indicates that the hash engine raised while computing the audio hash.
type EngineHashFault struct {
	Msg string
}

func NewEngineHashFault(msg string) error {
	return EngineHashFault{Msg: msg}
}

func (e EngineHashFault) Error() string {
	return fmt.Sprintf("audio hash failed: %s", e.Msg)
}

// IsEngineHashFault returns whether err is an EngineHashFault
func IsEngineHashFault(err error) bool {
	var e EngineHashFault
	return errors.As(err, &e)
}

// LocalHashMismatch indicates that the hash engine succeeded but the computed hash is not
// the one committed to by the last public input. This is a local policy failure, not an
// engine failure.
type LocalHashMismatch struct {
	Computed string
	Expected string
}

func (e LocalHashMismatch) Error() string {
	return fmt.Sprintf("hash mismatch: computed %s, expected %s", e.Computed, e.Expected)
}

// IsLocalHashMismatch returns whether err is a LocalHashMismatch
func IsLocalHashMismatch(err error) bool {
	var e LocalHashMismatch
	return errors.As(err, &e)
}

// SignatureVerificationFailure indicates that the signer of the signature at Index could
// not be recovered.
type SignatureVerificationFailure struct {
	Index   int
	Message string
	Err     error
}

func (e SignatureVerificationFailure) Error() string {
	return fmt.Sprintf("signature %d on message %q: %s", e.Index, e.Message, e.Err.Error())
}

func (e SignatureVerificationFailure) Unwrap() error {
	return e.Err
}

// IsSignatureVerificationFailure returns whether err is a SignatureVerificationFailure
func IsSignatureVerificationFailure(err error) bool {
	var e SignatureVerificationFailure
	return errors.As(err, &e)
}

// WorkerTransportFailure indicates a malformed or unrecognized worker response, or a
// context-level fault of the worker.
type WorkerTransportFailure struct {
	err error
}

func NewWorkerTransportFailure(err error) error {
	return WorkerTransportFailure{err}
}

func NewWorkerTransportFailuref(msg string, args ...interface{}) error {
	return WorkerTransportFailure{fmt.Errorf(msg, args...)}
}

func (e WorkerTransportFailure) Error() string { return e.err.Error() }
func (e WorkerTransportFailure) Unwrap() error { return e.err }

// IsWorkerTransportFailure returns whether err is a WorkerTransportFailure
func IsWorkerTransportFailure(err error) bool {
	var e WorkerTransportFailure
	return errors.As(err, &e)
}

// PlaybackFailure indicates that the audio could not be decoded or playback could not start.
type PlaybackFailure struct {
	err error
}

func NewPlaybackFailure(err error) error {
	return PlaybackFailure{err}
}

func (e PlaybackFailure) Error() string { return fmt.Sprintf("playback failed: %v", e.err) }
func (e PlaybackFailure) Unwrap() error { return e.err }

// IsPlaybackFailure returns whether err is a PlaybackFailure
func IsPlaybackFailure(err error) bool {
	var e PlaybackFailure
	return errors.As(err, &e)
}

// Message returns the text recorded as the state's error for err. Engine failures and
// worker faults are recorded with the message they carried; any other error with its
// own text.
func Message(err error) string {
	var verifyErr EngineVerificationFailure
	if errors.As(err, &verifyErr) {
		return verifyErr.Msg
	}
	var hashErr EngineHashFault
	if errors.As(err, &hashErr) {
		return hashErr.Msg
	}
	var fault messages.WorkerFault
	if errors.As(err, &fault) {
		return fault.Err.Error()
	}
	return err.Error()
}
