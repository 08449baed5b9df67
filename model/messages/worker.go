package messages

import (
	"fmt"
)

// Action tags a request to the compute worker and the matching success response.
type Action string

const (
	// ActionVerify asks the worker to verify the bundle's proof.
	ActionVerify Action = "VERIFY"
	// ActionHash asks the worker to hash the bundle's audio.
	ActionHash Action = "HASH"
)

// Valid reports whether a is one of the recognized action tags.
func (a Action) Valid() bool {
	return a == ActionVerify || a == ActionHash
}

func (a Action) String() string {
	return string(a)
}

// RequestID correlates a worker response with the request that caused it.
// Zero is never assigned to a request; a response carrying it is uncorrelated.
type RequestID uint64

// WorkerRequest is sent from the orchestrator to the compute worker. The bundle itself
// is not part of the message: the worker holds its own copy.
type WorkerRequest struct {
	ID     RequestID `json:"id"`
	Action Action    `json:"action"`
}

// ErrorPayload carries the message of a failed request.
type ErrorPayload struct {
	Message string `json:"message"`
}

// WorkerResponse is sent from the compute worker to the orchestrator.
//
//   - VERIFY success: {ID, Action: VERIFY}
//   - HASH success:   {ID, Action: HASH, Result: lowercase unpadded hex}
//   - failure:        {ID, Error: {Message}} with no action tag
type WorkerResponse struct {
	ID     RequestID     `json:"id,omitempty"`
	Action Action        `json:"action,omitempty"`
	Result string        `json:"result,omitempty"`
	Error  *ErrorPayload `json:"error,omitempty"`
}

// Failed reports whether the response must be treated as a failure: it carries an
// error, or it lacks a recognized action tag.
func (r WorkerResponse) Failed() bool {
	return r.Error != nil || !r.Action.Valid()
}

// FailureMessage returns the human-readable reason of a failed response.
func (r WorkerResponse) FailureMessage() string {
	if r.Error != nil {
		return r.Error.Message
	}
	return fmt.Sprintf("unrecognized worker response action %q", r.Action)
}

// NewVerifyResponse builds the success response of a VERIFY request.
func NewVerifyResponse(id RequestID) WorkerResponse {
	return WorkerResponse{ID: id, Action: ActionVerify}
}

// NewHashResponse builds the success response of a HASH request.
func NewHashResponse(id RequestID, hash string) WorkerResponse {
	return WorkerResponse{ID: id, Action: ActionHash, Result: hash}
}

// NewErrorResponse builds a failure response for the request with the given id.
func NewErrorResponse(id RequestID, err error) WorkerResponse {
	return WorkerResponse{ID: id, Error: &ErrorPayload{Message: err.Error()}}
}

// WorkerFault is an execution-context-level fault of the worker, delivered outside of the
// normal response shape and unrelated to a specific request.
type WorkerFault struct {
	Err error
}

func (f WorkerFault) Error() string {
	return fmt.Sprintf("compute worker fault: %v", f.Err)
}

func (f WorkerFault) Unwrap() error {
	return f.Err
}
