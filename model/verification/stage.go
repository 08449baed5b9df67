package verification

import (
	"fmt"
)

// Stage identifies one independent verification step.
type Stage int

const (
	StageProof Stage = iota + 1
	StageHash
	StageSignatures
	StagePlayback
)

func (s Stage) String() string {
	switch s {
	case StageProof:
		return "proof"
	case StageHash:
		return "hash"
	case StageSignatures:
		return "signatures"
	case StagePlayback:
		return "playback"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Status is how a single invocation of a stage ended.
type Status int

const (
	// StatusSkipped means the stage was already verified and nothing was done.
	StatusSkipped Status = iota + 1
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of one invocation of a stage. Err is set iff Status is StatusFailed.
type Outcome struct {
	Stage  Stage
	Status Status
	Err    error
}

func Skipped(stage Stage) Outcome {
	return Outcome{Stage: stage, Status: StatusSkipped}
}

func Succeeded(stage Stage) Outcome {
	return Outcome{Stage: stage, Status: StatusSucceeded}
}

func Failed(stage Stage, err error) Outcome {
	return Outcome{Stage: stage, Status: StatusFailed, Err: err}
}
