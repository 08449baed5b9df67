package orchestrator

import (
	"context"
	"sync"

	"github.com/zkpodai/attested-audio/model/verification"
)

// Future is the pending result of one stage request.
type Future struct {
	stage      verification.Stage
	done       chan struct{}
	once       sync.Once
	outcome    verification.Outcome
	terminated <-chan struct{}
}

func newFuture(stage verification.Stage, terminated <-chan struct{}) *Future {
	return &Future{
		stage:      stage,
		done:       make(chan struct{}),
		terminated: terminated,
	}
}

func (f *Future) resolve(outcome verification.Outcome) {
	f.once.Do(func() {
		f.outcome = outcome
		close(f.done)
	})
}

// Stage returns the stage the future was requested for.
func (f *Future) Stage() verification.Stage {
	return f.stage
}

// Done returns a channel that is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the outcome of the request is available. A failed stage is reported
// through the outcome, not the error.
// Expected errors:
//   - verification.ErrWorkerTerminated if the orchestrator shut down before the request resolved
//   - the context's error if ctx ends first
func (f *Future) Wait(ctx context.Context) (verification.Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, nil
	case <-f.terminated:
		select {
		case <-f.done:
			return f.outcome, nil
		default:
		}
		return verification.Outcome{}, verification.ErrWorkerTerminated
	case <-ctx.Done():
		return verification.Outcome{}, ctx.Err()
	}
}
