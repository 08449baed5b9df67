package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/zkpodai/attested-audio/model/verification"
)

// reporter prints verification results. Progress lines are printed once each, in the
// order they were recorded. It is safe for concurrent use.
type reporter struct {
	mu      sync.Mutex
	out     io.Writer
	printed int
}

func newReporter(out io.Writer) *reporter {
	return &reporter{out: out}
}

func (r *reporter) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// outcome prints the progress lines recorded since the last call, followed by the result
// of one stage invocation.
func (r *reporter) outcome(state verification.State, outcome verification.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.progressLocked(state)

	switch outcome.Status {
	case verification.StatusSkipped:
		fmt.Fprintf(r.out, "%s: already verified\n", outcome.Stage)
	case verification.StatusFailed:
		fmt.Fprintf(r.out, "%s: failed: %s\n", outcome.Stage, verification.Message(outcome.Err))
	default:
		if outcome.Stage == verification.StagePlayback {
			fmt.Fprintf(r.out, "%s: started\n", outcome.Stage)
			return
		}
		fmt.Fprintf(r.out, "%s: verified\n", outcome.Stage)
	}
}

func (r *reporter) progressLocked(state verification.State) {
	for ; r.printed < len(state.Progress); r.printed++ {
		fmt.Fprintln(r.out, state.Progress[r.printed])
	}
}

// status prints the stage flags and the current error.
func (r *reporter) status(state verification.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "proof verified:      %t\n", state.ProofVerified)
	fmt.Fprintf(r.out, "hash verified:       %t\n", state.HashVerified)
	fmt.Fprintf(r.out, "signatures verified: %t\n", state.SignaturesVerified)
	if state.Loading {
		fmt.Fprintln(r.out, "verification in progress")
	}
	if state.HasError {
		fmt.Fprintf(r.out, "error: %s\n", state.Error)
	}
}
