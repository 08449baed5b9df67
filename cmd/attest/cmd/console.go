package cmd

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/atomic"

	"github.com/zkpodai/attested-audio/engine/orchestrator"
	"github.com/zkpodai/attested-audio/model/verification"
)

const consoleHelp = `commands:
  verify       verify the zero-knowledge proof
  hash         check the audio hash against the last public input
  signatures   recover the signers of the provenance signatures
  play         play the bundle audio
  all          verify proof, hash and signatures in order
  status       show the verification state
  help         show this help
  quit         leave the console
`

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run verification stages interactively, one command per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOrchestrator(cmd.Context(), func(ctx context.Context, o *orchestrator.Engine) error {
			c := newConsole(o, cmd.OutOrStdout())
			return c.run(ctx, cmd.InOrStdin())
		})
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

// console reads commands line by line. Stages run in the background while further
// commands are read; proof and hash requests are refused while one is in flight.
type console struct {
	o        *orchestrator.Engine
	reporter *reporter
	busy     *atomic.Int32
	running  sync.WaitGroup
}

func newConsole(o *orchestrator.Engine, out io.Writer) *console {
	return &console{
		o:        o,
		reporter: newReporter(out),
		busy:     atomic.NewInt32(0),
	}
}

// run executes commands read from in until quit, the end of in, or ctx ending. Stages still
// running are waited for before returning.
func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	defer c.running.Wait()

	c.reporter.printf("%s", consoleHelp)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return ctx.Err()
				}
			}
			if quit := c.execute(ctx, line); quit {
				return nil
			}
		}
	}
}

// execute runs one command line and reports whether the console should exit.
func (c *console) execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch strings.ToLower(fields[0]) {
	case "verify", "proof":
		c.startWorkerBound(ctx, func() {
			c.await(ctx, c.o.RequestProofVerification())
		})
	case "hash":
		c.startWorkerBound(ctx, func() {
			c.await(ctx, c.o.RequestHashVerification())
		})
	case "signatures", "sigs":
		c.start(func() {
			c.await(ctx, c.o.RequestSignatureVerification())
		})
	case "play":
		c.start(func() {
			c.await(ctx, c.o.RequestPlayback())
		})
	case "all":
		c.startWorkerBound(ctx, func() {
			outcomes, err := c.o.RunAll(ctx)
			for _, outcome := range outcomes {
				c.reporter.outcome(c.o.State(), outcome)
			}
			if err == nil {
				return
			}
			// a failed stage has been reported with its outcome
			if len(outcomes) == 0 || outcomes[len(outcomes)-1].Status != verification.StatusFailed {
				c.reporter.printf("error: %s\n", verification.Message(err))
			}
		})
	case "status":
		c.reporter.status(c.o.State())
	case "help":
		c.reporter.printf("%s", consoleHelp)
	case "quit", "exit":
		return true
	default:
		c.reporter.printf("unknown command %q, type help for the list of commands\n", fields[0])
	}
	return false
}

// startWorkerBound starts f unless a proof or hash request is already in flight.
func (c *console) startWorkerBound(ctx context.Context, f func()) {
	if c.busy.Load() > 0 || c.o.State().Loading {
		c.reporter.printf("%s\n", "busy: a verification is in progress")
		return
	}

	c.busy.Inc()
	c.start(func() {
		defer c.busy.Dec()
		f()
	})
}

func (c *console) start(f func()) {
	c.running.Add(1)
	go func() {
		defer c.running.Done()
		f()
	}()
}

func (c *console) await(ctx context.Context, future *orchestrator.Future) {
	outcome, err := future.Wait(ctx)
	if err != nil {
		c.reporter.printf("%s: %s\n", future.Stage(), verification.Message(err))
		return
	}
	c.reporter.outcome(c.o.State(), outcome)
}
