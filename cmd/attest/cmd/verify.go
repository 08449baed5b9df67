package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zkpodai/attested-audio/engine/orchestrator"
	"github.com/zkpodai/attested-audio/model/verification"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the proof, the audio hash and the signatures of the bundle",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	r := newReporter(cmd.OutOrStdout())
	return runOrchestrator(cmd.Context(), func(ctx context.Context, o *orchestrator.Engine) error {
		outcomes, err := o.RunAll(ctx)
		for _, outcome := range outcomes {
			r.outcome(o.State(), outcome)
		}
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}

		if !o.State().AllVerified() {
			return fmt.Errorf("verification incomplete")
		}
		r.printf("%s\n", "bundle verified")
		return nil
	})
}

// newStageCommand builds a command running a single stage.
func newStageCommand(use, short string, request func(*orchestrator.Engine) *orchestrator.Future) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := newReporter(cmd.OutOrStdout())
			return runOrchestrator(cmd.Context(), func(ctx context.Context, o *orchestrator.Engine) error {
				outcome, err := request(o).Wait(ctx)
				if err != nil {
					return err
				}
				r.outcome(o.State(), outcome)
				if outcome.Status == verification.StatusFailed {
					return fmt.Errorf("%s failed: %w", outcome.Stage, outcome.Err)
				}
				return nil
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(
		newStageCommand("proof", "Verify the zero-knowledge proof of the bundle",
			(*orchestrator.Engine).RequestProofVerification),
		newStageCommand("hash", "Check the audio hash against the last public input",
			(*orchestrator.Engine).RequestHashVerification),
		newStageCommand("signatures", "Recover the signers of the provenance signatures",
			(*orchestrator.Engine).RequestSignatureVerification),
		newStageCommand("play", "Play the bundle audio",
			(*orchestrator.Engine).RequestPlayback),
	)
}
