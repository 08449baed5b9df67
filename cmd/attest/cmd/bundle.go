package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/zkpodai/attested-audio/audio"
	"github.com/zkpodai/attested-audio/crypto/zk"
	"github.com/zkpodai/attested-audio/model/bundle"
)

var (
	flagConvertTo  string
	flagConvertOut string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Inspect and convert attestation bundles",
}

var bundleInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the content of the bundle without verifying it",
	Args:  cobra.NoArgs,
	RunE:  runBundleInspect,
}

var bundleConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Re-encode the bundle as JSON or CBOR",
	Args:  cobra.NoArgs,
	RunE:  runBundleConvert,
}

func init() {
	bundleConvertCmd.Flags().StringVar(&flagConvertTo, "to", string(bundle.EncodingCBOR), "target encoding (json or cbor)")
	bundleConvertCmd.Flags().StringVar(&flagConvertOut, "out", "", "output file")
	_ = bundleConvertCmd.MarkFlagRequired("out")

	bundleCmd.AddCommand(bundleInspectCmd, bundleConvertCmd)
	rootCmd.AddCommand(bundleCmd)
}

func runBundleInspect(cmd *cobra.Command, _ []string) error {
	if err := requireBundle(); err != nil {
		return err
	}
	b, err := bundle.Load(conf.Bundle)
	if err != nil {
		return err
	}

	printBundle(cmd.OutOrStdout(), b)
	return nil
}

func printBundle(w io.Writer, b *bundle.Bundle) {
	fmt.Fprintf(w, "verifying key: %s\n", humanSize(len(b.VerifyingKey)))
	fmt.Fprintf(w, "proof:         %s\n", humanSize(len(b.Proof)))

	params, err := zk.ParseParams(b.Config)
	if err != nil {
		fmt.Fprintf(w, "engine:        invalid (%v)\n", err)
	} else {
		fmt.Fprintf(w, "engine:        %s\n", params)
	}

	fmt.Fprintf(w, "public inputs: %d\n", len(b.PublicInputs))
	for i, input := range b.PaddedPublicInputs() {
		fmt.Fprintf(w, "  [%d] %s\n", i, input)
	}
	if expected, err := b.ExpectedHash(); err == nil {
		fmt.Fprintf(w, "expected hash: %s\n", expected.Hex())
	}

	clip, err := audio.Decode(b.CombinedWav)
	if err != nil {
		fmt.Fprintf(w, "audio:         %s, invalid (%v)\n", humanSize(len(b.CombinedWav)), err)
	} else {
		fmt.Fprintf(w, "audio:         %s, %s\n", humanSize(clip.Size), clip)
	}

	fmt.Fprintf(w, "signatures:    %d\n", len(b.Signatures))
	for i, signed := range b.Signatures {
		fmt.Fprintf(w, "  [%d] %q\n", i, signed.Message)
	}
}

func humanSize(n int) string {
	return units.HumanSize(float64(n))
}

func runBundleConvert(cmd *cobra.Command, _ []string) (err error) {
	if err := requireBundle(); err != nil {
		return err
	}
	enc, err := bundle.ParseEncoding(flagConvertTo)
	if err != nil {
		return err
	}

	b, err := bundle.Load(conf.Bundle)
	if err != nil {
		return err
	}

	f, err := os.Create(flagConvertOut)
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("could not close output file: %w", closeErr)
		}
	}()

	if err := b.Encode(f, enc); err != nil {
		return err
	}

	log.Info().
		Str("from", conf.Bundle).
		Str("to", flagConvertOut).
		Str("encoding", string(enc)).
		Msg("bundle converted")
	return nil
}
