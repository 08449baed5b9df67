package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zkpodai/attested-audio/config"
)

var (
	flagConfigFile string

	conf *config.Config
	log  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "attest",
	Short: "Verify attested audio bundles",
	Long: `Verify that a recorded audio artifact is attested: its zero-knowledge proof validates,
its content hash matches the proof's last public input and its provenance signatures
recover to signer addresses.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "config file (yaml, json or toml)")
	config.InitializeFlags(rootCmd.PersistentFlags())
}

func initConfig(cmd *cobra.Command, _ []string) error {
	var err error
	conf, err = config.Load(viper.New(), cmd.Flags(), flagConfigFile)
	if err != nil {
		return err
	}

	log, err = newLogger(conf.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return nil
}

func newLogger(c config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level: %w", err)
	}

	if c.Format == config.LogFormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// requireBundle fails when no bundle path is configured.
func requireBundle() error {
	if conf.Bundle == "" {
		return fmt.Errorf("no bundle given: use --bundle or ATTEST_BUNDLE")
	}
	return nil
}
