// Package config loads the configuration of the attest command from defaults, an optional
// config file, ATTEST_* environment variables and command line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zkpodai/attested-audio/engine/worker"
)

// EnvPrefix prefixes the environment variables overriding configuration keys, e.g.
// ATTEST_LOG_LEVEL overrides log.level.
const EnvPrefix = "ATTEST"

const (
	// All constant strings are used for CLI flag names.
	bundleFlag              = "bundle"
	logLevelFlag            = "log-level"
	logFormatFlag           = "log-format"
	workerInboxCapacityFlag = "worker-inbox-capacity"
	engineCacheSizeFlag     = "engine-cache-size"
	playerCommandFlag       = "player-command"
	signatureAllowlistFlag  = "signature-allowlist"
	metricsTextfileFlag     = "metrics-textfile"
)

// keys maps every flag to its configuration key.
var keys = map[string]string{
	bundleFlag:              "bundle",
	logLevelFlag:            "log.level",
	logFormatFlag:           "log.format",
	workerInboxCapacityFlag: "worker.inbox_capacity",
	engineCacheSizeFlag:     "engine.cache_size",
	playerCommandFlag:       "player.command",
	signatureAllowlistFlag:  "signature.allowlist",
	metricsTextfileFlag:     "metrics.textfile",
}

const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

type Config struct {
	// Bundle is the path of the attestation bundle (.json or .cbor).
	Bundle    string          `mapstructure:"bundle"`
	Log       LogConfig       `mapstructure:"log"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Player    PlayerConfig    `mapstructure:"player"`
	Signature SignatureConfig `mapstructure:"signature"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WorkerConfig struct {
	InboxCapacity int `mapstructure:"inbox_capacity"`
}

type EngineConfig struct {
	// CacheSize bounds the memoized proof results and audio hashes. Zero disables memoization.
	CacheSize int `mapstructure:"cache_size"`
}

type PlayerConfig struct {
	// Command is the program and arguments receiving the WAV container on stdin.
	// Playback is discarded when empty.
	Command []string `mapstructure:"command"`
}

type SignatureConfig struct {
	// Allowlist restricts accepted signers. Any recovered signer is accepted when empty.
	Allowlist []string `mapstructure:"allowlist"`
}

type MetricsConfig struct {
	// Textfile is where metrics are written on exit, in the Prometheus text format.
	Textfile string `mapstructure:"textfile"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  zerolog.InfoLevel.String(),
			Format: LogFormatConsole,
		},
		Worker: WorkerConfig{
			InboxCapacity: worker.DefaultInboxCapacity,
		},
		Engine: EngineConfig{
			CacheSize: 16,
		},
	}
}

// InitializeFlags registers the configuration flags, with their default values, on flags.
func InitializeFlags(flags *pflag.FlagSet) {
	defaults := Default()
	flags.String(bundleFlag, defaults.Bundle, "path of the attestation bundle (.json or .cbor)")
	flags.String(logLevelFlag, defaults.Log.Level, "log level (trace, debug, info, warn, error)")
	flags.String(logFormatFlag, defaults.Log.Format, "log format (console or json)")
	flags.Int(workerInboxCapacityFlag, defaults.Worker.InboxCapacity, "maximum number of requests queued for the compute worker")
	flags.Int(engineCacheSizeFlag, defaults.Engine.CacheSize, "number of memoized proof results and audio hashes, 0 disables memoization")
	flags.StringSlice(playerCommandFlag, defaults.Player.Command, "command receiving the WAV container on stdin, e.g. aplay,-q,- (playback is discarded when empty)")
	flags.StringSlice(signatureAllowlistFlag, defaults.Signature.Allowlist, "addresses allowed to sign provenance messages (any signer is accepted when empty)")
	flags.String(metricsTextfileFlag, defaults.Metrics.Textfile, "file metrics are written to on exit")
}

// Load builds the configuration. configFile may be empty. flags may be nil; otherwise every
// flag registered by InitializeFlags overrides its key when set on the command line.
func Load(v *viper.Viper, flags *pflag.FlagSet, configFile string) (*Config, error) {
	defaults := Default()
	v.SetDefault("bundle", defaults.Bundle)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("worker.inbox_capacity", defaults.Worker.InboxCapacity)
	v.SetDefault("engine.cache_size", defaults.Engine.CacheSize)
	v.SetDefault("player.command", defaults.Player.Command)
	v.SetDefault("signature.allowlist", defaults.Signature.Allowlist)
	v.SetDefault("metrics.textfile", defaults.Metrics.Textfile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", configFile, err)
		}
	}

	if flags != nil {
		for flagName, key := range keys {
			flag := flags.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("could not bind flag %s: %w", flagName, err)
			}
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("could not decode configuration: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &conf, nil
}

// Validate reports every invalid value.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("log level: %w", err))
	}
	if c.Log.Format != LogFormatConsole && c.Log.Format != LogFormatJSON {
		result = multierror.Append(result, fmt.Errorf("log format must be %s or %s, got %q", LogFormatConsole, LogFormatJSON, c.Log.Format))
	}
	if c.Worker.InboxCapacity < 1 {
		result = multierror.Append(result, errors.New("worker inbox capacity must be positive"))
	}
	if c.Engine.CacheSize < 0 {
		result = multierror.Append(result, errors.New("engine cache size must not be negative"))
	}

	return result.ErrorOrNil()
}
