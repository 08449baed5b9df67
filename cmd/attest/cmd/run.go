package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zkpodai/attested-audio/audio"
	"github.com/zkpodai/attested-audio/crypto/hash"
	"github.com/zkpodai/attested-audio/crypto/signature"
	"github.com/zkpodai/attested-audio/crypto/zk"
	"github.com/zkpodai/attested-audio/engine/orchestrator"
	"github.com/zkpodai/attested-audio/engine/worker"
	"github.com/zkpodai/attested-audio/model/bundle"
	"github.com/zkpodai/attested-audio/model/verification"
	"github.com/zkpodai/attested-audio/module"
	"github.com/zkpodai/attested-audio/module/irrecoverable"
	"github.com/zkpodai/attested-audio/module/metrics"
	"github.com/zkpodai/attested-audio/module/util"
)

// action is run once the orchestrator is ready. Its context ends on SIGINT or SIGTERM.
type action func(ctx context.Context, o *orchestrator.Engine) error

// runOrchestrator loads the bundle, starts the orchestrator with its compute worker, runs
// act and shuts everything down again, whatever the outcome of act.
func runOrchestrator(parent context.Context, act action) (err error) {
	if err := requireBundle(); err != nil {
		return err
	}

	b, err := bundle.Load(conf.Bundle)
	if err != nil {
		return err
	}

	// tags every log line of this run
	log := log.With().Str("run_id", uuid.New().String()).Logger()
	log.Info().
		Str("bundle", conf.Bundle).
		Int("public_inputs", len(b.PublicInputs)).
		Int("signatures", len(b.Signatures)).
		Msg("bundle loaded")

	registry := prometheus.NewRegistry()
	collector := metrics.NewVerificationCollector(registry)
	defer func() {
		if conf.Metrics.Textfile == "" {
			return
		}
		if writeErr := metrics.WriteTextfile(conf.Metrics.Textfile, registry); writeErr != nil {
			err = multierror.Append(err, writeErr).ErrorOrNil()
		}
	}()

	player, err := newPlayer(log, conf.Player.Command)
	if err != nil {
		return err
	}

	o, err := newOrchestrator(log, collector, b, player)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
	o.Start(signalerCtx)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := util.WaitError(errChan, o.Done()); err != nil {
			return fmt.Errorf("orchestrator failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// ending the action shuts the orchestrator down
		defer cancel()
		select {
		case <-o.Ready():
		case <-gCtx.Done():
			return nil
		}
		// the action also ends if the orchestrator shuts down on its own
		actCtx, actCancel := util.WithDone(gCtx, o.Done())
		defer actCancel()
		err := act(actCtx, o)
		if errors.Is(err, util.ErrChannelClosed) || errors.Is(err, verification.ErrWorkerTerminated) {
			// reported by the other routine if the shutdown was caused by an error
			return nil
		}
		return err
	})

	err = g.Wait()
	<-o.Done()
	if errors.Is(err, context.Canceled) || sigCtx.Err() != nil {
		log.Info().Msg("interrupted")
		return nil
	}

	if w, ok := player.(playbackWaiter); ok {
		log.Debug().Msg("waiting for playback to finish")
		w.Wait()
	}
	return err
}

// playbackWaiter is implemented by players whose playbacks outlive Play.
type playbackWaiter interface {
	Wait()
}

func newOrchestrator(log zerolog.Logger, collector module.VerificationMetrics, b *bundle.Bundle, player module.Player) (*orchestrator.Engine, error) {
	w, err := worker.New(log, collector, b, engineLoader(log, conf.Engine.CacheSize), conf.Worker.InboxCapacity)
	if err != nil {
		return nil, fmt.Errorf("could not create compute worker: %w", err)
	}

	recoverer, err := newRecoverer(conf.Signature.Allowlist)
	if err != nil {
		return nil, err
	}

	return orchestrator.New(log, collector, b, w, recoverer, player)
}

// engineLoader builds the proof and hash engines. It runs on the compute worker, on its
// first request.
func engineLoader(log zerolog.Logger, cacheSize int) module.EngineLoader {
	return func(ctx context.Context) (*module.Engines, error) {
		verifier, err := zk.NewVerifier(log, cacheSize)
		if err != nil {
			return nil, err
		}

		var hasher module.AudioHasher = hash.NewMiMCHasher()
		if cacheSize > 0 {
			hasher, err = hash.NewCachedHasher(hasher, cacheSize)
			if err != nil {
				return nil, err
			}
		}

		return &module.Engines{
			Verifier: verifier,
			Hasher:   hasher,
		}, nil
	}
}

func newRecoverer(allowlist []string) (module.SignerRecoverer, error) {
	recoverer := signature.NewEthRecoverer()
	if len(allowlist) == 0 {
		return recoverer, nil
	}
	allowed, err := signature.NewAllowlistRecoverer(recoverer, allowlist)
	if err != nil {
		return nil, fmt.Errorf("could not create signer allowlist: %w", err)
	}
	return allowed, nil
}

func newPlayer(log zerolog.Logger, command []string) (module.Player, error) {
	if len(command) == 0 {
		return audio.NewDiscardPlayer(log), nil
	}
	player, err := audio.NewCommandPlayer(log, command)
	if err != nil {
		return nil, err
	}
	return player, nil
}
