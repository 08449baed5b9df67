package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zkpodai/attested-audio/module"
)

// CommandPlayer plays audio by starting an external command per call, e.g. "aplay -q -",
// and streaming the WAV container into its standard input.
//
// Started processes are not pooled: every call is independent and may overlap with
// earlier playbacks. Wait blocks until all of them have exited.
type CommandPlayer struct {
	log     zerolog.Logger
	name    string
	args    []string
	playing sync.WaitGroup
}

var _ module.Player = (*CommandPlayer)(nil)

// NewCommandPlayer returns a player running command, given as the program followed by
// its arguments.
func NewCommandPlayer(log zerolog.Logger, command []string) (*CommandPlayer, error) {
	parts := command
	if len(parts) == 0 || parts[0] == "" {
		return nil, errors.New("empty player command")
	}
	return &CommandPlayer{
		log:  log.With().Str("component", "player").Str("command", parts[0]).Logger(),
		name: parts[0],
		args: parts[1:],
	}, nil
}

// Play validates the container and starts the player process. It returns once the process
// has started; the process is reaped in the background.
func (p *CommandPlayer) Play(audio []byte) error {
	clip, err := Decode(audio)
	if err != nil {
		return err
	}

	cmd := exec.Command(p.name, p.args...)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("could not start player: %w", err)
	}

	log := p.log.With().Int("pid", cmd.Process.Pid).Logger()
	log.Info().Str("clip", clip.String()).Msg("playback started")

	p.playing.Add(1)
	go func() {
		defer p.playing.Done()
		if err := cmd.Wait(); err != nil {
			log.Warn().Err(err).Msg("player exited with error")
			return
		}
		log.Debug().Msg("playback finished")
	}()

	return nil
}

// Wait blocks until every playback started so far has finished.
func (p *CommandPlayer) Wait() {
	p.playing.Wait()
}

// DiscardPlayer validates the container and drops it. It is used when no audio output
// is configured.
type DiscardPlayer struct {
	log zerolog.Logger
}

var _ module.Player = (*DiscardPlayer)(nil)

func NewDiscardPlayer(log zerolog.Logger) *DiscardPlayer {
	return &DiscardPlayer{
		log: log.With().Str("component", "player").Logger(),
	}
}

func (p *DiscardPlayer) Play(audio []byte) error {
	clip, err := Decode(audio)
	if err != nil {
		return err
	}
	p.log.Info().Str("clip", clip.String()).Msg("no audio output configured, playback discarded")
	return nil
}
