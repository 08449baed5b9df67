// Package audio decodes and plays the combined recording of an attestation bundle.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-audio/wav"
)

var ErrInvalidContainer = errors.New("not a valid WAV container")

// Clip describes a decoded WAV container.
type Clip struct {
	AudioFormat uint16 // 1 is PCM
	SampleRate  uint32
	Channels    uint16
	BitDepth    uint16
	Duration    time.Duration
	Size        int
}

func (c Clip) String() string {
	return fmt.Sprintf("%d Hz, %d channel(s), %d bit, %s", c.SampleRate, c.Channels, c.BitDepth, c.Duration)
}

// Decode validates a RIFF/WAVE container and reads its format.
func Decode(b []byte) (*Clip, error) {
	decoder := wav.NewDecoder(bytes.NewReader(b))
	if !decoder.IsValidFile() {
		return nil, ErrInvalidContainer
	}

	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("could not read WAV format: %w", err)
	}

	// the RIFF chunk size also counts the format header, so the duration is derived from
	// the length of the PCM data chunk
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("could not find WAV data chunk: %w", err)
	}
	bytesPerSecond := int64(decoder.SampleRate) * int64(decoder.NumChans) * int64(decoder.BitDepth) / 8
	if bytesPerSecond == 0 {
		return nil, fmt.Errorf("%w: zero sample rate, channel count or bit depth", ErrInvalidContainer)
	}
	duration := time.Duration(decoder.PCMLen()) * time.Second / time.Duration(bytesPerSecond)

	return &Clip{
		AudioFormat: decoder.WavAudioFormat,
		SampleRate:  decoder.SampleRate,
		Channels:    decoder.NumChans,
		BitDepth:    decoder.BitDepth,
		Duration:    duration,
		Size:        len(b),
	}, nil
}
