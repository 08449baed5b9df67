// Package hash computes the content hash of attested audio.
package hash

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"github.com/zkpodai/attested-audio/module"
)

// ChunkSize is the number of audio bytes absorbed per field element. One byte less than
// the field element width keeps every chunk below the BN254 scalar field modulus.
const ChunkSize = fr.Bytes - 1

var ErrEmptyAudio = errors.New("audio payload is empty")

// MiMCHasher hashes audio with MiMC over the BN254 scalar field. The circuit producing the
// proof must commit to the same hash. The digest is always a valid field element.
type MiMCHasher struct{}

var _ module.AudioHasher = (*MiMCHasher)(nil)

func NewMiMCHasher() *MiMCHasher {
	return &MiMCHasher{}
}

// Hash splits audio into ChunkSize-byte chunks, left-pads each one to a field element
// and absorbs them in order.
func (h *MiMCHasher) Hash(ctx context.Context, audio []byte) (*big.Int, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	hasher := mimc.NewMiMC()
	var block [fr.Bytes]byte
	for offset := 0; offset < len(audio); offset += ChunkSize {
		// cancellation is checked every 4096 chunks
		if offset%(ChunkSize*4096) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		end := offset + ChunkSize
		if end > len(audio) {
			end = len(audio)
		}
		chunk := audio[offset:end]

		block = [fr.Bytes]byte{}
		copy(block[fr.Bytes-len(chunk):], chunk)
		if _, err := hasher.Write(block[:]); err != nil {
			return nil, fmt.Errorf("could not absorb audio chunk at offset %d: %w", offset, err)
		}
	}

	return new(big.Int).SetBytes(hasher.Sum(nil)), nil
}
