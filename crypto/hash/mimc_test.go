package hash

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	mockmodule "github.com/zkpodai/attested-audio/module/mock"
)

func TestMiMCHasher_Deterministic(t *testing.T) {
	hasher := NewMiMCHasher()
	audio := bytes.Repeat([]byte("RIFF"), 100)

	first, err := hasher.Hash(context.Background(), audio)
	require.NoError(t, err)
	second, err := hasher.Hash(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Cmp(second))

	other, err := hasher.Hash(context.Background(), append(audio, 0x01))
	require.NoError(t, err)
	assert.NotEqual(t, 0, first.Cmp(other))
}

// a payload shorter than one chunk is absorbed as a single left-padded block
func TestMiMCHasher_SingleChunk(t *testing.T) {
	audio := []byte{0x01, 0x02, 0x03}

	var block [fr.Bytes]byte
	copy(block[fr.Bytes-len(audio):], audio)
	reference := mimc.NewMiMC()
	_, err := reference.Write(block[:])
	require.NoError(t, err)
	expected := new(big.Int).SetBytes(reference.Sum(nil))

	actual, err := NewMiMCHasher().Hash(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, 0, expected.Cmp(actual))
}

func TestMiMCHasher_Empty(t *testing.T) {
	_, err := NewMiMCHasher().Hash(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyAudio)
}

func TestMiMCHasher_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMiMCHasher().Hash(ctx, []byte{1})
	require.ErrorIs(t, err, context.Canceled)
}

// every digest is a canonical element of the scalar field
func TestMiMCHasher_DigestInField(t *testing.T) {
	hasher := NewMiMCHasher()
	rapid.Check(t, func(t *rapid.T) {
		audio := rapid.SliceOfN(rapid.Byte(), 1, 512).Draw(t, "audio")
		digest, err := hasher.Hash(context.Background(), audio)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if digest.Cmp(fr.Modulus()) >= 0 {
			t.Fatalf("digest %s is not below the field modulus", digest)
		}
	})
}

func TestCachedHasher(t *testing.T) {
	audio := []byte("audio")
	inner := mockmodule.NewAudioHasher(t)
	inner.On("Hash", mock.Anything, audio).Return(big.NewInt(255), nil).Once()

	cached, err := NewCachedHasher(inner, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		digest, err := cached.Hash(context.Background(), audio)
		require.NoError(t, err)
		assert.Equal(t, int64(255), digest.Int64())

		// mutating a returned digest does not corrupt the cache
		digest.SetInt64(0)
	}
}

func TestCachedHasher_FailuresNotCached(t *testing.T) {
	audio := []byte("audio")
	inner := mockmodule.NewAudioHasher(t)
	inner.On("Hash", mock.Anything, audio).Return(nil, assert.AnError).Once()
	inner.On("Hash", mock.Anything, audio).Return(big.NewInt(7), nil).Once()

	cached, err := NewCachedHasher(inner, 4)
	require.NoError(t, err)

	_, err = cached.Hash(context.Background(), audio)
	require.ErrorIs(t, err, assert.AnError)

	digest, err := cached.Hash(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, int64(7), digest.Int64())
}
