// Package zk verifies zero-knowledge proofs carried by attestation bundles.
package zk

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/sha3"

	"github.com/zkpodai/attested-audio/model/bundle"
	"github.com/zkpodai/attested-audio/model/encoding"
	"github.com/zkpodai/attested-audio/module"
)

var (
	// ErrVerificationFailed is wrapped by every error returned from Verifier.Verify.
	ErrVerificationFailed = errors.New("proof verification failed")
	// ErrUnsupported is returned for an engine configuration naming an unknown backend or curve.
	ErrUnsupported = errors.New("unsupported proof system")
)

// Verifier implements module.ProofVerifier with gnark. Results are memoized in an LRU
// cache keyed by a digest of the verifying key, proof, public inputs and configuration.
type Verifier struct {
	log   zerolog.Logger
	cache *lru.Cache[string, error] // nil when memoization is disabled
}

var _ module.ProofVerifier = (*Verifier)(nil)

// NewVerifier returns a verifier memoizing up to cacheSize results. A cacheSize of zero
// disables memoization.
func NewVerifier(log zerolog.Logger, cacheSize int) (*Verifier, error) {
	v := &Verifier{
		log: log.With().Str("engine", "zk_verifier").Logger(),
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, error](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("could not create proof result cache: %w", err)
		}
		v.cache = cache
	}
	return v, nil
}

// Verify checks proof against verifyingKey and publicInputs using the proof system named
// by config. Returns nil if the proof is valid. Apart from the context's error, every
// returned error wraps ErrVerificationFailed.
func (v *Verifier) Verify(ctx context.Context, verifyingKey, proof []byte, publicInputs []bundle.FieldElement, config []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var key string
	if v.cache != nil {
		key = resultKey(verifyingKey, proof, publicInputs, config)
		if err, ok := v.cache.Get(key); ok {
			v.log.Debug().Msg("proof result served from cache")
			return err
		}
	}

	err := verify(verifyingKey, proof, publicInputs, config)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	if v.cache != nil {
		v.cache.Add(key, err)
	}
	return err
}

func verify(verifyingKey, proof []byte, publicInputs []bundle.FieldElement, config []byte) error {
	params, err := ParseParams(config)
	if err != nil {
		return err
	}

	publicWitness, err := newPublicWitness(params, publicInputs)
	if err != nil {
		return err
	}

	switch params.Backend {
	case BackendGroth16:
		vk := groth16.NewVerifyingKey(params.Curve)
		if err := readPayload(vk, verifyingKey, "verifying key"); err != nil {
			return err
		}
		p := groth16.NewProof(params.Curve)
		if err := readPayload(p, proof, "proof"); err != nil {
			return err
		}
		return groth16.Verify(p, vk, publicWitness)

	case BackendPlonk:
		vk := plonk.NewVerifyingKey(params.Curve)
		if err := readPayload(vk, verifyingKey, "verifying key"); err != nil {
			return err
		}
		p := plonk.NewProof(params.Curve)
		if err := readPayload(p, proof, "proof"); err != nil {
			return err
		}
		return plonk.Verify(p, vk, publicWitness)

	default:
		return fmt.Errorf("%w: backend %q", ErrUnsupported, params.Backend)
	}
}

func readPayload(dst io.ReaderFrom, payload []byte, name string) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty %s", name)
	}
	if _, err := dst.ReadFrom(bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("could not decode %s: %w", name, err)
	}
	return nil
}

// newPublicWitness builds a witness holding only the public inputs, in order.
func newPublicWitness(params Params, publicInputs []bundle.FieldElement) (witness.Witness, error) {
	w, err := witness.New(params.Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("could not create witness: %w", err)
	}

	values := make(chan any, len(publicInputs))
	for _, input := range publicInputs {
		values <- input.BigInt()
	}
	close(values)

	if err := w.Fill(len(publicInputs), 0, values); err != nil {
		return nil, fmt.Errorf("could not fill public witness: %w", err)
	}
	return w, nil
}

// resultKey derives the memo key of a verification. Every part is length-prefixed.
func resultKey(verifyingKey, proof []byte, publicInputs []bundle.FieldElement, config []byte) string {
	h := sha3.New256()
	h.Write([]byte(encoding.ProofResultTag))

	write := func(b []byte) {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(b)))
		h.Write(length[:])
		h.Write(b)
	}

	write(verifyingKey)
	write(proof)
	write(config)
	for _, input := range publicInputs {
		write(input.BigInt().Bytes())
	}

	return string(h.Sum(nil))
}
