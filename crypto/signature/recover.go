// Package signature recovers the signers of provenance signatures.
package signature

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zkpodai/attested-audio/module"
)

// ErrInvalidSignature is wrapped by every error returned when no signer can be recovered.
var ErrInvalidSignature = errors.New("invalid signature")

// EthRecoverer recovers the Ethereum address that signed a personal message (EIP-191).
type EthRecoverer struct{}

var _ module.SignerRecoverer = (*EthRecoverer)(nil)

func NewEthRecoverer() *EthRecoverer {
	return &EthRecoverer{}
}

// RecoverSigner recovers the address that signed message. signature is the hex encoding
// of the 65 byte [R || S || V] signature, with or without 0x prefix. V may be 0/1 or 27/28.
// The address is returned in its checksummed form.
func (r *EthRecoverer) RecoverSigner(message string, signature string) (string, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return "", err
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("%w: could not recover public key: %v", ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// decodeSignature decodes a hex signature and normalizes its recovery id to 0 or 1.
func decodeSignature(signature string) ([]byte, error) {
	s := strings.TrimSpace(signature)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	sig, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed hex: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}

	v := sig[crypto.RecoveryIDOffset]
	switch {
	case v == 27 || v == 28:
		sig[crypto.RecoveryIDOffset] = v - 27
	case v == 0 || v == 1:
	default:
		return nil, fmt.Errorf("%w: invalid recovery id %d", ErrInvalidSignature, v)
	}
	return sig, nil
}
