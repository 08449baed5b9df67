package signature

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zkpodai/attested-audio/module"
)

// ErrSignerNotAllowed is returned when a signer is recovered but is not in the allowlist.
var ErrSignerNotAllowed = errors.New("signer not allowed")

// AllowlistRecoverer additionally requires the recovered signer to be one of a fixed set
// of addresses.
type AllowlistRecoverer struct {
	recoverer module.SignerRecoverer
	allowed   map[common.Address]struct{}
}

var _ module.SignerRecoverer = (*AllowlistRecoverer)(nil)

// NewAllowlistRecoverer wraps recoverer. Every entry of allowed must be a hex address.
func NewAllowlistRecoverer(recoverer module.SignerRecoverer, allowed []string) (*AllowlistRecoverer, error) {
	set := make(map[common.Address]struct{}, len(allowed))
	for _, a := range allowed {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("invalid allowlisted address %q", a)
		}
		set[common.HexToAddress(a)] = struct{}{}
	}
	return &AllowlistRecoverer{
		recoverer: recoverer,
		allowed:   set,
	}, nil
}

func (a *AllowlistRecoverer) RecoverSigner(message string, signature string) (string, error) {
	signer, err := a.recoverer.RecoverSigner(message, signature)
	if err != nil {
		return "", err
	}
	if _, ok := a.allowed[common.HexToAddress(signer)]; !ok {
		return "", fmt.Errorf("%w: %s", ErrSignerNotAllowed, signer)
	}
	return signer, nil
}
