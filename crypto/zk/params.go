package zk

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
)

// Backend names a proof system.
type Backend string

const (
	BackendGroth16 Backend = "groth16"
	BackendPlonk   Backend = "plonk"
)

// Params selects the proof system and curve a verifying key and proof were produced for.
type Params struct {
	Backend Backend
	Curve   ecc.ID
}

// DefaultParams is used when the bundle carries no engine configuration.
var DefaultParams = Params{Backend: BackendGroth16, Curve: ecc.BN254}

var curves = map[string]ecc.ID{
	"bn254":     ecc.BN254,
	"bls12-381": ecc.BLS12_381,
	"bls12-377": ecc.BLS12_377,
	"bw6-761":   ecc.BW6_761,
}

type paramsJSON struct {
	Backend string `json:"backend"`
	Curve   string `json:"curve"`
}

// ParseParams interprets the opaque engine configuration of a bundle, of the form
// {"backend": "groth16"|"plonk", "curve": "bn254"|"bls12-381"|"bls12-377"|"bw6-761"}.
// Missing fields take their default value.
func ParseParams(config []byte) (Params, error) {
	params := DefaultParams
	if len(strings.TrimSpace(string(config))) == 0 {
		return params, nil
	}

	var raw paramsJSON
	if err := json.Unmarshal(config, &raw); err != nil {
		return Params{}, fmt.Errorf("%w: could not decode engine config: %v", ErrUnsupported, err)
	}

	if raw.Backend != "" {
		switch backend := Backend(strings.ToLower(raw.Backend)); backend {
		case BackendGroth16, BackendPlonk:
			params.Backend = backend
		default:
			return Params{}, fmt.Errorf("%w: backend %q", ErrUnsupported, raw.Backend)
		}
	}

	if raw.Curve != "" {
		name := strings.ReplaceAll(strings.ToLower(raw.Curve), "_", "-")
		curve, ok := curves[name]
		if !ok {
			return Params{}, fmt.Errorf("%w: curve %q", ErrUnsupported, raw.Curve)
		}
		params.Curve = curve
	}

	return params, nil
}

func (p Params) String() string {
	return fmt.Sprintf("%s/%s", p.Backend, p.Curve)
}
