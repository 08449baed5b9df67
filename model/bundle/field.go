package bundle

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// FieldElementHexWidth is the width of a zero-padded hex rendering of a field
// element: 32 bytes, 64 hex characters.
const FieldElementHexWidth = 64

// FieldElement is an integer drawn from the scalar field of the proof system.
// The zero value represents 0. A FieldElement is immutable.
type FieldElement struct {
	i *big.Int
}

// NewFieldElement copies x into a FieldElement.
func NewFieldElement(x *big.Int) FieldElement {
	if x == nil {
		return FieldElement{}
	}
	return FieldElement{i: new(big.Int).Set(x)}
}

// FieldElementFromUint64 returns the FieldElement representing u.
func FieldElementFromUint64(u uint64) FieldElement {
	return FieldElement{i: new(big.Int).SetUint64(u)}
}

// ParseFieldElement parses a decimal string or a 0x-prefixed hex string.
func ParseFieldElement(s string) (FieldElement, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FieldElement{}, fmt.Errorf("empty field element")
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}

	v, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return FieldElement{}, fmt.Errorf("invalid field element %q", s)
	}
	if v.Sign() < 0 {
		return FieldElement{}, fmt.Errorf("negative field element %q", s)
	}
	return FieldElement{i: v}, nil
}

// BigInt returns a copy of the underlying integer.
func (f FieldElement) BigInt() *big.Int {
	if f.i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(f.i)
}

// Hex returns the lowercase hex rendering without prefix or padding.
func (f FieldElement) Hex() string {
	return f.BigInt().Text(16)
}

// PaddedHex returns the lowercase hex rendering, zero-padded to FieldElementHexWidth.
func (f FieldElement) PaddedHex() string {
	return PadHex(f.Hex())
}

// String returns the decimal rendering.
func (f FieldElement) String() string {
	return f.BigInt().String()
}

// Equal reports whether both elements represent the same integer.
func (f FieldElement) Equal(other FieldElement) bool {
	return f.BigInt().Cmp(other.BigInt()) == 0
}

// PadHex normalizes a hex string for comparison: the optional 0x prefix is removed,
// letters are lowercased and the result is left-padded with zeros to
// FieldElementHexWidth. Strings already at least that wide are not truncated.
func PadHex(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	s = strings.ToLower(s)
	if len(s) >= FieldElementHexWidth {
		return s
	}
	return strings.Repeat("0", FieldElementHexWidth-len(s)) + s
}

// MarshalJSON encodes the element as a quoted decimal string, which survives
// JSON readers that parse numbers as float64.
func (f FieldElement) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts a JSON number, a decimal string, or a 0x-prefixed hex string.
func (f *FieldElement) UnmarshalJSON(b []byte) error {
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("could not decode field element: %w", err)
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("could not decode field element: %w", err)
		}
		s = n.String()
	}

	parsed, err := ParseFieldElement(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// MarshalCBOR encodes the element as a CBOR integer or bignum.
func (f FieldElement) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(f.BigInt())
}

// UnmarshalCBOR decodes a CBOR integer or bignum.
func (f *FieldElement) UnmarshalCBOR(b []byte) error {
	v := new(big.Int)
	if err := cbor.Unmarshal(b, v); err != nil {
		return fmt.Errorf("could not decode field element: %w", err)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("negative field element %s", v)
	}
	f.i = v
	return nil
}
