package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/zkpodai/attested-audio/model/encoding"
)

var _ encoding.Encoder = (*Encoder)(nil)

// EncMode is the canonical CBOR encoding mode used for bundles, so that equal bundles
// always encode to equal bytes.
var EncMode = func() cbor.EncMode {
	options := cbor.CanonicalEncOptions()
	encMode, err := options.EncMode()
	if err != nil {
		panic(err)
	}
	return encMode
}()

// DecMode rejects duplicate map keys.
var DecMode = func() cbor.DecMode {
	decMode, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(err)
	}
	return decMode
}()

// Encoder is the CBOR implementation of encoding.Encoder.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Encode(val interface{}) ([]byte, error) {
	b, err := EncMode.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("could not encode cbor: %w", err)
	}
	return b, nil
}

func (e *Encoder) Decode(b []byte, val interface{}) error {
	if err := DecMode.Unmarshal(b, val); err != nil {
		return fmt.Errorf("could not decode cbor: %w", err)
	}
	return nil
}
