package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/zkpodai/attested-audio/model/encoding"
	"github.com/zkpodai/attested-audio/model/encoding/cbor"
	jsonenc "github.com/zkpodai/attested-audio/model/encoding/json"
)

var (
	ErrEmptyPublicInputs = errors.New("bundle has no public inputs")
	ErrMissingPayload    = errors.New("bundle payload missing")
	ErrUnknownEncoding   = errors.New("unknown bundle encoding")
)

// Encoding names a bundle file format.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// EncodingForPath picks the encoding from the file extension; anything that is not
// .cbor is read as JSON.
func EncodingForPath(path string) Encoding {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return EncodingCBOR
	}
	return EncodingJSON
}

// ParseEncoding parses an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(s)) {
	case EncodingJSON:
		return EncodingJSON, nil
	case EncodingCBOR:
		return EncodingCBOR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

func encoderFor(enc Encoding) (encoding.Encoder, error) {
	switch enc {
	case EncodingJSON:
		return jsonenc.NewEncoder(), nil
	case EncodingCBOR:
		return cbor.NewEncoder(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, enc)
	}
}

// SignedMessage is a provenance signature over a message asserting audio origin.
// The signature is kept as the hex string found in the bundle; it is only decoded
// when the signer is recovered.
type SignedMessage struct {
	Message   string `json:"message" cbor:"1,keyasint"`
	Signature string `json:"signature" cbor:"2,keyasint"`
}

// UnmarshalJSON also accepts the short field names msg and sig.
func (s *SignedMessage) UnmarshalJSON(b []byte) error {
	var raw struct {
		Message   *string `json:"message"`
		Msg       *string `json:"msg"`
		Signature *string `json:"signature"`
		Sig       *string `json:"sig"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("could not decode signed message: %w", err)
	}
	*s = SignedMessage{
		Message:   firstOf(raw.Message, raw.Msg),
		Signature: firstOf(raw.Signature, raw.Sig),
	}
	return nil
}

func firstOf(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

// Bundle is the attestation bundle: the proof, its verifying key and parameters, the
// public inputs, the combined audio and the provenance signatures.
//
// A Bundle is loaded once and never mutated afterwards, so it can be read from any
// goroutine without synchronization. Use Copy to hand an independent value to
// another execution context.
type Bundle struct {
	VerifyingKey HexBytes        `json:"verifyingKey" cbor:"1,keyasint"`
	Proof        HexBytes        `json:"proof" cbor:"2,keyasint"`
	Config       EngineConfig    `json:"config" cbor:"3,keyasint"`
	PublicInputs []FieldElement  `json:"publicInputs" cbor:"4,keyasint"`
	CombinedWav  HexBytes        `json:"combinedWav" cbor:"5,keyasint"`
	Signatures   []SignedMessage `json:"signatures" cbor:"6,keyasint"`
}

// bundleJSON mirrors Bundle and additionally accepts vk as an alias of verifyingKey.
type bundleJSON struct {
	VerifyingKey HexBytes        `json:"verifyingKey"`
	VK           HexBytes        `json:"vk"`
	Proof        HexBytes        `json:"proof"`
	Config       EngineConfig    `json:"config"`
	PublicInputs []FieldElement  `json:"publicInputs"`
	CombinedWav  HexBytes        `json:"combinedWav"`
	Signatures   []SignedMessage `json:"signatures"`
}

func (b *Bundle) UnmarshalJSON(data []byte) error {
	var raw bundleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	vk := raw.VerifyingKey
	if len(vk) == 0 {
		vk = raw.VK
	}
	*b = Bundle{
		VerifyingKey: vk,
		Proof:        raw.Proof,
		Config:       raw.Config,
		PublicInputs: raw.PublicInputs,
		CombinedWav:  raw.CombinedWav,
		Signatures:   raw.Signatures,
	}
	return nil
}

// Load reads and validates the bundle stored at path. The encoding is chosen by the
// file extension.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open bundle: %w", err)
	}
	defer f.Close()

	b, err := Decode(f, EncodingForPath(path))
	if err != nil {
		return nil, fmt.Errorf("could not load bundle %s: %w", path, err)
	}
	return b, nil
}

// Decode reads a bundle in the given encoding and validates it.
func Decode(r io.Reader, enc Encoding) (*Bundle, error) {
	encoder, err := encoderFor(enc)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read bundle: %w", err)
	}

	var b Bundle
	if err := encoder.Decode(data, &b); err != nil {
		return nil, err
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}
	return &b, nil
}

// Encode writes the bundle in the given encoding.
func (b *Bundle) Encode(w io.Writer, enc Encoding) error {
	encoder, err := encoderFor(enc)
	if err != nil {
		return err
	}
	data, err := encoder.Encode(b)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("could not write bundle: %w", err)
	}
	return nil
}

// Validate checks the structural requirements every stage relies on. All problems are
// reported together.
func (b *Bundle) Validate() error {
	var result *multierror.Error

	if len(b.PublicInputs) == 0 {
		result = multierror.Append(result, ErrEmptyPublicInputs)
	}
	if len(b.VerifyingKey) == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: verifying key", ErrMissingPayload))
	}
	if len(b.Proof) == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: proof", ErrMissingPayload))
	}
	for i, input := range b.PublicInputs {
		if input.BigInt().Sign() < 0 {
			result = multierror.Append(result, fmt.Errorf("public input %d is negative", i))
		}
	}

	return result.ErrorOrNil()
}

// ExpectedHash returns the last public input, which commits to the audio hash.
func (b *Bundle) ExpectedHash() (FieldElement, error) {
	if len(b.PublicInputs) == 0 {
		return FieldElement{}, ErrEmptyPublicInputs
	}
	return b.PublicInputs[len(b.PublicInputs)-1], nil
}

// PaddedPublicInputs renders every public input as a zero-padded hex string, in order.
func (b *Bundle) PaddedPublicInputs() []string {
	padded := make([]string, 0, len(b.PublicInputs))
	for _, input := range b.PublicInputs {
		padded = append(padded, input.PaddedHex())
	}
	return padded
}

// Copy returns a deep copy of the bundle.
func (b *Bundle) Copy() Bundle {
	inputs := make([]FieldElement, len(b.PublicInputs))
	for i, input := range b.PublicInputs {
		inputs[i] = NewFieldElement(input.BigInt())
	}

	return Bundle{
		VerifyingKey: append(HexBytes(nil), b.VerifyingKey...),
		Proof:        append(HexBytes(nil), b.Proof...),
		Config:       append(EngineConfig(nil), b.Config...),
		PublicInputs: inputs,
		CombinedWav:  append(HexBytes(nil), b.CombinedWav...),
		Signatures:   append([]SignedMessage(nil), b.Signatures...),
	}
}
