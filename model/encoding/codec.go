// Package encoding defines the codecs bundles are stored with.
package encoding

// Encoder converts values to and from one wire format.
type Encoder interface {
	// Encode returns an error if the value type is not supported by the format.
	Encode(interface{}) ([]byte, error)

	// Decode returns an error if the bytes do not fit the provided value type.
	Decode([]byte, interface{}) error
}
