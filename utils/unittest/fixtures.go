package unittest

import (
	"crypto/ecdsa"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/zkpodai/attested-audio/model/bundle"
)

// SignerFixture returns a fresh secp256k1 key and its checksummed address.
func SignerFixture(t testing.TB) (*ecdsa.PrivateKey, string) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

// SignMessage signs message as an EIP-191 personal message and returns the 0x-prefixed
// hex signature with a 27/28 recovery id, as wallets produce it.
func SignMessage(t testing.TB, key *ecdsa.PrivateKey, message string) string {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

// SignedMessageFixture returns a validly signed message together with its signer address.
func SignedMessageFixture(t testing.TB, message string) (bundle.SignedMessage, string) {
	key, address := SignerFixture(t)
	return bundle.SignedMessage{
		Message:   message,
		Signature: SignMessage(t, key, message),
	}, address
}

// InvalidSignedMessageFixture returns a message whose signature has an invalid recovery id.
func InvalidSignedMessageFixture(t testing.TB, message string) bundle.SignedMessage {
	key, _ := SignerFixture(t)
	sig, err := hexutil.Decode(SignMessage(t, key, message))
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] = 42
	return bundle.SignedMessage{
		Message:   message,
		Signature: hexutil.Encode(sig),
	}
}

// WavFixture returns a mono 16 bit PCM WAV container holding the given number of samples
// at 8kHz.
func WavFixture(t testing.TB, samples int) []byte {
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	const sampleRate = 8000
	encoder := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	data := make([]int, samples)
	for i := range data {
		data[i] = (i * 97) % 2000
	}
	err = encoder.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	require.NoError(t, err)
	require.NoError(t, encoder.Close())
	require.NoError(t, f.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return content
}

// BundleFixture returns a structurally valid bundle with public inputs [5, 10, 255],
// opaque proof payloads, a WAV payload and no signatures. Options are applied in order.
func BundleFixture(t testing.TB, opts ...func(*bundle.Bundle)) *bundle.Bundle {
	b := &bundle.Bundle{
		VerifyingKey: bundle.HexBytes{0x01, 0x02, 0x03},
		Proof:        bundle.HexBytes{0x04, 0x05, 0x06},
		PublicInputs: []bundle.FieldElement{
			bundle.FieldElementFromUint64(5),
			bundle.FieldElementFromUint64(10),
			bundle.FieldElementFromUint64(255),
		},
		CombinedWav: WavFixture(t, 64),
	}
	for _, apply := range opts {
		apply(b)
	}
	return b
}

// WithSignatures sets the signatures of a bundle fixture.
func WithSignatures(signatures ...bundle.SignedMessage) func(*bundle.Bundle) {
	return func(b *bundle.Bundle) {
		b.Signatures = signatures
	}
}

// WithPublicInputs sets the public inputs of a bundle fixture.
func WithPublicInputs(inputs ...uint64) func(*bundle.Bundle) {
	return func(b *bundle.Bundle) {
		b.PublicInputs = make([]bundle.FieldElement, 0, len(inputs))
		for _, input := range inputs {
			b.PublicInputs = append(b.PublicInputs, bundle.FieldElementFromUint64(input))
		}
	}
}
