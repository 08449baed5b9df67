package encoding

// Domain separation tags for the digests used as memo keys by the engines.
// Distinct tags keep a proof-result key from ever colliding with an audio-hash key
// computed over the same bytes.

func tag(domain string) string {
	return protocolPrefix + domain
}

const protocolPrefix = "ATTEST-V0_"

var (
	// ProofResultTag is used to derive memo keys of proof verification results.
	ProofResultTag = tag("proof-result")
	// AudioHashTag is used to derive memo keys of audio content hashes.
	AudioHashTag = tag("audio-hash")
)
