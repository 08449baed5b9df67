package bundle

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// HexBytes is a byte slice carried as a hex string in JSON. Decoding accepts an
// optional 0x prefix and either letter case; encoding emits lowercase without prefix.
type HexBytes []byte

func (h HexBytes) String() string {
	return hex.EncodeToString(h)
}

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HexBytes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("could not decode hex string: %w", err)
	}
	decoded, err := DecodeHex(s)
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}

// DecodeHex decodes an even-length hex string with an optional 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return b, nil
}

// EngineConfig holds the opaque engine parameters. In JSON it is kept verbatim,
// whether it was written as an object or as a string.
type EngineConfig []byte

func (c EngineConfig) MarshalJSON() ([]byte, error) {
	if len(c) == 0 {
		return []byte("null"), nil
	}
	if json.Valid(c) {
		return append([]byte(nil), c...), nil
	}
	return json.Marshal(string(c))
}

func (c *EngineConfig) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = nil
		return nil
	}
	// a JSON string is unwrapped so engines always see the payload itself
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("could not decode engine config: %w", err)
		}
		*c = EngineConfig(s)
		return nil
	}
	*c = append((*c)[:0], b...)
	return nil
}
