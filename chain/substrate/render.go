package substrate

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
)

// Render converts a decoded value into plain JSON-compatible data: integers
// become decimal strings and byte strings become 0x-prefixed hex.
func Render(v any) any {
	switch t := v.(type) {
	case *big.Int:
		if t == nil {
			return nil
		}
		return t.String()
	case []byte:
		return HexEncode(t)
	case RawCall:
		return HexEncode(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Render(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Render(val)
		}
		return out
	default:
		return v
	}
}

// RenderJSON renders a decoded value as JSON text.
func RenderJSON(v any) (string, error) {
	b, err := json.Marshal(Render(v))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// HexEncode returns the 0x-prefixed lowercase hex form of b.
func HexEncode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// HexDecode accepts hex with or without the 0x prefix.
func HexDecode(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
