package protocol

import (
	"encoding/json"
	"regexp"
	"time"
)

// -----------------------------------------------------------------------------
// Outbound serialization.
// -----------------------------------------------------------------------------

var (
	askBlockPattern   = regexp.MustCompile(`"ask"\s*:\s*\[[^\]]*\]`)
	zeroVolumePattern = regexp.MustCompile(`("v"\s*:\s*)0(\s*[,\}\]])`)
)

// MarshalWithMinusZero serializes an outbound message, rendering any ask-side
// array entry whose volume is the literal zero as -0. The consuming client
// keys side handling off the sign, so a plain 0 in an ask row is ambiguous
// to it; this is a wire-compatibility rule, not a semantic one.
func MarshalWithMinusZero(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	patched := askBlockPattern.ReplaceAllFunc(data, func(block []byte) []byte {
		return zeroVolumePattern.ReplaceAll(block, []byte("${1}-0${2}"))
	})
	return patched, nil
}

// -----------------------------------------------------------------------------
// System messages.
// -----------------------------------------------------------------------------

// System builds the typed error reply used when a subscribe request cannot be
// resolved: machine code, human message, plus contextual fields.
func System(code, message string, extra map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{
		"t":       "System",
		"code":    code,
		"message": message,
		"ts":      time.Now().UnixMilli(),
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// IsSystem reports whether a built payload is a System reply rather than a
// regular response body.
func IsSystem(node Tree) bool {
	if t, ok := GetPath(node, "t"); ok {
		if s, ok := String(t); ok {
			return s == "System"
		}
	}
	return false
}
