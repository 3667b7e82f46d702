package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalWithMinusZero(t *testing.T) {
	t.Run("zero volumes in ask blocks become -0", func(t *testing.T) {
		payload := map[string]interface{}{
			"ask": []map[string]interface{}{
				{"p": -1.101, "v": 0},
				{"p": -1.102, "v": 5},
			},
		}
		data, err := MarshalWithMinusZero(payload)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"v":-0`)
		assert.Contains(t, string(data), `"v":5`)
	})

	t.Run("bid blocks are untouched", func(t *testing.T) {
		payload := map[string]interface{}{
			"bid": []map[string]interface{}{{"p": 1.1, "v": 0}},
		}
		data, err := MarshalWithMinusZero(payload)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"v":0`)
		assert.NotContains(t, string(data), `"v":-0`)
	})

	t.Run("negative zero float renders as -0", func(t *testing.T) {
		// encoding/json keeps the sign of a true negative zero
		data, err := MarshalWithMinusZero(map[string]interface{}{"p": negate(0)})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"p":-0`)
	})
}

// negate defeats constant folding so -0.0 actually reaches the marshaler.
func negate(f float64) float64 { return -f }

func TestSystem(t *testing.T) {
	msg := System("WRAPPER_MISSING", "subscribe wrapper not found", map[string]interface{}{"scenario": "default"})
	assert.Equal(t, "System", msg["t"])
	assert.Equal(t, "WRAPPER_MISSING", msg["code"])
	assert.Equal(t, "default", msg["scenario"])
	assert.True(t, IsSystem(msg))
	assert.False(t, IsSystem(map[string]interface{}{"t": "Quote"}))
}
