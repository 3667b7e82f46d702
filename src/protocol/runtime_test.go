package protocol

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter() func() string {
	n := 0
	return func() string {
		n++
		return strconv.Itoa(n)
	}
}

func TestBuildMessage(t *testing.T) {
	rt := &Runtime{
		Templates: map[string]Tree{
			"hello": parse(t, `{"t":"HelloResp","p":{"session":{"field":"sid"},"srv":"{{server}}"}}`),
			"quote": parse(t, `{"t":"QuoteResp","p":[{"i":"{{instrument}}","p":1.1,"v":10}]}`),
		},
	}

	t.Run("assigns counter id and rid", func(t *testing.T) {
		out, err := rt.BuildMessage("quote", BuildRequest{
			ReplyTo: "77",
			NextID:  counter(),
			Context: map[string]string{"instrument": "EURUSD"},
		})
		require.NoError(t, err)
		assert.Equal(t, "1", out["id"])
		assert.Equal(t, "77", out["rid"])
		i, ok := GetPath(out, "p[0].i")
		require.True(t, ok)
		assert.Equal(t, "EURUSD", i)
	})

	t.Run("no rid without reply-to", func(t *testing.T) {
		out, err := rt.BuildMessage("quote", BuildRequest{NextID: counter()})
		require.NoError(t, err)
		_, hasRid := out["rid"]
		assert.False(t, hasRid)
	})

	t.Run("explicit id wins", func(t *testing.T) {
		out, err := rt.BuildMessage("quote", BuildRequest{ExplicitID: "abc", NextID: counter()})
		require.NoError(t, err)
		assert.Equal(t, "abc", out["id"])
	})

	t.Run("hello renames the session field", func(t *testing.T) {
		out, err := rt.BuildMessage("hello", BuildRequest{
			NextID:  counter(),
			Context: map[string]string{"sessionId": "deadbeef", "server": "sim"},
		})
		require.NoError(t, err)

		sid, ok := GetPath(out, "p.sid")
		require.True(t, ok)
		assert.Equal(t, "deadbeef", sid)
		_, hasSession := GetPath(out, "p.session")
		assert.False(t, hasSession)
		srv, _ := GetPath(out, "p.srv")
		assert.Equal(t, "sim", srv)
	})

	t.Run("missing template is an error", func(t *testing.T) {
		_, err := rt.BuildMessage("nope", BuildRequest{NextID: counter()})
		require.Error(t, err)
	})
}
