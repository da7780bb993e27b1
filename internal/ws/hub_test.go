package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHubPublishesToWatchersOfCheckout(t *testing.T) {
	h := NewHub()
	a := NewClient("ws_CO_1")
	b := NewClient("ws_CO_2")
	h.Register(a)
	h.Register(b)

	h.Publish("ws_CO_1", map[string]any{"type": "outcome", "result_code": 0})

	select {
	case msg := <-a.Send:
		var got map[string]any
		require.NoError(t, json.Unmarshal(msg, &got))
		require.Equal(t, "outcome", got["type"])
	default:
		t.Fatal("watcher of ws_CO_1 got nothing")
	}
	require.Empty(t, b.Send)
}

func TestHubCloseUnregisters(t *testing.T) {
	h := NewHub()
	c := NewClient("ws_CO_1")
	h.Register(c)
	require.Equal(t, 1, h.ClientCount("ws_CO_1"))

	c.Close()
	c.Close()
	require.Equal(t, 0, h.ClientCount("ws_CO_1"))

	// publishing after close must not panic on the closed channel
	h.Publish("ws_CO_1", map[string]any{"type": "outcome"})
}
