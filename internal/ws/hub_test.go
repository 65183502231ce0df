package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	received [][]byte
	broken   bool
}

func (c *fakeConn) TrySend(data []byte) bool {
	if c.broken {
		return false
	}
	c.received = append(c.received, data)
	return true
}

func TestRegisterAndBroadcast(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{}
	b := &fakeConn{}
	hub.Register("doc1", a)
	hub.Register("doc1", b)
	hub.Register("doc2", &fakeConn{})

	assert.Equal(t, 2, hub.DocCount())
	assert.Equal(t, 3, hub.ClientCount())

	hub.Broadcast("doc1", map[string]any{"type": "state_updated", "docId": "doc1"})

	require.Len(t, a.received, 1)
	require.Len(t, b.received, 1)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(a.received[0], &msg))
	assert.Equal(t, "state_updated", msg["type"])
	assert.Equal(t, "doc1", msg["docId"])
}

func TestBroadcastScopedToDocument(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{}
	b := &fakeConn{}
	hub.Register("doc1", a)
	hub.Register("doc2", b)

	hub.Broadcast("doc1", map[string]string{"type": "control"})

	assert.Len(t, a.received, 1)
	assert.Empty(t, b.received)
}

func TestRegisterIdempotent(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{}
	hub.Register("doc1", c)
	hub.Register("doc1", c)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Broadcast("doc1", map[string]string{"type": "control"})
	assert.Len(t, c.received, 1)
}

func TestUnregisterRemovesEmptyDoc(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{}
	hub.Register("doc1", c)
	hub.Unregister("doc1", c)
	assert.Equal(t, 0, hub.DocCount())

	// Unregistering twice, or from an unknown doc, is a no-op.
	hub.Unregister("doc1", c)
	hub.Unregister("nope", c)
}

func TestBroadcastPrunesDeadSubscribers(t *testing.T) {
	hub := NewHub()
	live := &fakeConn{}
	dead := &fakeConn{broken: true}
	hub.Register("doc1", live)
	hub.Register("doc1", dead)

	hub.Broadcast("doc1", map[string]string{"type": "state_updated"})

	assert.Equal(t, 1, hub.ClientCount())
	assert.Len(t, live.received, 1)

	hub.Broadcast("doc1", map[string]string{"type": "state_updated"})
	assert.Len(t, live.received, 2)
}

func TestBroadcastNoSubscribers(t *testing.T) {
	hub := NewHub()
	hub.Broadcast("empty", map[string]string{"type": "state_updated"})
	assert.Equal(t, 0, hub.DocCount())
}
