package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestDocSocketHelloAndInit(t *testing.T) {
	router, _ := newTestRouter(t, "The quick fox")
	server := httptest.NewServer(router)
	defer server.Close()

	conn := dialWS(t, server, "/?doc=doc1&client=alice")

	hello := readMessage(t, conn)
	assert.Equal(t, "hello", hello["type"])
	assert.Equal(t, "doc1", hello["docId"])
	assert.Equal(t, false, hello["locked"])

	init := readMessage(t, conn)
	assert.Equal(t, "init", init["type"])
	assert.Equal(t, "doc1", init["docId"])
	assert.Empty(t, init["ranges"])
}

func TestDocSocketHighlightBroadcast(t *testing.T) {
	router, _ := newTestRouter(t, "The quick fox")
	server := httptest.NewServer(router)
	defer server.Close()

	alice := dialWS(t, server, "/?doc=doc1&client=alice")
	bob := dialWS(t, server, "/?doc=doc1&client=bob")
	for _, conn := range []*websocket.Conn{alice, bob} {
		readMessage(t, conn) // hello
		readMessage(t, conn) // init
	}

	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":   "highlight",
		"action": "set_range",
		"start":  0,
		"end":    1,
		"color":  "yellow",
	}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := readMessage(t, conn)
		assert.Equal(t, "state_updated", msg["type"])
		assert.Equal(t, "doc1", msg["docId"])
	}
}

func TestDocSocketClearAll(t *testing.T) {
	router, api := newTestRouter(t, "a b c")
	_, err := api.docs.ApplyHighlight("doc1", "alice", 0, 2, "red", 0)
	require.NoError(t, err)

	server := httptest.NewServer(router)
	defer server.Close()

	conn := dialWS(t, server, "/?doc=doc1&client=alice")
	readMessage(t, conn) // hello
	init := readMessage(t, conn)
	assert.NotEmpty(t, init["ranges"])

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":   "highlight",
		"action": "clear_all",
	}))

	msg := readMessage(t, conn)
	assert.Equal(t, "state_updated", msg["type"])
}

func TestDocSocketMalformedMessageIgnored(t *testing.T) {
	router, _ := newTestRouter(t, "a b")
	server := httptest.NewServer(router)
	defer server.Close()

	conn := dialWS(t, server, "/?doc=doc1&client=alice")
	readMessage(t, conn) // hello
	readMessage(t, conn) // init

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// The connection survives and keeps serving valid messages.
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":   "highlight",
		"action": "set_range",
		"start":  0,
		"end":    0,
		"color":  "red",
	}))
	msg := readMessage(t, conn)
	assert.Equal(t, "state_updated", msg["type"])
}

func TestControlSocketReceivesNavigation(t *testing.T) {
	router, api := newTestRouter(t, "a")
	server := httptest.NewServer(router)
	defer server.Close()

	conn := dialWS(t, server, "/control?group=screens&client=alice")

	hello := readMessage(t, conn)
	assert.Equal(t, "control_hello", hello["type"])
	assert.Equal(t, "screens", hello["group"])
	assert.Equal(t, "alice", hello["clientId"])

	api.nav.Broadcast("screens", map[string]any{"type": "navigate", "target": "scene2"})

	msg := readMessage(t, conn)
	assert.Equal(t, "navigate", msg["type"])
	assert.Equal(t, "scene2", msg["target"])
}

func TestControlSocketGroupIsolation(t *testing.T) {
	router, api := newTestRouter(t, "a")
	server := httptest.NewServer(router)
	defer server.Close()

	phones := dialWS(t, server, "/control?group=phones")
	readMessage(t, phones) // control_hello

	api.nav.Broadcast("screens", map[string]any{"type": "navigate", "target": "scene2"})

	require.NoError(t, phones.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := phones.ReadMessage()
	assert.Error(t, err)
}
