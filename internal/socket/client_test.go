package socket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-core/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// worldServer is a minimal in-process stand-in for the world server: it
// echoes every envelope back as a successful response and can push
// broadcasts.
type worldServer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *worldServer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	for {
		var op map[string]interface{}
		if err := conn.ReadJSON(&op); err != nil {
			return
		}
		reply := map[string]interface{}{
			"type":      op["type"],
			"action":    op["action"],
			"requestId": op["requestId"],
			"operation": op["operation"],
			"result":    op["targets"],
			"broadcast": false,
		}
		s.writeJSON(reply)
	}
}

func (s *worldServer) writeJSON(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.WriteJSON(v)
	}
}

func (s *worldServer) waitConnected(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		connected := s.conn != nil
		s.mu.Unlock()
		if connected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client never connected")
}

func dialTestServer(t *testing.T) (*Client, *worldServer) {
	t.Helper()
	server := &worldServer{}
	ts := httptest.NewServer(http.HandlerFunc(server.handler))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, err := Dial(t.Context(), Config{URL: url, HandshakeTimeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, server
}

func TestRequestCorrelatesDirectReply(t *testing.T) {
	client, _ := dialTestServer(t)

	op, err := protocol.NewOperation("Item", protocol.ActionCreate,
		[]protocol.Target{{Data: map[string]interface{}{"_id": "A1", "name": "Sword"}}},
		protocol.Options{Render: true})
	require.NoError(t, err)

	resp, err := client.Request(t.Context(), op)
	require.NoError(t, err)
	assert.Equal(t, "Item", resp.Type)
	require.Len(t, resp.Result, 1)
	assert.Equal(t, "A1", resp.Result[0]["_id"])
	assert.True(t, resp.Operation.Render)

	// the same response also reaches the apply queue, in wire order
	select {
	case queued := <-client.Inbound():
		assert.Equal(t, "Item", queued.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("response never reached the inbound queue")
	}
}

func TestBroadcastArrivesWithoutRequest(t *testing.T) {
	client, server := dialTestServer(t)
	server.waitConnected(t)

	server.writeJSON(map[string]interface{}{
		"type":      "Item",
		"action":    "update",
		"broadcast": true,
		"userId":    "someone-else",
		"result":    []interface{}{map[string]interface{}{"_id": "A1", "name": "Longsword"}},
	})

	select {
	case resp := <-client.Inbound():
		assert.True(t, resp.Broadcast)
		assert.Equal(t, "someone-else", resp.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never arrived")
	}
}

func TestMalformedMessagesNeverSurface(t *testing.T) {
	client, server := dialTestServer(t)
	server.waitConnected(t)

	// missing type: dropped before any collection could see it
	server.writeJSON(map[string]interface{}{"action": "create", "result": []interface{}{}})
	// then a valid broadcast to prove the loop survived
	server.writeJSON(map[string]interface{}{
		"type": "Item", "action": "delete",
		"result": []interface{}{"A1"},
	})

	select {
	case resp := <-client.Inbound():
		assert.Equal(t, protocol.ActionDelete, resp.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("valid message never arrived")
	}
}

func TestRequestAfterCloseFails(t *testing.T) {
	client, _ := dialTestServer(t)
	require.NoError(t, client.Close())

	op, err := protocol.NewOperation("Item", protocol.ActionGet, nil, protocol.Options{})
	require.NoError(t, err)

	_, err = client.Request(t.Context(), op)
	require.Error(t, err)
	var tErr *protocol.TransportError
	assert.ErrorAs(t, err, &tErr)
}
