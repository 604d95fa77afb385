package wsocket

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chronic_go_backend/internal/models"
	"chronic_go_backend/internal/realtime"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, registry *realtime.Registry) *httptest.Server {
	t.Helper()
	h := NewHandler(registry, websocket.Upgrader{}, Options{
		WriteTimeout: time.Second,
		PingInterval: 50 * time.Millisecond,
	})
	user := &models.User{ID: "u1", Email: "ada@example.com"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleWebSocket(w, r, user)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readAck(t *testing.T, ws *websocket.Conn) Ack {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ack Ack
	require.NoError(t, ws.ReadJSON(&ack))
	return ack
}

func TestHandleWebSocketSubscribe(t *testing.T) {
	registry := realtime.NewRegistry()
	srv := newTestServer(t, registry)
	ws := dial(t, srv)

	require.NoError(t, ws.WriteJSON(map[string]string{"subscribe": "project:p1"}))
	assert.Equal(t, Ack{Type: "subscribed", Channel: "project:p1"}, readAck(t, ws))
	assert.Len(t, registry.Members("project:p1"), 1)

	require.NoError(t, ws.WriteJSON(map[string]string{"unsubscribe": "project:p1"}))
	assert.Equal(t, Ack{Type: "unsubscribed", Channel: "project:p1"}, readAck(t, ws))
	assert.Empty(t, registry.Channels())
}

func TestHandleWebSocketIgnoresOtherFrames(t *testing.T) {
	registry := realtime.NewRegistry()
	srv := newTestServer(t, registry)
	ws := dial(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, ws.WriteJSON(map[string]string{"hello": "world"}))
	require.NoError(t, ws.WriteJSON(map[string]string{"subscribe": "workspace:w1"}))

	// the first reply the client sees is the ack for the valid request
	assert.Equal(t, Ack{Type: "subscribed", Channel: "workspace:w1"}, readAck(t, ws))
}

func TestHandleWebSocketReceivesBroadcast(t *testing.T) {
	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry, time.Second, zerolog.Nop())
	srv := newTestServer(t, registry)
	ws := dial(t, srv)

	require.NoError(t, ws.WriteJSON(map[string]string{"subscribe": "project:p1"}))
	readAck(t, ws)

	msg := map[string]any{"type": "task.created", "task": map[string]string{"id": "t1"}}
	require.NoError(t, dispatcher.Broadcast(context.Background(), "project:p1", msg))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"task.created","task":{"id":"t1"}}`, string(data))
}

func TestHandleWebSocketDisconnectCleansUp(t *testing.T) {
	registry := realtime.NewRegistry()
	srv := newTestServer(t, registry)
	ws := dial(t, srv)

	for _, ch := range []string{"project:c1", "project:c2", "workspace:c3"} {
		require.NoError(t, ws.WriteJSON(map[string]string{"subscribe": ch}))
		readAck(t, ws)
	}
	assert.Len(t, registry.Channels(), 3)

	require.NoError(t, ws.Close())

	assert.Eventually(t, func() bool {
		return len(registry.Channels()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnSendAfterClose(t *testing.T) {
	registry := realtime.NewRegistry()
	var server *Conn
	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		server = newConn(ws, time.Second)
		registry.Subscribe("project:p1", server)
		close(ready)
	}))
	defer srv.Close()
	dial(t, srv)
	<-ready

	require.NoError(t, server.Close())
	assert.ErrorIs(t, server.Send(context.Background(), []byte(`{}`)), ErrConnClosed)
	assert.NoError(t, server.Close())

	d := realtime.NewDispatcher(registry, time.Second, zerolog.Nop())
	require.NoError(t, d.Broadcast(context.Background(), "project:p1", map[string]string{"type": "x"}))
	assert.Empty(t, registry.Channels())
}

// logBuffer is a goroutine-safe zerolog sink.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHandleWebSocketWarnsOnUnknownChannel(t *testing.T) {
	registry := realtime.NewRegistry()
	logs := &logBuffer{}
	logger := zerolog.New(logs).Level(zerolog.WarnLevel)

	h := NewHandler(registry, websocket.Upgrader{}, Options{WriteTimeout: time.Second})
	user := &models.User{ID: "u1", Email: "ada@example.com"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleWebSocket(w, r.WithContext(logger.WithContext(r.Context())), user)
	}))
	t.Cleanup(srv.Close)
	ws := dial(t, srv)

	require.NoError(t, ws.WriteJSON(map[string]string{"subscribe": "project:p1"}))
	readAck(t, ws)
	assert.Empty(t, logs.String())

	// unknown names are still accepted, only flagged
	require.NoError(t, ws.WriteJSON(map[string]string{"subscribe": "board:b1"}))
	assert.Equal(t, Ack{Type: "subscribed", Channel: "board:b1"}, readAck(t, ws))
	assert.Len(t, registry.Members("board:b1"), 1)
	assert.Contains(t, logs.String(), "invalid channel")
}
