package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/relaychat/internal/chat"
)

const readTimeout = 2 * time.Second

// newTestServer starts the full route set over httptest and tears it down
// with the test.
func newTestServer(t *testing.T, cfg chat.Config) (*httptest.Server, *Hub) {
	t.Helper()

	hub := NewHub(chat.NewRelay(cfg), nil)
	srv := httptest.NewServer(SetupRoutes(hub, nil))
	t.Cleanup(func() {
		_ = hub.Shutdown(time.Second)
		srv.Close()
	})
	return srv, hub
}

// useConfig applies cfg for the duration of the test.
func useConfig(t *testing.T, cfg Config) {
	t.Helper()
	SetConfig(&cfg)
	t.Cleanup(func() { SetConfig(nil) })
}

func wsURL(srv *httptest.Server, username string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?username=" + username
}

// connect dials username into the room and waits until it is registered.
func connect(t *testing.T, srv *httptest.Server, hub *Hub, username string) *websocket.Conn {
	t.Helper()

	want := hub.Relay().Registry().Len() + 1
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, username), nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	waitForUsers(t, hub, want)
	return conn
}

func waitForUsers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.Relay().Registry().Len() == n
	}, readTimeout, 5*time.Millisecond, "expected %d registered users", n)
}

func sendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)
	return string(data)
}

// expectSilence asserts nothing arrives for a short while. The connection
// cannot be read again afterwards.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected message %q", data)
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
