// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the chat page.
package server

import (
	"fmt"
	"html/template"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// subprotocols accepted for compatibility with existing chat clients.
var subprotocols = []string{"toto", "mytest", "hithere"}

func newUpgrader(logger *slog.Logger) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    subprotocols,
		CheckOrigin:     originChecker(logger),
	}
}

// WebSocketHandler upgrades GET /ws?username=<name> requests and hands the
// connection to hub. The username is required and fixed for the life of the
// connection.
func WebSocketHandler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	upgrader := newUpgrader(logger)

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		username := strings.TrimSpace(r.URL.Query().Get("username"))
		if username == "" {
			http.Error(w, "username query parameter is required", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		client := NewClient(conn, r.RemoteAddr, username, logger)
		if err := hub.Serve(client); err != nil {
			logger.Warn("rejecting connection", "remote", r.RemoteAddr, "user", username, "error", err)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server unavailable"),
				time.Now().Add(writeWait))
			_ = conn.Close()
		}
	}
}

// HealthHandler reports that the server is up and who is in the room, one
// username per line after the status line.
func HealthHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		names := hub.Relay().Registry().Names()

		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "Relay chat server is running! Users online: %d\n", len(names))
		for _, name := range names {
			_, _ = fmt.Fprintln(w, name)
		}
	}
}

type chatPage struct {
	Username     string
	WebSocketURL string
}

// ChatPageHandler serves the chat page with a random User<n> name bound to
// a ws:// (or wss:// with TLS) URL on the requesting host.
func ChatPageHandler(w http.ResponseWriter, r *http.Request) {
	scheme := "ws"
	if CurrentConfig().TLS.Enabled {
		scheme = "wss"
	}

	username := fmt.Sprintf("User%d", rand.IntN(101))
	wsURL := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     "/ws",
		RawQuery: url.Values{"username": {username}}.Encode(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chatPageTemplate.Execute(w, chatPage{Username: username, WebSocketURL: wsURL.String()}); err != nil {
		slog.Warn("rendering chat page", "error", err)
	}
}

var chatPageTemplate = template.Must(template.New("chat").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Relay Chat</title>
    <style>
        textarea { box-sizing: border-box; font-size: 1.2em; width: 100%; }
        #message { width: 100%; font-size: 1.2em; line-height: 3em; }
    </style>
</head>
<body data-username="{{.Username}}" data-ws="{{.WebSocketURL}}">
    <form id="chatform">
        <textarea id="chat" cols="35" rows="10" readonly></textarea>
        <br />
        <input type="text" id="message" />
        <input id="send" type="submit" value="Send" />
    </form>
    <script>
        const username = document.body.dataset.username;
        const chat = document.getElementById('chat');
        const input = document.getElementById('message');
        const ws = new WebSocket(document.body.dataset.ws);

        function append(line) {
            chat.value += line + '\n';
            chat.scrollTop = chat.scrollHeight;
        }

        ws.onopen = () => ws.send(username + ' entered the room');
        ws.onmessage = (evt) => append(evt.data);
        ws.onclose = (evt) => append('Connection closed by server: ' + evt.code + ' "' + evt.reason + '"');

        window.addEventListener('beforeunload', () => {
            append('Bye bye...');
            ws.close(1000, username + ' left the room');
        });

        document.getElementById('chatform').addEventListener('submit', (e) => {
            e.preventDefault();
            ws.send(username + ': ' + input.value);
            input.value = '';
        });
    </script>
</body>
</html>
`))
