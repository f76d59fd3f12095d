// Package server tracks live WebSocket connections, starts their pumps, and
// drains them on shutdown via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/relaychat/internal/chat"
)

// Hub attaches WebSocket clients to the relay and owns their pump
// goroutines. The relay decides who receives what; the hub only knows
// which connections are alive so it can close them on shutdown.
type Hub struct {
	relay  *chat.Relay
	logger *slog.Logger

	mutex   sync.Mutex
	clients map[*Client]struct{}
	closing bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a Hub serving clients through relay.
func NewHub(relay *chat.Relay, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		relay:   relay,
		logger:  logger,
		clients: make(map[*Client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Relay returns the relay the hub feeds.
func (h *Hub) Relay() *chat.Relay { return h.relay }

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Serve starts the write pump, opens the client's session (replaying
// history and registering the username), then starts the read pump. It
// returns once both pumps are running.
func (h *Hub) Serve(client *Client) error {
	h.mutex.Lock()
	if h.closing {
		h.mutex.Unlock()
		return ErrHubClosed
	}
	h.clients[client] = struct{}{}
	clientCount := len(h.clients)
	h.wg.Add(2)
	h.mutex.Unlock()

	go func() {
		defer h.wg.Done()
		client.writePump()
	}()

	session, err := h.relay.OnOpen(h.ctx, client, client.Username())
	if err != nil {
		client.closeSend()
		h.remove(client)
		h.wg.Done()
		return err
	}

	h.logger.Info("client connected",
		"remote", client.addr,
		"user", client.username,
		"session", session.ID().String(),
		"connections", clientCount,
	)

	go func() {
		defer h.wg.Done()
		defer h.remove(client)
		client.readPump(h.ctx, session)
	}()
	return nil
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	delete(h.clients, client)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.logger.Debug("client released", "remote", client.addr, "connections", clientCount)
}

// shutdownClients closes every live connection; each read pump then closes
// its session.
func (h *Hub) shutdownClients() int {
	h.mutex.Lock()
	h.closing = true
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.logger.Warn("closing client connection", "remote", client.addr, "error", err)
		}
	}
	return len(clients)
}

// Shutdown closes all connections and waits for their pumps to finish, or
// returns context.DeadlineExceeded after timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("hub shutting down")

	closed := h.shutdownClients()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown complete", "closed", closed)
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timed out; some connections may still be draining")
		return context.DeadlineExceeded
	}
}
