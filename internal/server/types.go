// Package server defines the transport errors and close helpers shared by
// client and hub logic.
package server

import (
	"errors"
	"strings"

	"github.com/gorilla/websocket"
)

var (
	// ErrClientClosed is returned by Client.Send after the connection ended.
	ErrClientClosed = errors.New("server: client closed")

	// ErrSendBufferFull is returned by Client.Send when the peer is not
	// draining its queue fast enough. The message is dropped.
	ErrSendBufferFull = errors.New("server: send buffer full")

	// ErrHubClosed is returned by Hub.Serve once shutdown has begun.
	ErrHubClosed = errors.New("server: hub is shutting down")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe")
}

// closeDetails extracts the peer's close code and reason from a read error.
// Connections that drop without a close frame report CloseAbnormalClosure
// and an empty reason; gorilla's synthetic 1006 text is not a peer reason.
func closeDetails(err error) (int, string) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
		return closeErr.Code, closeErr.Text
	}
	return websocket.CloseAbnormalClosure, ""
}
