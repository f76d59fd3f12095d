// Package server implements the HTTP and WebSocket transport for the relay.
//
// Each accepted WebSocket connection becomes a Client, which implements
// chat.Channel. The Hub runs one read pump and one write pump per client:
// the read pump feeds frames to the client's chat.Session in order, and the
// write pump drains the client's send queue so a slow peer never blocks a
// broadcast. Configuration, origin checks, rate limiting and the chat page
// live alongside in specialized files.
package server
