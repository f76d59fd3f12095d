// Package chat implements the connection registry and message routing core
// of the relay.
//
// A Registry maps usernames to live Channels. A Router classifies each
// inbound text as a broadcast or a directed message and delivers it through
// the Registry. A Session drives one connection through
// Connecting → Open → Closed, and a Relay binds the three together behind
// the transport hooks OnOpen, OnMessage and OnClose.
//
// The package never owns or closes a Channel; the transport does.
package chat
