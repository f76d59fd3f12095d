package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Registry.Get when no entry exists for a name.
	ErrNotFound = errors.New("chat: name not registered")

	// ErrRecipientNotFound is returned by the router when a directed
	// message targets a name that is not registered.
	ErrRecipientNotFound = errors.New("chat: recipient not found")

	// ErrMalformed is returned for text containing '@' that does not parse
	// as "<from>@<to>: <body>".
	ErrMalformed = errors.New("chat: malformed directed message")

	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("chat: session closed")

	// ErrLogAppend wraps MessageLog append failures. They are logged and
	// never fail delivery.
	ErrLogAppend = errors.New("chat: message log append failed")
)

// SendError records a failed delivery to a single registered channel.
type SendError struct {
	Name string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("chat: send to %q: %v", e.Name, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
