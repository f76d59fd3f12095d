package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultDepartureReason is broadcast when a client closes without a reason.
const DefaultDepartureReason = "A client left the room without a proper explanation."

// State is the lifecycle position of a Session.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session binds one Channel to one username for the life of a connection.
// The username is fixed at creation. Methods are safe for concurrent use;
// messages are routed in the order OnMessage is called.
type Session struct {
	id       uuid.UUID
	username string
	channel  Channel
	reg      *Registration
	relay    *Relay
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// ID returns the session identifier used in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Username returns the name the session registered under.
func (s *Session) Username() string { return s.username }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// open moves Connecting → Open: replay history to the channel, then
// register it.
func (s *Session) open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnecting {
		return fmt.Errorf("open session in state %s: %w", s.state, ErrSessionClosed)
	}

	s.replay(ctx)

	reg, replaced := s.relay.registry.Add(s.username, s.channel)
	if replaced {
		s.logger.Warn("username taken over by new connection")
	}
	s.reg = reg
	s.state = StateOpen
	s.logger.Info("session opened", "users", s.relay.registry.Len())
	return nil
}

func (s *Session) replay(ctx context.Context) {
	if s.relay.history == nil {
		return
	}

	texts, err := s.relay.history.Recent(ctx, ReplayLimit)
	if err != nil {
		s.logger.Error("history replay failed", "error", err)
		return
	}
	for _, text := range texts {
		if err := s.channel.Send(text); err != nil {
			s.logger.Warn("history replay interrupted",
				"error", &SendError{Name: s.username, Err: err},
			)
			return
		}
	}
}

// OnMessage routes one inbound text from this session's user.
func (s *Session) OnMessage(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return ErrSessionClosed
	}

	err := s.relay.router.Route(ctx, s.username, text)
	if err != nil && s.relay.notifySender {
		s.notify(err)
	}
	return err
}

func (s *Session) notify(err error) {
	var notice string
	switch {
	case errors.Is(err, ErrRecipientNotFound):
		notice = DirectPrefix + "server: message not delivered, recipient is not in the room"
	case errors.Is(err, ErrMalformed):
		notice = DirectPrefix + "server: message not delivered, use <name>@<recipient>: <text>"
	default:
		return
	}
	if sendErr := s.channel.Send(notice); sendErr != nil {
		s.logger.Warn("sender notice failed", "error", sendErr)
	}
}

// OnClose moves the session to Closed. The registry entry is removed before
// reason (or DefaultDepartureReason when empty) is broadcast to the
// remaining users. Further calls are no-ops.
func (s *Session) OnClose(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.state
	s.state = StateClosed
	if previous != StateOpen {
		return
	}

	if !s.relay.registry.RemoveIf(s.reg) {
		s.logger.Debug("registry entry already replaced")
	}

	if reason == "" {
		reason = DefaultDepartureReason
	}
	delivered := s.relay.router.Broadcast(reason)
	s.logger.Info("session closed",
		"code", code,
		"reason", reason,
		"notified", delivered,
	)
}
