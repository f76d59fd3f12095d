package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Config configures a Relay. The zero value relays without history.
type Config struct {
	// History, when set, receives every broadcast and is replayed to
	// joining sessions.
	History MessageLog

	// NotifySender sends an "@@server: ..." notice back to a user whose
	// directed message could not be delivered. Off by default.
	NotifySender bool

	Logger *slog.Logger
	Now    func() time.Time
}

// Relay owns the registry and router shared by every session and exposes
// the hooks the transport calls on connection events.
type Relay struct {
	registry     *Registry
	router       *Router
	history      MessageLog
	notifySender bool
	logger       *slog.Logger
}

// NewRelay builds a relay with an empty registry.
func NewRelay(cfg Config) *Relay {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	registry := NewRegistry()
	opts := []RouterOption{WithLogger(logger), WithClock(cfg.Now)}
	if cfg.History != nil {
		opts = append(opts, WithMessageLog(cfg.History))
	}

	return &Relay{
		registry:     registry,
		router:       NewRouter(registry, opts...),
		history:      cfg.History,
		notifySender: cfg.NotifySender,
		logger:       logger,
	}
}

// Registry returns the relay's live registry.
func (r *Relay) Registry() *Registry { return r.registry }

// OnOpen creates a session for ch under username, replays history to it
// and registers it. The returned session receives OnMessage and OnClose
// for the rest of the connection.
func (r *Relay) OnOpen(ctx context.Context, ch Channel, username string) (*Session, error) {
	if username == "" {
		return nil, errors.New("chat: username is required")
	}
	if ch == nil {
		return nil, errors.New("chat: channel is required")
	}

	id := uuid.New()
	s := &Session{
		id:       id,
		username: username,
		channel:  ch,
		relay:    r,
		logger:   r.logger.With("session", id.String(), "user", username),
		state:    StateConnecting,
	}
	if err := s.open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
