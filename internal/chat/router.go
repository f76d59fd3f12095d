package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Router delivers inbound text to the channels named by its shape.
type Router struct {
	registry *Registry
	history  MessageLog
	logger   *slog.Logger
	now      func() time.Time
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMessageLog appends every broadcast to log.
func WithMessageLog(log MessageLog) RouterOption {
	return func(r *Router) { r.history = log }
}

// WithLogger sets the logger used for delivery diagnostics.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for log timestamps.
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRouter creates a Router resolving recipients through registry.
func NewRouter(registry *Registry, opts ...RouterOption) *Router {
	r := &Router{
		registry: registry,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route parses text from sender and delivers it. Broadcasts always succeed
// from the caller's point of view. Directed messages fail with
// ErrRecipientNotFound or ErrMalformed; individual send failures are logged
// and never returned.
func (r *Router) Route(ctx context.Context, sender, text string) error {
	msg := Parse(text)
	switch msg.Kind {
	case KindBroadcast:
		r.Broadcast(text)
		r.record(ctx, sender, text)
		return nil
	case KindDirected:
		return r.direct(sender, msg)
	default:
		r.logger.Warn("dropping malformed directed message",
			"sender", sender,
			"text", text,
		)
		return fmt.Errorf("%w: %q", ErrMalformed, text)
	}
}

// Broadcast delivers text unmodified to every channel registered at call
// time and returns how many sends succeeded. A failed send is logged and
// does not stop the fan-out.
func (r *Router) Broadcast(text string) int {
	entries := r.registry.Snapshot()

	delivered := 0
	for _, entry := range entries {
		if err := entry.Channel.Send(text); err != nil {
			r.logSendError(&SendError{Name: entry.Name, Err: err})
			continue
		}
		delivered++
	}

	r.logger.Debug("broadcast delivered",
		"recipients", len(entries),
		"delivered", delivered,
	)
	return delivered
}

func (r *Router) direct(sender string, msg Message) error {
	ch, err := r.registry.Get(msg.To)
	if err != nil {
		r.logger.Warn("directed message recipient not found",
			"sender", sender,
			"recipient", msg.To,
		)
		return fmt.Errorf("%w: %q", ErrRecipientNotFound, msg.To)
	}

	if err := ch.Send(msg.Outgoing()); err != nil {
		r.logSendError(&SendError{Name: msg.To, Err: err})
		return nil
	}

	r.logger.Debug("directed message delivered",
		"sender", sender,
		"recipient", msg.To,
	)
	return nil
}

// record appends a broadcast to the message log. Failures are logged only.
func (r *Router) record(ctx context.Context, sender, text string) {
	if r.history == nil {
		return
	}
	if err := r.history.Append(ctx, sender, text, r.now().Unix()); err != nil {
		r.logger.Error("message log append failed",
			"sender", sender,
			"error", fmt.Errorf("%w: %w", ErrLogAppend, err),
		)
	}
}

func (r *Router) logSendError(err *SendError) {
	r.logger.Warn("delivery failed",
		"recipient", err.Name,
		"error", err,
	)
}
