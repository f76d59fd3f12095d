// Package history provides the message logs that persist broadcasts and
// replay them to users entering the room.
package history

import (
	"context"
	"sync"
)

// MemoryLog keeps the most recent broadcasts in process memory. It is used
// when no database path is configured and in tests.
type MemoryLog struct {
	mu       sync.Mutex
	capacity int
	texts    []string
}

// NewMemoryLog creates a log retaining at most capacity messages.
func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryLog{capacity: capacity}
}

// Append records message, evicting the oldest entry once full.
func (l *MemoryLog) Append(_ context.Context, _ string, message string, _ int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.texts) == l.capacity {
		copy(l.texts, l.texts[1:])
		l.texts = l.texts[:len(l.texts)-1]
	}
	l.texts = append(l.texts, message)
	return nil
}

// Recent returns up to limit messages, oldest first.
func (l *MemoryLog) Recent(_ context.Context, limit int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		return nil, nil
	}
	start := max(len(l.texts)-limit, 0)
	return append([]string(nil), l.texts[start:]...), nil
}
