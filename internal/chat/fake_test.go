package chat

import (
	"context"
	"errors"
	"sync"
)

type fakeChannel struct {
	mu       sync.Mutex
	received []string
	err      error
}

func (c *fakeChannel) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.received = append(c.received, text)
	return nil
}

func (c *fakeChannel) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.received...)
}

var errChannelGone = errors.New("channel gone")

type record struct {
	username  string
	message   string
	timestamp int64
}

type fakeLog struct {
	mu        sync.Mutex
	records   []record
	appendErr error
}

func (l *fakeLog) Append(_ context.Context, username, message string, timestamp int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	l.records = append(l.records, record{username, message, timestamp})
	return nil
}

func (l *fakeLog) Recent(_ context.Context, limit int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if len(l.records) > limit {
		start = len(l.records) - limit
	}
	texts := make([]string, 0, len(l.records)-start)
	for _, r := range l.records[start:] {
		texts = append(texts, r.message)
	}
	return texts, nil
}
