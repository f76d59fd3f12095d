package chat

import "context"

// ReplayLimit caps how many logged broadcasts a joining session receives.
const ReplayLimit = 1000

// MessageLog persists broadcast messages. Implementations acquire any
// backing connection per call and release it before returning.
type MessageLog interface {
	// Append records one broadcast. timestamp is in Unix seconds.
	Append(ctx context.Context, username, message string, timestamp int64) error

	// Recent returns at most limit message texts, oldest first.
	Recent(ctx context.Context, limit int) ([]string, error)
}
