package history

import "context"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a session's rolling conversation history. Turns are
// appended after each successful completion and never mutated.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store keeps per-session turn sequences. Sessions are created lazily on
// first append; Recent on an unknown session returns an empty slice.
type Store interface {
	// Recent returns up to n most recent turns in chronological order.
	// n <= 0 returns everything.
	Recent(ctx context.Context, sessionID string, n int) ([]Turn, error)
	Append(ctx context.Context, sessionID string, turns ...Turn) error
	Clear(ctx context.Context, sessionID string) error
}
