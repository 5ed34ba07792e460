// Package history records the running conversation between the user and the
// agent so the responder can be prompted with recent context.
package history

import (
	"context"
	"time"
)

// Role identifies who produced an entry.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Entry is one conversational turn.
type Entry struct {
	// Role is who spoke.
	Role Role

	// Text is the utterance or reply.
	Text string

	// Timestamp is when the turn happened.
	Timestamp time.Time
}

// Store is the abstraction over conversation log backends.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Append records one turn.
	Append(ctx context.Context, entry Entry) error

	// Recent returns up to limit most recent entries in chronological order
	// (oldest first).
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
