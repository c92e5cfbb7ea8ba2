package storage

import (
	"context"
	"errors"
	"time"

	"github.com/smartinprabhu/newgpt/pkg/types"
)

// ErrNotFound is returned when a task, session, or conversation key does not
// exist or has expired.
var ErrNotFound = errors.New("storage: not found")

// TTL defaults for the three record families. Task records are short-lived
// polling state, sessions persist for a day of follow-up turns, and
// conversation records feed the similarity index for a month.
const (
	DefaultTaskTTL         = time.Hour
	DefaultSessionTTL      = 24 * time.Hour
	DefaultConversationTTL = 30 * 24 * time.Hour
)

// Store is the persistence boundary for the orchestration engine. Every write
// refreshes the record's TTL. Implementations must be safe for concurrent use.
type Store interface {
	// SaveTask persists a task snapshot and refreshes its TTL.
	SaveTask(ctx context.Context, task *types.Task) error
	// GetTask returns the task or ErrNotFound if absent or expired.
	GetTask(ctx context.Context, taskID string) (*types.Task, error)
	// DeleteTask removes a task. Deleting a missing task is not an error.
	DeleteTask(ctx context.Context, taskID string) error

	// SaveSession persists a session context and refreshes its TTL.
	SaveSession(ctx context.Context, session *types.SessionContext) error
	// GetSession returns the session or ErrNotFound if absent or expired.
	GetSession(ctx context.Context, sessionID string) (*types.SessionContext, error)
	// DeleteSession removes a session. Conversation records written under the
	// session are left intact.
	DeleteSession(ctx context.Context, sessionID string) error

	// AppendConversation stores an immutable conversation record under a fresh
	// key and returns that key.
	AppendConversation(ctx context.Context, record *types.ConversationRecord) (string, error)
	// ListConversations returns the session's live conversation records,
	// newest first.
	ListConversations(ctx context.Context, sessionID string) ([]*types.ConversationRecord, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}
