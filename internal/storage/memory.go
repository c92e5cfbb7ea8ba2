package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartinprabhu/newgpt/pkg/types"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store for development and tests. TTL handling
// mirrors the Redis implementation, with expiry checked lazily on read
// against an injectable clock.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the store's time source. Used by TTL tests.
func (ms *MemoryStore) SetClock(now func() time.Time) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.now = now
}

func (ms *MemoryStore) set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.entries[key] = memoryEntry{data: data, expiresAt: ms.now().Add(ttl)}
	return nil
}

func (ms *MemoryStore) get(key string, dest interface{}) error {
	ms.mu.RLock()
	entry, ok := ms.entries[key]
	now := ms.now()
	ms.mu.RUnlock()
	if !ok || now.After(entry.expiresAt) {
		return ErrNotFound
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (ms *MemoryStore) delete(key string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.entries, key)
}

func (ms *MemoryStore) SaveTask(_ context.Context, task *types.Task) error {
	if task == nil {
		return fmt.Errorf("nil task payload")
	}
	return ms.set(taskKeyPrefix+task.TaskID, task, DefaultTaskTTL)
}

func (ms *MemoryStore) GetTask(_ context.Context, taskID string) (*types.Task, error) {
	var task types.Task
	if err := ms.get(taskKeyPrefix+taskID, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (ms *MemoryStore) DeleteTask(_ context.Context, taskID string) error {
	ms.delete(taskKeyPrefix + taskID)
	return nil
}

func (ms *MemoryStore) SaveSession(_ context.Context, session *types.SessionContext) error {
	if session == nil {
		return fmt.Errorf("nil session payload")
	}
	return ms.set(sessionKeyPrefix+session.SessionID, session, DefaultSessionTTL)
}

func (ms *MemoryStore) GetSession(_ context.Context, sessionID string) (*types.SessionContext, error) {
	var session types.SessionContext
	if err := ms.get(sessionKeyPrefix+sessionID, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (ms *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	ms.delete(sessionKeyPrefix + sessionID)
	return nil
}

func (ms *MemoryStore) AppendConversation(_ context.Context, record *types.ConversationRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("nil conversation payload")
	}
	key := fmt.Sprintf("%s%s:%d:%s", conversationKeyPrefix, record.SessionID, record.Timestamp, uuid.NewString()[:8])
	if err := ms.set(key, record, DefaultConversationTTL); err != nil {
		return "", err
	}
	return key, nil
}

func (ms *MemoryStore) ListConversations(_ context.Context, sessionID string) ([]*types.ConversationRecord, error) {
	prefix := conversationKeyPrefix + sessionID + ":"
	ms.mu.RLock()
	now := ms.now()
	var raws [][]byte
	for key, entry := range ms.entries {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		if now.After(entry.expiresAt) {
			continue
		}
		raws = append(raws, entry.data)
	}
	ms.mu.RUnlock()

	records := make([]*types.ConversationRecord, 0, len(raws))
	for _, raw := range raws {
		var record types.ConversationRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode conversation: %w", err)
		}
		records = append(records, &record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
	return records, nil
}

func (ms *MemoryStore) Ping(context.Context) error { return nil }

func (ms *MemoryStore) Close() error { return nil }
