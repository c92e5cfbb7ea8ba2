package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/smartinprabhu/newgpt/internal/logger"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

const (
	taskKeyPrefix         = "task:"
	sessionKeyPrefix      = "session:"
	conversationKeyPrefix = "conv:"

	// conversationScanCount is the per-iteration batch size for SCAN.
	conversationScanCount = 200
)

// RedisStore persists tasks, sessions, and conversation records in Redis.
// Tasks and sessions are JSON strings with a TTL refreshed on every write.
// Conversation records are hashes so individual fields stay inspectable
// from redis-cli.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	logger.Logger.Info().Str("addr", addr).Int("db", db).Msg("connected to redis")
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (rs *RedisStore) SaveTask(ctx context.Context, task *types.Task) error {
	if task == nil {
		return fmt.Errorf("nil task payload")
	}
	data, err := task.Marshal()
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	key := taskKeyPrefix + task.TaskID
	if err := rs.client.Set(ctx, key, data, DefaultTaskTTL).Err(); err != nil {
		return fmt.Errorf("store task %s: %w", task.TaskID, err)
	}
	return nil
}

func (rs *RedisStore) GetTask(ctx context.Context, taskID string) (*types.Task, error) {
	data, err := rs.client.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch task %s: %w", taskID, err)
	}
	task, err := types.UnmarshalTask(data)
	if err != nil {
		return nil, fmt.Errorf("decode task %s: %w", taskID, err)
	}
	return task, nil
}

func (rs *RedisStore) DeleteTask(ctx context.Context, taskID string) error {
	if err := rs.client.Del(ctx, taskKeyPrefix+taskID).Err(); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

func (rs *RedisStore) SaveSession(ctx context.Context, session *types.SessionContext) error {
	if session == nil {
		return fmt.Errorf("nil session payload")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := sessionKeyPrefix + session.SessionID
	if err := rs.client.Set(ctx, key, data, DefaultSessionTTL).Err(); err != nil {
		return fmt.Errorf("store session %s: %w", session.SessionID, err)
	}
	return nil
}

func (rs *RedisStore) GetSession(ctx context.Context, sessionID string) (*types.SessionContext, error) {
	data, err := rs.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch session %s: %w", sessionID, err)
	}
	var session types.SessionContext
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &session, nil
}

func (rs *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := rs.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (rs *RedisStore) AppendConversation(ctx context.Context, record *types.ConversationRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("nil conversation payload")
	}

	embedding, err := json.Marshal(record.Embedding)
	if err != nil {
		return "", fmt.Errorf("marshal embedding: %w", err)
	}
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	key := conversationKey(record.SessionID, record.Timestamp)
	fields := map[string]interface{}{
		"session_id":    record.SessionID,
		"timestamp":     record.Timestamp,
		"query_text":    record.QueryText,
		"response_text": record.ResponseText,
		"embedding":     embedding,
		"metadata":      metadata,
	}
	if err := rs.client.HSet(ctx, key, fields).Err(); err != nil {
		return "", fmt.Errorf("store conversation %s: %w", key, err)
	}
	if err := rs.client.Expire(ctx, key, DefaultConversationTTL).Err(); err != nil {
		return "", fmt.Errorf("expire conversation %s: %w", key, err)
	}
	return key, nil
}

func (rs *RedisStore) ListConversations(ctx context.Context, sessionID string) ([]*types.ConversationRecord, error) {
	var keys []string
	pattern := conversationKeyPrefix + sessionID + ":*"
	iter := rs.client.Scan(ctx, 0, pattern, conversationScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan conversations: %w", err)
	}

	records := make([]*types.ConversationRecord, 0, len(keys))
	for _, key := range keys {
		fields, err := rs.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("fetch conversation %s: %w", key, err)
		}
		if len(fields) == 0 {
			// Expired between SCAN and HGETALL.
			continue
		}
		record, err := conversationFromFields(fields)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("key", key).Msg("skipping malformed conversation record")
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
	return records, nil
}

func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

// conversationKey builds conv:<session>:<unix ts>:<8 hex chars>. The random
// suffix keeps multiple records in the same second from colliding.
func conversationKey(sessionID string, timestamp int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%s:%d:%s", conversationKeyPrefix, sessionID, timestamp, suffix)
}

func conversationFromFields(fields map[string]string) (*types.ConversationRecord, error) {
	timestamp, err := strconv.ParseInt(fields["timestamp"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}

	record := &types.ConversationRecord{
		SessionID:    fields["session_id"],
		Timestamp:    timestamp,
		QueryText:    fields["query_text"],
		ResponseText: fields["response_text"],
	}
	if raw := fields["embedding"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &record.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
	}
	if raw := fields["metadata"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &record.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return record, nil
}
