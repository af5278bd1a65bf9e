package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/Owskar/collaborative-code-editor/internal/repository"
)

// defaultPageSize bounds each LRANGE issued by ReadAll.
const defaultPageSize int64 = 500

// RedisUpdateLog implements repository.UpdateLog on Redis lists.
// Updates are RPUSHed so LRANGE 0 -1 yields them in append order.
type RedisUpdateLog struct {
	client   *redis.Client
	keys     keyspace
	pageSize int64
}

// NewRedisUpdateLog creates a RedisUpdateLog.
func NewRedisUpdateLog(client *redis.Client, keyPrefix string) *RedisUpdateLog {
	if client == nil {
		panic("redis client cannot be nil for RedisUpdateLog")
	}
	return &RedisUpdateLog{
		client:   client,
		keys:     newKeyspace(keyPrefix),
		pageSize: defaultPageSize,
	}
}

// Open pins a pooled connection to the session and verifies it with PING.
func (l *RedisUpdateLog) Open(ctx context.Context, documentID string) (repository.UpdateLogHandle, error) {
	conn := l.client.Conn(ctx)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("redis: failed to open update log for document %s: %w: %w", documentID, repository.ErrUnavailable, err)
	}
	return &redisUpdateLogHandle{
		conn:     conn,
		key:      l.keys.updateLogKey(documentID),
		pageSize: l.pageSize,
	}, nil
}

type redisUpdateLogHandle struct {
	conn      *redis.Conn
	key       string
	pageSize  int64
	closeOnce sync.Once
	closeErr  error
}

func (h *redisUpdateLogHandle) Append(ctx context.Context, update json.RawMessage) (int64, error) {
	if len(update) == 0 {
		update = json.RawMessage("null")
	}
	pos, err := h.conn.RPush(ctx, h.key, []byte(update)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to append to %s: %w", h.key, err)
	}
	return pos, nil
}

func (h *redisUpdateLogHandle) ReadRange(ctx context.Context, start, stop int64) ([]json.RawMessage, error) {
	values, err := h.conn.LRange(ctx, h.key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to read %s[%d:%d]: %w", h.key, start, stop, err)
	}
	records := make([]json.RawMessage, len(values))
	for i, v := range values {
		records[i] = json.RawMessage(v)
	}
	return records, nil
}

// ReadAll pages through the list so a long log never produces one huge reply.
func (h *redisUpdateLogHandle) ReadAll(ctx context.Context) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for start := int64(0); ; start += h.pageSize {
		page, err := h.ReadRange(ctx, start, start+h.pageSize-1)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if int64(len(page)) < h.pageSize {
			return all, nil
		}
	}
}

func (h *redisUpdateLogHandle) Len(ctx context.Context) (int64, error) {
	n, err := h.conn.LLen(ctx, h.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to get length of %s: %w", h.key, err)
	}
	return n, nil
}

func (h *redisUpdateLogHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.conn.Close()
	})
	return h.closeErr
}
