package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"outreach/internal/logging"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Settings are plain string keys and
// the log is a list kept newest-first with LPUSH + LTRIM.
type RedisStore struct {
	client *redis.Client
	prefix string
	logCap int
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, default "outreach:"
	LogCap   int
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "outreach:"
	}
	logging.Store("RedisStore connected to %s (prefix %q)", opts.Addr, prefix)
	return &RedisStore{client: client, prefix: prefix, logCap: capOrDefault(opts.LogCap)}, nil
}

func (s *RedisStore) kvKey(key string) string { return s.prefix + "kv:" + key }

func (s *RedisStore) logKey() string { return s.prefix + "logs" }

// Get decodes the value stored at key into dst.
func (s *RedisStore) Get(ctx context.Context, key string, dst any) error {
	data, err := s.client.Get(ctx, s.kvKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Set stores value at key as JSON.
func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.kvKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.kvKey(key)).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Append pushes the batch in reverse so batch[0] lands at the head, then
// trims the list to the cap, in one transaction.
func (s *RedisStore) Append(ctx context.Context, entries []LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := normalizeBatch(entries, time.Now())

	values := make([]interface{}, 0, len(batch))
	for i := len(batch) - 1; i >= 0; i-- {
		data, err := json.Marshal(batch[i])
		if err != nil {
			return fmt.Errorf("encode log entry: %w", err)
		}
		values = append(values, data)
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, s.logKey(), values...)
		p.LTrim(ctx, s.logKey(), 0, int64(s.logCap-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > s.logCap {
		limit = s.logCap
	}
	raw, err := s.client.LRange(ctx, s.logKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	out := make([]LogEntry, 0, len(raw))
	for _, item := range raw {
		var e LogEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			logging.StoreError("skipping undecodable log item: %v", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Clear removes every log entry.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.logKey()).Err(); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	logging.Store("activity log cleared")
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
