package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
)

var _ Interface = &RedisStorage{}

// RedisStorage keeps each thread in a list under prefix+threadID. RPUSH is
// atomic, so appends to one thread are ordered by the server.
type RedisStorage struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

func NewRedisStorage(ctx context.Context, opts *redis.Options, prefix string, log *logger.Logger) (*RedisStorage, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisStorage{client: client, prefix: prefix, log: log.With("component", "redis")}, nil
}

func (s *RedisStorage) threadKey(threadID string) string { return s.prefix + threadID }
func (s *RedisStorage) indexKey() string                 { return s.prefix + "_index" }

func (s *RedisStorage) Append(ctx context.Context, threadID string, message domain.Message) error {
	if threadID == "" {
		return ErrEmptyThreadID
	}
	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.threadKey(threadID), raw)
	pipe.SAdd(ctx, s.indexKey(), threadID)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append to thread %s: %w", threadID, err)
	}
	return nil
}

func (s *RedisStorage) History(ctx context.Context, threadID string) ([]domain.Message, error) {
	raws, err := s.client.LRange(ctx, s.threadKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read thread %s: %w", threadID, err)
	}
	history := make([]domain.Message, 0, len(raws))
	for _, raw := range raws {
		var m domain.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			s.log.Warn("⚠️ skipping undecodable message", "thread", threadID, "error", err)
			continue
		}
		history = append(history, m)
	}
	return history, nil
}

func (s *RedisStorage) Window(ctx context.Context, threadID string, policy WindowPolicy) ([]domain.Message, error) {
	history, err := s.History(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return TrimWindow(history, policy), nil
}

func (s *RedisStorage) Threads(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
