package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeydtaylor/steeze-sentinel/pkg/codec"
	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials as JSON values under {prefix}{sessionID} so
// several sentinel instances can share sessions.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	codec  codec.Codec
}

func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, codec: codec.JSONStrict}
}

// NewRedisClient dials and pings the configured server.
func NewRedisClient(ctx context.Context, cfg manifest.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (s *RedisStore) key(sessionID string) string { return s.prefix + sessionID }

func (s *RedisStore) Get(ctx context.Context, sessionID string) (Credential, bool, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, fmt.Errorf("redis get: %w", err)
	}
	var c Credential
	if err := s.codec.Unmarshal(raw, &c); err != nil {
		return Credential{}, false, fmt.Errorf("session %s: %w", redactID(sessionID), err)
	}
	return c, true, nil
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, c Credential) error {
	c.SessionID = sessionID
	raw, err := s.codec.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// redactID keeps session ids out of logs and error strings.
func redactID(id string) string {
	if len(id) <= 8 {
		return "..."
	}
	return id[:8] + "..."
}
