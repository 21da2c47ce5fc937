// Package redis implements store.Sessions on top of Redis. Each refresh
// session is a key with a TTL; a per-owner set indexes the jtis so every
// session of a user can be revoked at once.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "refresh"

var _ store.Sessions = (*Sessions)(nil)

type Sessions struct {
	rdb goredis.UniversalClient
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewSessions dials Redis lazily; call Ping to confirm reachability.
func NewSessions(opts Options) *Sessions {
	return &Sessions{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
	}
}

// NewSessionsFromClient wraps an existing client.
func NewSessionsFromClient(rdb goredis.UniversalClient) *Sessions {
	return &Sessions{rdb: rdb}
}

func sessionKey(ownerID, jti string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, ownerID, jti)
}

func ownerKey(ownerID string) string {
	return fmt.Sprintf("%s:owner:%s", keyPrefix, ownerID)
}

func (s *Sessions) Create(ctx context.Context, ownerID, jti string, ttl time.Duration) error {
	if ownerID == "" || jti == "" {
		return fmt.Errorf("redis: create session: empty owner or jti")
	}
	if ttl <= 0 {
		return fmt.Errorf("redis: create session: non-positive ttl %s", ttl)
	}

	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, sessionKey(ownerID, jti), ownerID, ttl)
		p.SAdd(ctx, ownerKey(ownerID), jti)
		// The index lives as long as the newest session.
		p.Expire(ctx, ownerKey(ownerID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: create session: %w", err)
	}
	return nil
}

func (s *Sessions) Exists(ctx context.Context, ownerID, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, sessionKey(ownerID, jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: session exists: %w", err)
	}
	return n == 1, nil
}

func (s *Sessions) Consume(ctx context.Context, ownerID, jti string) (bool, error) {
	n, err := s.rdb.Del(ctx, sessionKey(ownerID, jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: consume session: %w", err)
	}
	// Index cleanup is best effort; Keys filters stale members anyway.
	_ = s.rdb.SRem(ctx, ownerKey(ownerID), jti).Err()
	return n == 1, nil
}

func (s *Sessions) Revoke(ctx context.Context, ownerID, jti string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, sessionKey(ownerID, jti))
		p.SRem(ctx, ownerKey(ownerID), jti)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: revoke session: %w", err)
	}
	return nil
}

func (s *Sessions) RevokeAll(ctx context.Context, ownerID string) (int, error) {
	jtis, err := s.rdb.SMembers(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: list sessions: %w", err)
	}

	keys := make([]string, 0, len(jtis))
	for _, jti := range jtis {
		keys = append(keys, sessionKey(ownerID, jti))
	}

	var deleted *goredis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		if len(keys) > 0 {
			deleted = p.Del(ctx, keys...)
		}
		p.Del(ctx, ownerKey(ownerID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis: revoke all sessions: %w", err)
	}
	if deleted == nil {
		return 0, nil
	}
	return int(deleted.Val()), nil
}

func (s *Sessions) Keys(ctx context.Context, ownerID string) ([]string, error) {
	jtis, err := s.rdb.SMembers(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list sessions: %w", err)
	}
	if len(jtis) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.IntCmd, len(jtis))
	_, err = s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, jti := range jtis {
			cmds[i] = p.Exists(ctx, sessionKey(ownerID, jti))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: list sessions: %w", err)
	}

	live := make([]string, 0, len(jtis))
	for i, cmd := range cmds {
		if cmd.Val() == 1 {
			live = append(live, jtis[i])
		}
	}
	return live, nil
}

func (s *Sessions) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Sessions) Close() error {
	return s.rdb.Close()
}
