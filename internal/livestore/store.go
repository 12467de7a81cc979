package livestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"clickchess/internal/game"
)

const (
	keyPrefix  = "clickchess:session:"
	keyIndex   = "clickchess:sessions"
	defaultTTL = 24 * time.Hour
)

// Store caches the latest snapshot of every live session in redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// Open connects to the redis server at url and checks it answers.
func Open(ctx context.Context, url string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("redis url required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStore(rdb, ttl), nil
}

// NewStore wraps an existing client. A non-positive ttl means 24h.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) key(id string) string { return keyPrefix + strings.TrimSpace(id) }

// Save writes st and refreshes its expiry.
func (s *Store) Save(ctx context.Context, st game.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key(st.ID), raw, s.ttl)
	pipe.SAdd(ctx, keyIndex, st.ID)
	pipe.Expire(ctx, keyIndex, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Load returns the cached snapshot, or nil when none is stored.
func (s *Store) Load(ctx context.Context, id string) (*game.State, error) {
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st game.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Delete drops the cached snapshot.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, keyIndex, id)
	_, err := pipe.Exec(ctx)
	return err
}

// IDs lists the cached session ids. Entries whose snapshot expired are pruned.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, keyIndex).Result()
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = s.rdb.SRem(ctx, keyIndex, id).Err()
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
