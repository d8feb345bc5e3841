package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// RedisRepository implements Repository using Redis as the backing store.
// Sessions are stored as JSON under "<prefix>id:<sessionId>"; the ids of a
// user's valid sessions are kept in the set "<prefix>user:<userId>:valid".
// When ttl is positive every key expires ttl after its last creation, which
// bounds orphaned rows to the refresh-token lifetime.
type RedisRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string, ttl time.Duration) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + "id:" + id
}

func (r *RedisRepository) userKey(userID string) string {
	return r.prefix + "user:" + userID + ":valid"
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	now := time.Now().UTC()
	s.ID = uuid.NewString()
	s.CreatedAt = now
	s.UpdatedAt = now
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(s.ID), b, r.ttl)
		if s.IsValid {
			pipe.SAdd(ctx, r.userKey(s.UserID), s.ID)
			if r.ttl > 0 {
				pipe.Expire(ctx, r.userKey(s.UserID), r.ttl)
			}
		}
		return nil
	})
	return err
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisRepository) get(ctx context.Context, g getter, id string) (*Session, error) {
	b, err := g.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// modify runs a WATCH/MULTI read-modify-write on one session so that concurrent
// writers cannot resurrect an invalidated row.
func (r *RedisRepository) modify(ctx context.Context, id string, fn func(s *Session, pipe redis.Pipeliner)) error {
	key := r.key(id)
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			s, err := r.get(ctx, tx, id)
			if err != nil {
				return err
			}
			if s == nil {
				return ErrNotFound
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				fn(s, pipe)
				s.UpdatedAt = time.Now().UTC()
				b, err := json.Marshal(s)
				if err != nil {
					return err
				}
				pipe.Set(ctx, key, b, redis.KeepTTL)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func (r *RedisRepository) SetRefreshHash(ctx context.Context, id, hash string) error {
	return r.modify(ctx, id, func(s *Session, _ redis.Pipeliner) {
		s.HashedRefreshToken = hash
	})
}

func (r *RedisRepository) FindValid(ctx context.Context, id, userID string) (*Session, error) {
	s, err := r.get(ctx, r.client, id)
	if err != nil || s == nil {
		return nil, err
	}
	if s.UserID != userID || !s.IsValid {
		return nil, nil
	}
	return s, nil
}

func (r *RedisRepository) ListValidByUser(ctx context.Context, userID string) ([]*Session, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Session, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var s Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, err
		}
		if s.IsValid && s.UserID == userID {
			out = append(out, &s)
		}
	}
	return out, nil
}

func (r *RedisRepository) Invalidate(ctx context.Context, id string) error {
	err := r.modify(ctx, id, func(s *Session, pipe redis.Pipeliner) {
		s.IsValid = false
		pipe.SRem(ctx, r.userKey(s.UserID), s.ID)
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (r *RedisRepository) InvalidateAllByUser(ctx context.Context, userID string) (int64, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		var changed bool
		err := r.modify(ctx, id, func(s *Session, pipe redis.Pipeliner) {
			changed = s.IsValid
			s.IsValid = false
			pipe.SRem(ctx, r.userKey(userID), s.ID)
		})
		if errors.Is(err, ErrNotFound) {
			r.client.SRem(ctx, r.userKey(userID), id)
			continue
		}
		if err != nil {
			return n, err
		}
		if changed {
			n++
		}
	}
	return n, nil
}
