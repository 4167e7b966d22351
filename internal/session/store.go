package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists the raw storage values per session id.
type Store interface {
	Load(ctx context.Context, sid string) (map[string]string, error)
	Save(ctx context.Context, sid string, fields map[string]string) error
	Delete(ctx context.Context, sid string) error
	IDs(ctx context.Context) ([]string, error)
}

// MemoryStore keeps sessions in process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (m *MemoryStore) Load(_ context.Context, sid string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.data[sid]
	if !ok {
		return nil, nil
	}
	out := make(map[string]string, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, sid string, fields map[string]string) error {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	m.mu.Lock()
	m.data[sid] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	delete(m.data, sid)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) IDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// RedisStore keeps each session in one hash so the three values share a
// key and an expiry.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if rdb == nil {
		panic("nil redis client")
	}
	if prefix == "" {
		prefix = "sess"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(sid string) string { return r.prefix + ":" + sid }

func (r *RedisStore) Load(ctx context.Context, sid string) (map[string]string, error) {
	f, err := r.rdb.HGetAll(ctx, r.key(sid)).Result()
	if errors.Is(err, redis.Nil) || len(f) == 0 {
		return nil, nil
	}
	return f, err
}

func (r *RedisStore) Save(ctx context.Context, sid string, fields map[string]string) error {
	k := r.key(sid)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, fields)
		if r.ttl > 0 {
			p.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	return err
}

func (r *RedisStore) Delete(ctx context.Context, sid string) error {
	return r.rdb.Del(ctx, r.key(sid)).Err()
}

func (r *RedisStore) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(r.prefix)+1:])
	}
	return ids, iter.Err()
}
