package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memEntry struct {
	data  []byte
	timer *time.Timer
}

// Memory keeps entries in process. Each entry removes itself when its timer
// fires. Values are stored encoded so callers never share mutable state.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memEntry)}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := &memEntry{data: data}
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[key]; ok {
		old.timer.Stop()
	}
	e.timer = time.AfterFunc(ttl, func() { m.expire(key, e) })
	m.entries[key] = e
	return nil
}

func (m *Memory) Evict(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if e, ok := m.entries[k]; ok {
			e.timer.Stop()
			delete(m.entries, k)
		}
	}
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// expire drops key only if it still maps to e; a newer Set wins.
func (m *Memory) expire(key string, e *memEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[key]; ok && cur == e {
		delete(m.entries, key)
	}
}
