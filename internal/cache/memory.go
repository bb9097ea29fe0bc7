package cache

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when redis is unreachable.
// Cached responses then stop being shared across contexts, but the current
// process keeps working instead of losing caching entirely.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]memoryValue
	sets    map[string]map[string]struct{}
	zsets   map[string]map[string]float64
	nowFunc func() time.Time
}

type memoryValue struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string]memoryValue),
		sets:    make(map[string]map[string]struct{}),
		zsets:   make(map[string]map[string]float64),
		nowFunc: time.Now,
	}
}

// SetTimeProvider overrides the clock (used by tests).
func (m *MemoryStore) SetTimeProvider(now func() time.Time) {
	m.nowFunc = now
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !v.expiresAt.IsZero() && m.nowFunc().After(v.expiresAt) {
		m.mu.Lock()
		delete(m.values, key)
		m.mu.Unlock()
		return nil, nil
	}
	return v.data, nil
}

func (m *MemoryStore) Set(key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.nowFunc().Add(ttl)
	}
	m.mu.Lock()
	m.values[key] = memoryValue{data: value, expiresAt: expiresAt}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	delete(m.values, key)
	delete(m.sets, key)
	delete(m.zsets, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SetAdd(key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]struct{})
	}
	for _, member := range members {
		m.sets[key][member] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) SetRemove(key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *MemoryStore) SetMembers(key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (m *MemoryStore) ZAdd(key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

func (m *MemoryStore) ZCard(key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.zsets[key])), nil
}

func (m *MemoryStore) ZRangeOldest(key string, n int64) ([]string, error) {
	members := m.sortedMembers(key)
	if n >= 0 && int64(len(members)) > n {
		members = members[:n]
	}
	return members, nil
}

func (m *MemoryStore) ZRangeByScoreBelow(key string, max float64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var members []string
	for member, score := range m.zsets[key] {
		if score <= max {
			members = append(members, member)
		}
	}
	sort.Strings(members)
	return members, nil
}

func (m *MemoryStore) ZRem(key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.zsets[key], member)
	}
	return nil
}

func (m *MemoryStore) Ping() error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) sortedMembers(key string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.zsets[key]
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		if set[members[i]] == set[members[j]] {
			return members[i] < members[j]
		}
		return set[members[i]] < set[members[j]]
	})
	return members
}
