package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache is the key-value store GET responses are cached in. Values are opaque
// byte slices; the SDK encodes responses itself.
//
// Get reports a missing or expired key with found == false and a nil error.
// A ttl of zero passed to Set means the entry does not expire (or uses the
// backend's default).
//
// MemoryCache is the in-process implementation. Redis and PostgreSQL backed
// implementations live with the birbpay command.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// cachedResponse is the stored form of a response
type cachedResponse struct {
	StatusCode int         `json:"status"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body,omitempty"`
	StoredAt   time.Time   `json:"stored_at"`
}

func encodeCachedResponse(resp *Response) ([]byte, error) {
	return json.Marshal(cachedResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
		StoredAt:   time.Now().UTC(),
	})
}

func decodeCachedResponse(data []byte) (*Response, error) {
	var entry cachedResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Header,
		Body:       entry.Body,
		FromCache:  true,
	}, nil
}

// MemoryCache is a sharded, expiring in-memory Cache. It is safe for
// concurrent use. Expired entries are dropped lazily on access.
//
// Example:
//
//	client, err := sdk.NewClient(cfg, sdk.WithCacheStore(sdk.NewMemoryCache()))
type MemoryCache struct {
	shards []*memoryShard
}

type memoryShard struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

const memoryCacheShards = 16

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	shards := make([]*memoryShard, memoryCacheShards)
	for i := range shards {
		shards[i] = &memoryShard{items: make(map[string]memoryItem)}
	}
	return &MemoryCache{shards: shards}
}

func (m *MemoryCache) shard(key string) *memoryShard {
	return m.shards[xxhash.Sum64String(key)%uint64(len(m.shards))]
}

// Get implements Cache
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	s := m.shard(key)
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if item.expired(time.Now()) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expired(time.Now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), item.value...), true, nil
}

// Set implements Cache
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}
	s := m.shard(key)
	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return nil
}

// Delete implements Cache
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	s := m.shard(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included.
func (m *MemoryCache) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
