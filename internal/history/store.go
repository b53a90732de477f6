package history

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ===========================================================================
// ListStore
// Abstraction cho list-like per-key storage (left-push, range, trim)
// Production dùng Redis list; tests dùng in-memory implementation
// ===========================================================================

// ListStore các thao tác list cần cho history
type ListStore interface {
	// LPush đẩy value vào đầu danh sách
	LPush(ctx context.Context, key string, value string) error

	// Range đọc các phần tử từ start đến stop (inclusive, -1 = cuối)
	Range(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Trim cắt danh sách chỉ giữ các phần tử từ start đến stop
	Trim(ctx context.Context, key string, start, stop int64) error
}

// ===========================================================================
// Redis implementation
// ===========================================================================

// redisListStore triển khai ListStore với Redis
type redisListStore struct {
	rdb *redis.Client
}

// NewRedisListStore tạo ListStore trên Redis client
func NewRedisListStore(rdb *redis.Client) ListStore {
	return &redisListStore{rdb: rdb}
}

func (s *redisListStore) LPush(ctx context.Context, key string, value string) error {
	return s.rdb.LPush(ctx, key, value).Err()
}

func (s *redisListStore) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.rdb.LRange(ctx, key, start, stop).Result()
}

func (s *redisListStore) Trim(ctx context.Context, key string, start, stop int64) error {
	return s.rdb.LTrim(ctx, key, start, stop).Err()
}

// ===========================================================================
// In-memory implementation (dùng cho tests và chạy không có Redis)
// ===========================================================================

// memoryListStore triển khai ListStore trong bộ nhớ, an toàn concurrent
type memoryListStore struct {
	mu    sync.Mutex
	lists map[string][]string
}

// NewMemoryListStore tạo ListStore trong bộ nhớ
func NewMemoryListStore() ListStore {
	return &memoryListStore{lists: make(map[string][]string)}
}

func (s *memoryListStore) LPush(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists[key] = append([]string{value}, s.lists[key]...)
	return nil
}

func (s *memoryListStore) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	n := int64(len(list))
	if n == 0 {
		return nil, nil
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}

	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (s *memoryListStore) Trim(ctx context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	n := int64(len(list))
	if n == 0 {
		return nil
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		s.lists[key] = nil
		return nil
	}

	s.lists[key] = list[start : stop+1]
	return nil
}
