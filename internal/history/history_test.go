package history

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore() *Store {
	return NewStore(NewMemoryListStore(), zap.NewNop())
}

func TestAddMessageAndReadBack(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.AddMessage(ctx, "42", "Lan", "xin chào")
	s.AddMessage(ctx, "42", "Tôi", "chào bạn")

	entries := s.Conversation(ctx, "42")
	require.Len(t, entries, 2)

	// Mới nhất trước
	assert.Equal(t, Entry{Role: "Tôi", Content: "chào bạn"}, entries[0])
	assert.Equal(t, Entry{Role: "Lan", Content: "xin chào"}, entries[1])
}

func TestConversationCappedAtTen(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		s.AddMessage(ctx, "42", "Lan", fmt.Sprintf("msg-%d", i))
	}

	entries := s.Conversation(ctx, "42")
	require.Len(t, entries, 10)

	// Giữ 10 entry mới nhất, entry cũ nhất bị evict
	assert.Equal(t, "msg-24", entries[0].Content)
	assert.Equal(t, "msg-15", entries[9].Content)
}

func TestImageHintsCappedAtTen(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		s.AddImageHint(ctx, "fb:999", fmt.Sprintf("SP%02d", i))
	}

	hints := s.ImageHints(ctx, "fb:999")
	require.Len(t, hints, 10)
	assert.Equal(t, "Đã gửi ảnh mã SP11", hints[0])
	assert.Equal(t, "Đã gửi ảnh mã SP02", hints[9])
}

func TestHistoryIsolatedPerUser(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.AddMessage(ctx, "42", "Lan", "a")
	s.AddMessage(ctx, "guest-xyz", "Khách", "b")

	assert.Len(t, s.Conversation(ctx, "42"), 1)
	assert.Len(t, s.Conversation(ctx, "guest-xyz"), 1)
	assert.Empty(t, s.Conversation(ctx, "fb:999"))
}

func TestEmptyUserKeyIgnored(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.AddMessage(ctx, "", "Lan", "x")
	s.AddImageHint(ctx, "", "SP01")

	assert.Empty(t, s.Conversation(ctx, ""))
	assert.Empty(t, s.ImageHints(ctx, ""))
}

func TestConcurrentAppendsNeverExceedCap(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.AddMessage(ctx, "42", "Lan", fmt.Sprintf("w%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, len(s.Conversation(ctx, "42")), 10)
}
