package history

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// ===========================================================================
// Conversation History Store
// Ring buffer giới hạn theo customer key: giữ 10 entry mới nhất,
// entry cũ nhất bị đẩy ra (left-push + trim)
// Hai producer cùng ghi vào một buffer: lượt chat text và image hint
// Dùng cho cả UI danh sách hội thoại lẫn context prompt cho AI
// ===========================================================================

const (
	// convKeyPrefix key Redis cho lịch sử hội thoại theo customer key
	convKeyPrefix = "conv:"

	// imageKeyPrefix key Redis cho danh sách ảnh khách đã gửi
	imageKeyPrefix = "user_image_history:"

	// maxEntries số entry tối đa giữ lại cho mỗi customer key
	maxEntries = 10
)

// Entry một cặp role/content trong lịch sử hội thoại
// Role là tên hiển thị người gửi, "Tôi" cho sale/AI,
// hoặc literal cố định cho image hint
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store lưu lịch sử hội thoại và image hint trên một ListStore
type Store struct {
	lists  ListStore
	logger *zap.Logger
}

// NewStore tạo history store mới
func NewStore(lists ListStore, logger *zap.Logger) *Store {
	return &Store{lists: lists, logger: logger}
}

// AddMessage thêm một lượt chat vào lịch sử của customer key
// Push vào đầu danh sách và trim giữ tối đa 10 entry
func (s *Store) AddMessage(ctx context.Context, userKey, role, content string) {
	if userKey == "" {
		return
	}

	raw, err := json.Marshal(Entry{Role: role, Content: content})
	if err != nil {
		s.logger.Warn("marshal history entry failed", zap.Error(err))
		return
	}

	key := convKeyPrefix + userKey
	if err := s.lists.LPush(ctx, key, string(raw)); err != nil {
		s.logger.Warn("push history entry failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		return
	}
	if err := s.lists.Trim(ctx, key, 0, maxEntries-1); err != nil {
		s.logger.Warn("trim history failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
	}
}

// Conversation trả về lịch sử hội thoại của customer key, mới nhất trước
// Entry không parse được trả về với role rỗng thay vì bị drop
func (s *Store) Conversation(ctx context.Context, userKey string) []Entry {
	raw, err := s.lists.Range(ctx, convKeyPrefix+userKey, 0, -1)
	if err != nil {
		s.logger.Warn("read history failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		return nil
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			e = Entry{Role: "", Content: item}
		}
		entries = append(entries, e)
	}
	return entries
}

// AddImageHint ghi nhận mã sản phẩm nhận diện được từ ảnh khách gửi
// Giữ 10 hint mới nhất, hint cũ hơn bị loại bỏ
func (s *Store) AddImageHint(ctx context.Context, userKey, productCode string) {
	if userKey == "" || productCode == "" {
		return
	}

	key := imageKeyPrefix + userKey
	entry := "Đã gửi ảnh mã " + productCode

	if err := s.lists.LPush(ctx, key, entry); err != nil {
		s.logger.Warn("push image hint failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		return
	}
	if err := s.lists.Trim(ctx, key, 0, maxEntries-1); err != nil {
		s.logger.Warn("trim image hints failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
	}
}

// ImageHints trả về các image hint của customer key, mới nhất trước
func (s *Store) ImageHints(ctx context.Context, userKey string) []string {
	hints, err := s.lists.Range(ctx, imageKeyPrefix+userKey, 0, -1)
	if err != nil {
		s.logger.Warn("read image hints failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		return nil
	}
	return hints
}
