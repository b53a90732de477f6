package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ===========================================================================
// MockChannel là channel adapter dùng để testing
// Không cần credentials thật, simulate việc gửi tin nhắn ra kênh ngoài
// ===========================================================================

// SentRecord một tin nhắn MockChannel đã "gửi"
type SentRecord struct {
	RecipientKey string
	Text         string
	MessageID    string
}

// MockChannel implement Channel interface cho mục đích testing
type MockChannel struct {
	logger *zap.Logger

	mu sync.Mutex

	// sent lưu các tin nhắn đã "gửi" (để verify trong tests)
	sent []SentRecord

	// FailNext khi true, lần SendText kế tiếp trả lỗi rồi tự reset
	FailNext bool
}

// NewMockChannel tạo một MockChannel mới
func NewMockChannel(logger *zap.Logger) *MockChannel {
	return &MockChannel{
		logger: logger,
		sent:   make([]SentRecord, 0),
	}
}

// Type trả về loại channel - "mock"
func (m *MockChannel) Type() string {
	return "mock"
}

// SendText "gửi" tin nhắn (thực tế chỉ log và lưu lại để testing)
func (m *MockChannel) SendText(ctx context.Context, recipientKey, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return "", fmt.Errorf("mock channel: lỗi giả lập")
	}

	if recipientKey == "" {
		return "", fmt.Errorf("recipient key không được để trống")
	}

	messageID := fmt.Sprintf("mock_sent_%d", time.Now().UnixNano())

	m.logger.Info("mock channel: đã gửi tin nhắn",
		zap.String("recipient", recipientKey),
		zap.String("message_id", messageID),
	)

	m.sent = append(m.sent, SentRecord{
		RecipientKey: recipientKey,
		Text:         text,
		MessageID:    messageID,
	})

	return messageID, nil
}

// Verify luôn trả về true cho mock channel (không cần xác thực)
func (m *MockChannel) Verify(signature string, body []byte) bool {
	return true
}

// ===========================================================================
// Testing helpers
// ===========================================================================

// Sent trả về bản copy danh sách tin nhắn đã gửi
func (m *MockChannel) Sent() []SentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentRecord, len(m.sent))
	copy(out, m.sent)
	return out
}

// LastSent trả về tin nhắn cuối cùng đã gửi, nil nếu chưa gửi gì
func (m *MockChannel) LastSent() *SentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		return nil
	}
	rec := m.sent[len(m.sent)-1]
	return &rec
}

// Reset xóa danh sách tin nhắn đã gửi
func (m *MockChannel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = m.sent[:0]
}
