package channel

import (
	"context"
)

// ===========================================================================
// Các interfaces cho hệ thống channel messaging
// Channel là một kênh ngoài (Facebook, mock, sau này Zalo)
// Kênh native (websocket) không đi qua đây, relay đẩy thẳng qua hub
// ===========================================================================

// InboundEvent một sự kiện đã chuẩn hóa từ webhook của kênh ngoài
// Mỗi event hoặc là text hoặc là một ảnh đính kèm
type InboundEvent struct {
	// SenderID id người gửi trên kênh đó (với Facebook là page-scoped id)
	SenderID string

	// MessageID id tin nhắn gốc từ kênh (dùng cho dedup/debug)
	MessageID string

	// Text nội dung văn bản (rỗng nếu là ảnh)
	Text string

	// ImageURL URL ảnh đính kèm (rỗng nếu là text)
	ImageURL string

	// Timestamp epoch millis từ kênh
	Timestamp int64
}

// IsImage kiểm tra event có phải ảnh đính kèm không
func (e *InboundEvent) IsImage() bool {
	return e.ImageURL != ""
}

// Sender gửi tin nhắn text ra kênh ngoài
// Trả về message id do kênh cấp; lỗi nghĩa là chưa gửi được
// (relay giữ status SENDING, không bao giờ đánh SENT trước)
type Sender interface {
	// SendText gửi text tới người nhận theo customer key
	SendText(ctx context.Context, recipientKey, text string) (string, error)
}

// SignatureVerifier xác thực chữ ký webhook
// Đảm bảo webhook đến từ đúng nguồn và không bị tamper
type SignatureVerifier interface {
	// Verify kiểm tra chữ ký của request body
	Verify(signature string, body []byte) bool
}

// Channel interface tổng hợp cho một channel adapter
type Channel interface {
	Sender
	SignatureVerifier

	// Type trả về loại channel
	Type() string
}
