package dto

// ===========================================================================
// Request DTOs (Data Transfer Objects)
// Các struct dùng để validate và parse request body/query
// ===========================================================================

// UserMessageRequest body của frame userMessage trên websocket
type UserMessageRequest struct {
	// User customer key của người gửi
	User string `json:"user"`

	// Name tên hiển thị (có thể rỗng với guest)
	Name string `json:"name"`

	// Type loại tin nhắn: message hoặc image
	Type string `json:"type"`

	// Content nội dung text hoặc URL ảnh
	Content string `json:"content"`

	// ClientID id tạm phía client để match ack
	ClientID string `json:"clientId"`
}

// SaleMessageRequest body của frame saleMessage trên websocket
type SaleMessageRequest struct {
	// To customer key người nhận (web user, guest hoặc fb:<psid>)
	To string `json:"to"`

	// ToName tên hiển thị người nhận
	ToName string `json:"toName"`

	// Type loại tin nhắn: message hoặc image
	Type string `json:"type"`

	// Content nội dung tin nhắn
	Content string `json:"content"`

	// ClientID id tạm phía dashboard để match ack
	ClientID string `json:"clientId"`

	// AIMode bật: tin của sale là câu hỏi cho AI thay vì gửi thẳng
	AIMode bool `json:"aiMode"`
}

// MarkReadRequest request đánh dấu đã đọc hội thoại của một khách
type MarkReadRequest struct {
	// UserID customer key có tin nhắn cần đánh dấu SEEN
	UserID string `json:"userId" binding:"required"`
}
