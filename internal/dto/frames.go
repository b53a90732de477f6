package dto

// ===========================================================================
// Push Frames
// Các payload đẩy qua websocket tới dashboard sale và khách hàng
// Field names giữ nguyên theo giao thức client (camelCase)
// ===========================================================================

// ChatFrame tin nhắn mới fan-out cho dashboard sale (/queue/sale)
type ChatFrame struct {
	ID        int64  `json:"id"`
	From      string `json:"from"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// AckFrame xác nhận lưu thành công gửi lại cho người gửi
type AckFrame struct {
	ID        int64  `json:"id"`
	ClientID  string `json:"clientId,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// ListChatFrame cập nhật dòng tóm tắt danh sách hội thoại (/queue/sale/listchat)
type ListChatFrame struct {
	UserID  string `json:"userId"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// StreamFrame một chunk của câu trả lời AI đang streaming
// Partial=true là token giữa chừng, Partial=false là frame kết thúc
// Status="ERROR" là notice lỗi (không có tin nhắn nào được lưu)
type StreamFrame struct {
	ID         int64  `json:"id,omitempty"`
	Type       string `json:"type"`
	Content    string `json:"content"`
	Partial    bool   `json:"partial"`
	From       string `json:"from,omitempty"`
	FromName   string `json:"fromName,omitempty"`
	AIResponse bool   `json:"aiResponse,omitempty"`
	Status     string `json:"status,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// SeenFrame thông báo cho khách các tin nhắn vừa được sale xem
type SeenFrame struct {
	UpdatedMessageIDs []int64 `json:"updatedMessageIds"`
	Status            string  `json:"status"`
}
