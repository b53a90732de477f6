package models

import (
	"time"
)

// ===========================================================================
// Chat (Tin nhắn chat)
// Một tin nhắn giữa khách hàng và kênh sale (hoặc ngược lại)
// Bất biến: to_user luôn là "saler" hoặc một customer key,
// không tồn tại tin nhắn sale-to-sale
// ===========================================================================

// SaleChannelKey là key cố định đại diện cho "bất kỳ sale nào đang online"
const SaleChannelKey = "saler"

// ChatStatus trạng thái gửi tin nhắn
// State machine: SENDING -> SENT -> SEEN (không được bỏ qua SENT)
// RECEIVED được định nghĩa sẵn cho transport-level ack nhưng chưa dùng
type ChatStatus string

const (
	// StatusSending đã lưu nhưng chưa gửi thành công ra kênh ngoài (Facebook)
	StatusSending ChatStatus = "SENDING"

	// StatusSent đã gửi thành công (native path lưu thẳng ở trạng thái này)
	StatusSent ChatStatus = "SENT"

	// StatusReceived reserved cho transport ack, hiện chưa dùng
	StatusReceived ChatStatus = "RECEIVED"

	// StatusSeen khách/sale đã đọc, set qua thao tác markAsRead
	StatusSeen ChatStatus = "SEEN"
)

// ChatType loại nội dung tin nhắn
type ChatType string

const (
	TypeMessage ChatType = "message"
	TypeImage   ChatType = "image"
)

// Chat đại diện cho một tin nhắn đã lưu
// ID tăng dần (bigserial) là bảo đảm thứ tự duy nhất của hệ thống
type Chat struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// FromUser canonical key của người gửi (web user id, guest token,
	// fb:<psid>, hoặc "saler")
	FromUser string `gorm:"size:128;not null;index:idx_chat_from_to" json:"from"`

	// FromName tên hiển thị của người gửi
	FromName string `gorm:"size:255" json:"fromName"`

	// ToUser canonical key người nhận ("saler" hoặc customer key)
	ToUser string `gorm:"size:128;not null;index:idx_chat_from_to" json:"to"`

	// ToName tên hiển thị người nhận
	ToName string `gorm:"size:255" json:"toName"`

	// Type message hoặc image
	Type ChatType `gorm:"size:16;not null" json:"type"`

	// Content nội dung text, hoặc URL ảnh nếu Type == image
	Content string `gorm:"type:text" json:"content"`

	// Status trạng thái gửi, trường duy nhất được phép thay đổi sau khi lưu
	Status ChatStatus `gorm:"size:16;not null" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"createdAt"`
}

// TableName trả về tên bảng
func (Chat) TableName() string {
	return "chat"
}

// IsImage kiểm tra tin nhắn có phải ảnh không
func (c *Chat) IsImage() bool { return c.Type == TypeImage }

// IsFromSaler kiểm tra tin nhắn gửi từ kênh sale
func (c *Chat) IsFromSaler() bool { return c.FromUser == SaleChannelKey }

// TimeHHMM format thời gian tạo theo dạng hiển thị trên UI chat
func (c *Chat) TimeHHMM() string {
	return c.CreatedAt.Format("15:04")
}

// ListPreview trả về dòng tóm tắt cho danh sách hội thoại bên sale
// VD: "Lan: xin chào" hoặc "Saler: Đã gửi 1 ảnh"
func (c *Chat) ListPreview() string {
	who := c.FromName
	if c.IsFromSaler() {
		who = "Saler"
	}
	if c.IsImage() {
		return who + ": Đã gửi 1 ảnh"
	}
	return who + ": " + c.Content
}
