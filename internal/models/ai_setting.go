package models

// ===========================================================================
// UserAISetting (Cài đặt AI theo khách hàng)
// Bật/tắt AI trả lời tự động cho từng customer key, mặc định tắt
// ===========================================================================

// UserAISetting một dòng cho mỗi customer key
type UserAISetting struct {
	// UserID canonical customer key (web user id, guest token, fb:<psid>)
	UserID string `gorm:"primaryKey;size:128" json:"userId"`

	// AIEnabled AI có tự động trả lời khách này không
	AIEnabled bool `gorm:"not null;default:false" json:"aiEnabled"`
}

// TableName trả về tên bảng
func (UserAISetting) TableName() string {
	return "user_ai_settings"
}
