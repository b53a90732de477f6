package models

// ===========================================================================
// Models Index
// Cung cấp danh sách tất cả models cho GORM AutoMigrate
// ===========================================================================

// AllModels trả về danh sách tất cả models
// Dùng cho database.AutoMigrate() để tự động tạo/update tables
func AllModels() []interface{} {
	return []interface{}{
		&User{},          // Tài khoản nhân viên
		&Chat{},          // Tin nhắn chat
		&Customer{},      // Contact từ kênh ngoài
		&UserAISetting{}, // Cài đặt AI theo khách
	}
}
