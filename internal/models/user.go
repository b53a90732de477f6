package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ===========================================================================
// User (Tài khoản nhân viên)
// Đại diện cho sale agent / admin đăng nhập dashboard chat
// KHÔNG phải khách hàng (khách hàng chỉ là customer key)
// ===========================================================================

// UserRole các vai trò người dùng
type UserRole string

const (
	// RoleAdmin quản trị viên, quản lý tài khoản và cài đặt
	RoleAdmin UserRole = "admin"

	// RoleSaler nhân viên sale, chat với khách hàng
	RoleSaler UserRole = "saler"
)

// User đại diện cho tài khoản nhân viên
type User struct {
	BaseModel

	// Email địa chỉ email đăng nhập (unique)
	Email string `gorm:"size:255;not null;uniqueIndex" json:"email"`

	// PasswordHash mật khẩu đã hash (KHÔNG bao giờ trả về trong JSON)
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	// RefreshTokenHash hash của refresh token hiện tại (KHÔNG trả về trong JSON)
	// Dùng để validate và revoke refresh token
	RefreshTokenHash *string `gorm:"size:255" json:"-"`

	// Name tên hiển thị
	Name string `gorm:"size:255;not null" json:"name"`

	// Role vai trò: admin, saler
	Role UserRole `gorm:"size:50;not null;default:'saler'" json:"role"`

	// IsActive tài khoản có active không
	IsActive bool `gorm:"default:true" json:"is_active"`

	// LastSeenAt lần cuối online
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// TableName trả về tên bảng
func (User) TableName() string {
	return "users"
}

// SetPassword hash và set password
// Sử dụng bcrypt với cost mặc định
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword kiểm tra password có đúng không
// Trả về true nếu đúng, false nếu sai
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IsAdmin kiểm tra user có quyền admin không
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UpdateLastSeen cập nhật thời gian online gần nhất
func (u *User) UpdateLastSeen() {
	now := time.Now()
	u.LastSeenAt = &now
}
