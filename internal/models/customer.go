package models

import "time"

// ===========================================================================
// Customer (Khách hàng từ kênh ngoài)
// Cache tên hiển thị cho contact Facebook để không phải gọi Graph API
// mỗi lần webhook đến
// ===========================================================================

// Customer một contact từ kênh ngoài (hiện tại chỉ Facebook)
type Customer struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// PSID page-scoped id của user trên Facebook
	PSID string `gorm:"size:64;not null;uniqueIndex" json:"psid"`

	// Name tên hiển thị lấy từ Graph API
	Name string `gorm:"size:255" json:"name"`

	// Source kênh nguồn (facebook)
	Source string `gorm:"size:32;not null" json:"source"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"createdAt"`
}

// TableName trả về tên bảng
func (Customer) TableName() string {
	return "customers"
}
