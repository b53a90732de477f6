package repositories

import (
	"context"

	"salechat-gin/internal/models"

	"gorm.io/gorm"
)

// ===========================================================================
// Customer Repository GORM Implementation
// ===========================================================================

// customerRepo triển khai CustomerRepository với GORM
type customerRepo struct {
	db *gorm.DB
}

// NewCustomerRepository tạo instance mới của CustomerRepository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepo{db: db}
}

// FindByPSID tìm contact Facebook theo page-scoped id
func (r *customerRepo) FindByPSID(ctx context.Context, psid string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "psid = ?", psid).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// Create lưu contact mới
func (r *customerRepo) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}
