package repositories

import (
	"context"
	"errors"

	"salechat-gin/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ===========================================================================
// AI Setting Repository GORM Implementation
// ===========================================================================

// aiSettingRepo triển khai AISettingRepository với GORM
type aiSettingRepo struct {
	db *gorm.DB
}

// NewAISettingRepository tạo instance mới của AISettingRepository
func NewAISettingRepository(db *gorm.DB) AISettingRepository {
	return &aiSettingRepo{db: db}
}

// Get trả về cài đặt AI của customer key
// Chưa có dòng nào -> default tắt, không phải lỗi
func (r *aiSettingRepo) Get(ctx context.Context, userKey string) (*models.UserAISetting, error) {
	var setting models.UserAISetting
	err := r.db.WithContext(ctx).First(&setting, "user_id = ?", userKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.UserAISetting{UserID: userKey, AIEnabled: false}, nil
		}
		return nil, err
	}
	return &setting, nil
}

// Upsert tạo hoặc cập nhật cài đặt theo user_id
func (r *aiSettingRepo) Upsert(ctx context.Context, setting *models.UserAISetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"ai_enabled"}),
		}).
		Create(setting).Error
}
