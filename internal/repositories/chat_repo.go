package repositories

import (
	"context"

	"salechat-gin/internal/models"

	"gorm.io/gorm"
)

// ===========================================================================
// Chat Repository GORM Implementation
// ===========================================================================

// chatRepo triển khai ChatRepository với GORM
type chatRepo struct {
	db *gorm.DB
}

// NewChatRepository tạo instance mới của ChatRepository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepo{db: db}
}

// Create lưu tin nhắn mới, Postgres gán id bigserial tăng dần
func (r *chatRepo) Create(ctx context.Context, chat *models.Chat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

// Update lưu lại tin nhắn
func (r *chatRepo) Update(ctx context.Context, chat *models.Chat) error {
	return r.db.WithContext(ctx).Save(chat).Error
}

// FindUnreadFromUser lấy các tin nhắn SENT từ customer key tới saler
func (r *chatRepo) FindUnreadFromUser(ctx context.Context, userKey string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Where("from_user = ? AND to_user = ? AND status = ?",
			userKey, models.SaleChannelKey, models.StatusSent).
		Order("id ASC").
		Find(&chats).Error
	return chats, err
}

// MarkSeen chuyển các tin nhắn sang SEEN
func (r *chatRepo) MarkSeen(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id IN ?", ids).
		Update("status", models.StatusSeen).Error
}

// FindConversation lấy hội thoại giữa hai key theo thứ tự thời gian
func (r *chatRepo) FindConversation(ctx context.Context, currentUser, otherUser string) ([]ChatMessageView, error) {
	var views []ChatMessageView
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.id,
		       c.content,
		       to_char(c.created_at, 'HH24:MI') AS time,
		       c.status,
		       c.type,
		       (c.from_user = ?) AS is_sender
		FROM chat c
		WHERE (c.from_user = ? AND c.to_user = ?)
		   OR (c.from_user = ? AND c.to_user = ?)
		ORDER BY c.id ASC`,
		currentUser,
		currentUser, otherUser,
		otherUser, currentUser,
	).Scan(&views).Error
	return views, err
}

// FindSummaries lấy dòng tóm tắt mới nhất của từng khách cho dashboard sale
// Mỗi khách một dòng: tin nhắn cuối + số tin chưa đọc
func (r *chatRepo) FindSummaries(ctx context.Context) ([]ChatSummary, error) {
	var summaries []ChatSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT user_id, name, last_message, time, unread_count
		FROM (
			SELECT
				CASE WHEN c1.from_user = ? THEN c1.to_user ELSE c1.from_user END AS user_id,
				CASE WHEN c1.from_user = ? THEN c1.to_name ELSE c1.from_name END AS name,
				CASE
					WHEN c1.type = 'image' AND c1.from_user = ? THEN 'Saler: Đã gửi 1 ảnh'
					WHEN c1.type = 'image' THEN 'Khách: Đã gửi 1 ảnh'
					WHEN c1.from_user = ? THEN 'Saler: ' || c1.content
					ELSE 'Khách: ' || c1.content
				END AS last_message,
				to_char(c1.created_at, 'HH24:MI') AS time,
				c1.created_at,
				ROW_NUMBER() OVER (
					PARTITION BY CASE WHEN c1.from_user = ? THEN c1.to_user ELSE c1.from_user END
					ORDER BY c1.created_at DESC, c1.id DESC
				) AS rn,
				(
					SELECT COUNT(*)
					FROM chat c2
					WHERE c2.from_user = CASE WHEN c1.from_user = ? THEN c1.to_user ELSE c1.from_user END
					  AND c2.to_user = ?
					  AND c2.status = 'SENT'
				) AS unread_count
			FROM chat c1
			WHERE c1.from_user = ? OR c1.to_user = ?
		) t
		WHERE rn = 1
		ORDER BY created_at DESC`,
		models.SaleChannelKey, models.SaleChannelKey, models.SaleChannelKey,
		models.SaleChannelKey, models.SaleChannelKey, models.SaleChannelKey,
		models.SaleChannelKey, models.SaleChannelKey, models.SaleChannelKey,
	).Scan(&summaries).Error
	return summaries, err
}
