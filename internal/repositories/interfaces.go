package repositories

import (
	"context"

	"salechat-gin/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Repository Interfaces
// Services và handlers chỉ phụ thuộc vào interface, tests dùng fake
// ===========================================================================

// ChatSummary một dòng trong danh sách hội thoại bên dashboard sale
type ChatSummary struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	LastMessage string `json:"lastMessage"`
	Time        string `json:"time"`
	UnreadCount int64  `json:"unreadCount"`
}

// ChatMessageView một tin nhắn trong view hội thoại
type ChatMessageView struct {
	ID       int64             `json:"id"`
	Content  string            `json:"content"`
	Time     string            `json:"time"`
	Status   models.ChatStatus `json:"status"`
	Type     models.ChatType   `json:"type"`
	IsSender bool              `json:"isSender"`
}

// ChatRepository data access cho tin nhắn chat
type ChatRepository interface {
	// Create lưu tin nhắn mới, gán id tăng dần
	Create(ctx context.Context, chat *models.Chat) error

	// Update lưu lại tin nhắn (chỉ status được phép thay đổi)
	Update(ctx context.Context, chat *models.Chat) error

	// FindUnreadFromUser lấy các tin nhắn SENT từ customer key tới saler
	FindUnreadFromUser(ctx context.Context, userKey string) ([]models.Chat, error)

	// MarkSeen chuyển danh sách tin nhắn sang SEEN
	MarkSeen(ctx context.Context, ids []int64) error

	// FindConversation lấy hội thoại giữa hai key, theo thứ tự thời gian
	FindConversation(ctx context.Context, currentUser, otherUser string) ([]ChatMessageView, error)

	// FindSummaries lấy tóm tắt hội thoại mới nhất của từng khách cho saler
	FindSummaries(ctx context.Context) ([]ChatSummary, error)
}

// AISettingRepository data access cho cài đặt AI theo khách
type AISettingRepository interface {
	// Get trả về cài đặt của customer key, default tắt nếu chưa có dòng nào
	Get(ctx context.Context, userKey string) (*models.UserAISetting, error)

	// Upsert tạo hoặc cập nhật cài đặt
	Upsert(ctx context.Context, setting *models.UserAISetting) error
}

// CustomerRepository data access cho contact từ kênh ngoài
type CustomerRepository interface {
	// FindByPSID tìm contact Facebook theo page-scoped id
	FindByPSID(ctx context.Context, psid string) (*models.Customer, error)

	// Create lưu contact mới
	Create(ctx context.Context, customer *models.Customer) error
}

// UserRepository data access cho tài khoản nhân viên
type UserRepository interface {
	// FindByID tìm user theo ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// FindByEmail tìm user active theo email (cho login)
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// Create tạo user mới
	Create(ctx context.Context, user *models.User) error

	// Update cập nhật user
	Update(ctx context.Context, user *models.User) error
}
