package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// ===========================================================================
// Hub (Presence registry + fan-out)
// Theo dõi các session sale đang online và connection của từng khách hàng
// Thread-safe: register/unregister atomic theo key, fan-out snapshot rồi
// iterate, gửi tới session vừa disconnect là no-op, không phải lỗi
// ===========================================================================

// Các destination fan-out, giữ nguyên theo giao thức client
const (
	// DestSale tin nhắn mới cho dashboard sale
	DestSale = "/queue/sale"

	// DestSaleListChat cập nhật dòng tóm tắt danh sách hội thoại
	DestSaleListChat = "/queue/sale/listchat"

	// DestUser queue riêng của mỗi khách hàng
	DestUser = "/queue/user"
)

// Session một connection sống có thể nhận push
// Send phải an toàn khi gọi từ nhiều goroutine
type Session interface {
	// Key danh tính của session (agent session key hoặc customer key)
	Key() string

	// Send đẩy payload tới destination trên connection này
	Send(destination string, payload interface{}) error
}

// Pusher surface fan-out mà relay và AI orchestrator cần
// Tests thay bằng fake để assert target nhận gì
type Pusher interface {
	// SendToSales gửi payload tới mọi sale đang online
	SendToSales(destination string, payload interface{})

	// SendToUser gửi payload tới connection của một khách hàng
	// No-op nếu khách không online
	SendToUser(userKey, destination string, payload interface{})
}

// Hub triển khai Pusher trên các websocket session đang mở
type Hub struct {
	mu sync.RWMutex

	// sales các session sale đã đăng ký qua registerSale, key theo session key
	sales map[string]Session

	// users connection của khách hàng, key theo customer key
	users map[string]Session

	logger *zap.Logger
}

// NewHub tạo hub mới
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sales:  make(map[string]Session),
		users:  make(map[string]Session),
		logger: logger,
	}
}

// RegisterSale đăng ký một session sale vào presence registry
// Session cùng key sẽ bị ghi đè (client re-register sau reconnect)
func (h *Hub) RegisterSale(sess Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sales[sess.Key()] = sess
	h.logger.Info("sale registered", zap.String("key", sess.Key()))
}

// UnregisterSale gỡ session sale khỏi registry khi disconnect
func (h *Hub) UnregisterSale(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sales, key)
	h.logger.Info("sale disconnected", zap.String("key", key))
}

// RegisterUser gắn connection của khách hàng theo customer key
func (h *Hub) RegisterUser(sess Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.users[sess.Key()] = sess
}

// UnregisterUser gỡ connection khách hàng
// Chỉ gỡ nếu session hiện tại vẫn là session này (tránh race khi reconnect)
func (h *Hub) UnregisterUser(sess Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.users[sess.Key()]; ok && cur == sess {
		delete(h.users, sess.Key())
	}
}

// SaleCount số lượng sale đang online
func (h *Hub) SaleCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sales)
}

// SendToSales fan-out payload tới mọi sale đang online
// Lỗi gửi của từng target độc lập, không ảnh hưởng target khác
func (h *Hub) SendToSales(destination string, payload interface{}) {
	h.mu.RLock()
	targets := make([]Session, 0, len(h.sales))
	for _, sess := range h.sales {
		targets = append(targets, sess)
	}
	h.mu.RUnlock()

	for _, sess := range targets {
		if err := sess.Send(destination, payload); err != nil {
			h.logger.Debug("send to sale failed",
				zap.String("key", sess.Key()),
				zap.String("destination", destination),
				zap.Error(err),
			)
		}
	}
}

// SendToUser gửi payload tới connection của khách, no-op nếu offline
func (h *Hub) SendToUser(userKey, destination string, payload interface{}) {
	h.mu.RLock()
	sess, ok := h.users[userKey]
	h.mu.RUnlock()

	if !ok {
		return
	}
	if err := sess.Send(destination, payload); err != nil {
		h.logger.Debug("send to user failed",
			zap.String("key", userKey),
			zap.String("destination", destination),
			zap.Error(err),
		)
	}
}
