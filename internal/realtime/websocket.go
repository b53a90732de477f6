package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
)

// ===========================================================================
// WSSession
// Bọc một gorilla websocket connection thành Session
// Gorilla chỉ cho phép một concurrent writer, nên Send giữ mutex
// ===========================================================================

// Frame một message đẩy xuống client qua websocket
// Destination mô phỏng topic: client filter theo destination
type Frame struct {
	Destination string      `json:"destination"`
	Body        interface{} `json:"body"`
}

// WSSession một websocket connection đã handshake
type WSSession struct {
	key  string
	conn *websocket.Conn

	// writeMu serialize các lần ghi lên connection
	writeMu sync.Mutex
}

// NewWSSession tạo session từ connection đã upgrade
func NewWSSession(key string, conn *websocket.Conn) *WSSession {
	return &WSSession{key: key, conn: conn}
}

// Key trả về danh tính của session
func (s *WSSession) Key() string { return s.key }

// Send đẩy một frame xuống client
// Lỗi ghi (connection chết) trả về cho hub log rồi bỏ qua
func (s *WSSession) Send(destination string, payload interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.conn.WriteJSON(Frame{Destination: destination, Body: payload})
}

// ReadJSON đọc một frame JSON từ client (dùng bởi ws handler loop)
func (s *WSSession) ReadJSON(v interface{}) error {
	return s.conn.ReadJSON(v)
}

// Close đóng connection
func (s *WSSession) Close() error {
	return s.conn.Close()
}
