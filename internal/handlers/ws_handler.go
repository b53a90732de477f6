package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"salechat-gin/internal/auth"
	"salechat-gin/internal/dto"
	"salechat-gin/internal/identity"
	"salechat-gin/internal/realtime"
	"salechat-gin/internal/relay"
)

// ===========================================================================
// WebSocket Handler
// Hai endpoint: /ws cho khách hàng (web user / guest),
// /ws/sale cho dashboard sale (yêu cầu JWT)
// Mỗi connection một read loop; frame có field action để route
// ===========================================================================

// wsClientFrame frame client gửi lên qua websocket
// Gộp field của cả hai chiều; chiều nào không dùng để rỗng
type wsClientFrame struct {
	// Action loại frame: registerSale, userMessage, saleMessage
	Action string `json:"action"`

	User     string `json:"user"`
	Name     string `json:"name"`
	To       string `json:"to"`
	ToName   string `json:"toName"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	ClientID string `json:"clientId"`
	AIMode   bool   `json:"aiMode"`
}

// WSHandler xử lý websocket connections
type WSHandler struct {
	hub        *realtime.Hub
	relay      *relay.Service
	jwtService *auth.JWTService
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewWSHandler tạo websocket handler mới
func NewWSHandler(
	hub *realtime.Hub,
	relayService *relay.Service,
	jwtService *auth.JWTService,
	logger *zap.Logger,
) *WSHandler {
	return &WSHandler{
		hub:        hub,
		relay:      relayService,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// CORS cho websocket xử lý ở middleware phía trước
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ===========================================================================
// Customer endpoint
// ===========================================================================

// CustomerWS nâng cấp connection cho khách hàng
// GET /ws?user=<id-hoặc-token>&name=<tên>
func (h *WSHandler) CustomerWS(c *gin.Context) {
	ident := identity.Resolve(c.Query("user"))
	userKey := ident.Key()
	name := c.Query("name")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	sess := realtime.NewWSSession(userKey, conn)
	h.hub.RegisterUser(sess)

	h.logger.Info("customer connected",
		zap.String("key", userKey),
		zap.String("kind", ident.Kind().String()),
	)

	defer func() {
		h.hub.UnregisterUser(sess)
		sess.Close()
		h.logger.Info("customer disconnected", zap.String("key", userKey))
	}()

	for {
		var frame wsClientFrame
		if err := sess.ReadJSON(&frame); err != nil {
			return
		}

		if frame.Action != "userMessage" {
			continue
		}

		// Danh tính lấy từ handshake, không tin field trong frame
		msg := dto.UserMessageRequest{
			User:     userKey,
			Name:     frame.Name,
			Type:     frame.Type,
			Content:  frame.Content,
			ClientID: frame.ClientID,
		}
		if msg.Name == "" {
			msg.Name = name
		}

		// Mỗi frame một goroutine: AI streaming không chặn read loop
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if _, err := h.relay.HandleUserMessage(ctx, msg); err != nil {
				h.logger.Error("handle user message failed",
					zap.String("user", userKey),
					zap.Error(err),
				)
			}
		}()
	}
}

// ===========================================================================
// Sale endpoint
// ===========================================================================

// SaleWS nâng cấp connection cho dashboard sale
// GET /ws/sale?token=<jwt> (hoặc JWT trong cookie access_token)
func (h *WSHandler) SaleWS(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		if cookie, err := c.Cookie("access_token"); err == nil {
			tokenString = cookie
		}
	}

	claims, err := h.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.Error("UNAUTHORIZED", "Token không hợp lệ"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	sessionKey := claims.UserID.String()
	sess := realtime.NewWSSession(sessionKey, conn)

	defer func() {
		h.hub.UnregisterSale(sessionKey)
		sess.Close()
	}()

	for {
		var frame wsClientFrame
		if err := sess.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Action {
		case "registerSale":
			// Sale chỉ nhận fan-out sau khi đăng ký presence
			h.hub.RegisterSale(sess)

		case "saleMessage":
			msg := dto.SaleMessageRequest{
				To:       frame.To,
				ToName:   frame.ToName,
				Type:     frame.Type,
				Content:  frame.Content,
				ClientID: frame.ClientID,
				AIMode:   frame.AIMode,
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()
				if _, err := h.relay.HandleSaleMessage(ctx, msg); err != nil {
					h.logger.Error("handle sale message failed",
						zap.String("sale", sessionKey),
						zap.Error(err),
					)
				}
			}()

		default:
			h.logger.Debug("unknown ws action",
				zap.String("action", frame.Action),
				zap.String("sale", sessionKey),
			)
		}
	}
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterRoutes đăng ký websocket routes
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.CustomerWS)
	r.GET("/ws/sale", h.SaleWS)
}
