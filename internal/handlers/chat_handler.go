package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"salechat-gin/internal/dto"
	"salechat-gin/internal/relay"
	"salechat-gin/internal/repositories"
)

// ===========================================================================
// Chat Handler
// REST API cho dashboard sale: danh sách hội thoại, nội dung hội thoại,
// đánh dấu đã đọc
// ===========================================================================

// ChatHandler xử lý các endpoint chat
type ChatHandler struct {
	chats  repositories.ChatRepository
	relay  *relay.Service
	logger *zap.Logger
}

// NewChatHandler tạo chat handler mới
func NewChatHandler(
	chats repositories.ChatRepository,
	relayService *relay.Service,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		chats:  chats,
		relay:  relayService,
		logger: logger,
	}
}

// ===========================================================================
// Handlers
// ===========================================================================

// ListConversations trả về tóm tắt hội thoại mới nhất của từng khách
// GET /api/chat/list
func (h *ChatHandler) ListConversations(c *gin.Context) {
	summaries, err := h.chats.FindSummaries(c.Request.Context())
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.Error("INTERNAL_ERROR", "Đã có lỗi xảy ra"))
		return
	}

	if summaries == nil {
		summaries = []repositories.ChatSummary{}
	}
	c.JSON(http.StatusOK, summaries)
}

// GetConversation trả về hội thoại giữa hai customer key
// GET /api/chat/:from/:to
func (h *ChatHandler) GetConversation(c *gin.Context) {
	from := c.Param("from")
	to := c.Param("to")

	messages, err := h.chats.FindConversation(c.Request.Context(), from, to)
	if err != nil {
		h.logger.Error("get conversation failed",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.Error("INTERNAL_ERROR", "Đã có lỗi xảy ra"))
		return
	}

	if messages == nil {
		messages = []repositories.ChatMessageView{}
	}
	c.JSON(http.StatusOK, messages)
}

// MarkAsRead chuyển mọi tin nhắn SENT của một khách sang SEEN
// POST /api/chat/markAsRead
func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("INVALID_REQUEST", err.Error()))
		return
	}

	ids, err := h.relay.MarkSeen(c.Request.Context(), req.UserID)
	if err != nil {
		h.logger.Error("mark as read failed",
			zap.String("user", req.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.Error("INTERNAL_ERROR", "Đã có lỗi xảy ra"))
		return
	}

	if ids == nil {
		ids = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{
		"updatedMessageIds": ids,
		"status":            "SEEN",
	})
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterRoutes đăng ký routes cho chat (yêu cầu auth)
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	chat := rg.Group("/chat", authMiddleware)
	{
		chat.GET("/list", h.ListConversations)
		chat.GET("/:from/:to", h.GetConversation)
		chat.POST("/markAsRead", h.MarkAsRead)
	}
}
