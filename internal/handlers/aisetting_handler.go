package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"salechat-gin/internal/dto"
	"salechat-gin/internal/identity"
	"salechat-gin/internal/models"
	"salechat-gin/internal/repositories"
)

// ===========================================================================
// AI Setting Handler
// Bật/tắt AI mode cho từng khách hàng từ dashboard sale
// ===========================================================================

// AISettingHandler xử lý endpoint cài đặt AI
type AISettingHandler struct {
	settings repositories.AISettingRepository
	logger   *zap.Logger
}

// NewAISettingHandler tạo handler mới
func NewAISettingHandler(settings repositories.AISettingRepository, logger *zap.Logger) *AISettingHandler {
	return &AISettingHandler{settings: settings, logger: logger}
}

// Get trả về cài đặt AI của một khách
// GET /api/user-ai/:userId
func (h *AISettingHandler) Get(c *gin.Context) {
	userKey := identity.Resolve(c.Param("userId")).Key()

	setting, err := h.settings.Get(c.Request.Context(), userKey)
	if err != nil {
		h.logger.Error("get ai setting failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.Error("INTERNAL_ERROR", "Đã có lỗi xảy ra"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":    setting.UserID,
		"aiEnabled": setting.AIEnabled,
	})
}

// Update bật/tắt AI mode cho một khách
// PUT /api/user-ai/:userId?aiEnabled=true
func (h *AISettingHandler) Update(c *gin.Context) {
	userKey := identity.Resolve(c.Param("userId")).Key()

	enabled, err := strconv.ParseBool(c.Query("aiEnabled"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("INVALID_REQUEST", "aiEnabled phải là true hoặc false"))
		return
	}

	setting := &models.UserAISetting{UserID: userKey, AIEnabled: enabled}
	if err := h.settings.Upsert(c.Request.Context(), setting); err != nil {
		h.logger.Error("update ai setting failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.Error("INTERNAL_ERROR", "Đã có lỗi xảy ra"))
		return
	}

	h.logger.Info("ai setting updated",
		zap.String("user", userKey),
		zap.Bool("enabled", enabled),
	)

	c.JSON(http.StatusOK, gin.H{
		"userId":    setting.UserID,
		"aiEnabled": setting.AIEnabled,
	})
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterRoutes đăng ký routes (yêu cầu auth)
func (h *AISettingHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	userAI := rg.Group("/user-ai", authMiddleware)
	{
		userAI.GET("/:userId", h.Get)
		userAI.PUT("/:userId", h.Update)
	}
}
