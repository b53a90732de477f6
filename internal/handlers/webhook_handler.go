package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"salechat-gin/internal/ai"
	"salechat-gin/internal/channel"
	"salechat-gin/internal/dto"
	"salechat-gin/internal/identity"
	"salechat-gin/internal/middleware"
	"salechat-gin/internal/models"
	"salechat-gin/internal/relay"
	"salechat-gin/internal/repositories"
	"salechat-gin/internal/vision"
)

// ===========================================================================
// Webhook Handler
// Nhận events từ Facebook Messenger: verify subscribe + receive messages
// Luôn trả 200 cho POST vì Facebook retry khi nhận status khác,
// gây duplicate message
// ===========================================================================

// WebhookHandler xử lý webhook endpoints
type WebhookHandler struct {
	facebook     *channel.FacebookChannel
	relay        *relay.Service
	orchestrator *ai.Orchestrator
	customers    repositories.CustomerRepository
	settings     repositories.AISettingRepository
	vision       *vision.Pipeline
	logger       *zap.Logger
}

// NewWebhookHandler tạo handler mới
func NewWebhookHandler(
	facebook *channel.FacebookChannel,
	relayService *relay.Service,
	orchestrator *ai.Orchestrator,
	customers repositories.CustomerRepository,
	settings repositories.AISettingRepository,
	visionPipeline *vision.Pipeline,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		facebook:     facebook,
		relay:        relayService,
		orchestrator: orchestrator,
		customers:    customers,
		settings:     settings,
		vision:       visionPipeline,
		logger:       logger,
	}
}

// ===========================================================================
// Facebook Webhook
// ===========================================================================

// FacebookVerify xử lý GET request để verify webhook
// GET /webhook/facebook
func (h *WebhookHandler) FacebookVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	h.logger.Info("fb webhook verify", zap.String("mode", mode))

	if h.facebook.VerifyWebhook(mode, token) {
		c.String(http.StatusOK, challenge)
		return
	}

	c.JSON(http.StatusForbidden, dto.Error("FORBIDDEN", "Invalid verify token"))
}

// FacebookWebhook xử lý POST request nhận tin nhắn
// POST /webhook/facebook
func (h *WebhookHandler) FacebookWebhook(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("BAD_REQUEST", "Cannot read body"))
		return
	}

	if !h.facebook.Verify(c.GetHeader("X-Hub-Signature-256"), body) {
		h.logger.Warn("fb webhook signature mismatch",
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusForbidden, dto.Error("FORBIDDEN", "Invalid signature"))
		return
	}

	events, err := h.facebook.ParseEvents(body)
	if err != nil {
		h.logger.Warn("parse fb webhook failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		c.String(http.StatusOK, "EVENT_RECEIVED")
		return
	}

	ctx := c.Request.Context()
	for _, event := range events {
		userKey := identity.FromPSID(event.SenderID).Key()
		name := h.resolveCustomerName(c, event.SenderID)

		if event.IsImage() {
			if _, err := h.relay.RelayFacebookImage(ctx, userKey, name, event.ImageURL); err != nil {
				h.logger.Error("relay fb image failed",
					zap.String("user", userKey),
					zap.Error(err),
				)
				continue
			}
			// Webhook gọi thẳng vision, không qua kind-trigger của websocket
			h.vision.ProcessAsync(userKey, event.ImageURL)
			continue
		}

		if _, err := h.relay.RelayInbound(ctx, dto.UserMessageRequest{
			User:    userKey,
			Name:    name,
			Type:    string(models.TypeMessage),
			Content: event.Text,
		}); err != nil {
			h.logger.Error("relay fb message failed",
				zap.String("user", userKey),
				zap.Error(err),
			)
			continue
		}

		setting, err := h.settings.Get(ctx, userKey)
		if err != nil {
			h.logger.Warn("load ai setting failed",
				zap.String("user", userKey),
				zap.Error(err),
			)
			continue
		}
		if setting.AIEnabled {
			// Facebook không có streaming, dùng chế độ blocking
			if err := h.orchestrator.RespondFacebook(ctx, userKey, name, event.Text, h.facebook); err != nil {
				h.logger.Error("fb ai reply failed",
					zap.String("user", userKey),
					zap.Error(err),
				)
			}
		}
	}

	c.String(http.StatusOK, "EVENT_RECEIVED")
}

// resolveCustomerName tìm tên contact: DB trước, Graph API khi chưa có
// Contact mới được lưu lại để các webhook sau không phải gọi Graph API nữa
func (h *WebhookHandler) resolveCustomerName(c *gin.Context, psid string) string {
	ctx := c.Request.Context()

	customer, err := h.customers.FindByPSID(ctx, psid)
	if err == nil {
		return customer.Name
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.Warn("find customer failed",
			zap.String("psid", psid),
			zap.Error(err),
		)
	}

	name := h.facebook.FetchUserName(ctx, psid)

	if err := h.customers.Create(ctx, &models.Customer{
		PSID:   psid,
		Name:   name,
		Source: "facebook",
	}); err != nil {
		h.logger.Warn("save customer failed",
			zap.String("psid", psid),
			zap.Error(err),
		)
	}

	return name
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterRoutes đăng ký webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhook := rg.Group("/webhook")
	{
		webhook.GET("/facebook", h.FacebookVerify)
		webhook.POST("/facebook", h.FacebookWebhook)
	}
}
