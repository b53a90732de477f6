package ai

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"salechat-gin/internal/channel"
	"salechat-gin/internal/dto"
	"salechat-gin/internal/history"
	"salechat-gin/internal/models"
	"salechat-gin/internal/realtime"
	"salechat-gin/internal/repositories"
)

// ===========================================================================
// AI Orchestrator
// Điều phối câu trả lời AI: build context từ lịch sử + image hint,
// streaming token về cả khách lẫn sale, và persist câu trả lời cuối
// Bất biến: stream lỗi -> một notice, KHÔNG có tin nhắn nào được lưu
// ===========================================================================

const (
	// AssistantName tên hiển thị của trợ lý AI
	AssistantName = "AI Assistant"

	// DefaultCustomerName fallback khi không biết tên khách
	DefaultCustomerName = "Khách hàng"

	// NoticeUnavailable notice khi AI backend lỗi giữa chừng
	NoticeUnavailable = "AI service unavailable"

	// NoticeEmpty notice khi stream kết thúc mà không có token nào
	NoticeEmpty = "AI returned empty"

	// imageHintRole role của entry tổng hợp image hint trong chat history
	imageHintRole = "Ảnh khách gửi"

	// listPreviewLen số ký tự tối đa của preview trong listchat
	listPreviewLen = 30
)

// Orchestrator điều phối hội thoại với AI backend
type Orchestrator struct {
	chats   repositories.ChatRepository
	pusher  realtime.Pusher
	history *history.Store
	client  *Client
	logger  *zap.Logger
}

// NewOrchestrator tạo orchestrator mới
func NewOrchestrator(
	chats repositories.ChatRepository,
	pusher realtime.Pusher,
	hist *history.Store,
	client *Client,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		chats:   chats,
		pusher:  pusher,
		history: hist,
		client:  client,
		logger:  logger,
	}
}

// buildChatHistory gom context cho AI backend:
// một entry tổng hợp các mã sản phẩm từ ảnh khách gửi (cũ nhất trước),
// theo sau là lịch sử hội thoại đảo về thứ tự thời gian
func (o *Orchestrator) buildChatHistory(ctx context.Context, userKey string) []history.Entry {
	var entries []history.Entry

	hints := o.history.ImageHints(ctx, userKey)
	if len(hints) > 0 {
		reversed := make([]string, len(hints))
		for i, h := range hints {
			reversed[len(hints)-1-i] = h
		}
		entries = append(entries, history.Entry{
			Role:    imageHintRole,
			Content: strings.Join(reversed, ", "),
		})
	}

	conv := o.history.Conversation(ctx, userKey)
	for i := len(conv) - 1; i >= 0; i-- {
		entries = append(entries, conv[i])
	}

	return entries
}

// RespondStreaming trả lời câu hỏi của khách ở chế độ streaming
// Token đẩy ngay tới khách và mọi sale; câu trả lời hoàn chỉnh
// chỉ được persist khi stream kết thúc thành công và không rỗng
func (o *Orchestrator) RespondStreaming(ctx context.Context, userKey, userName, question string) {
	chatHistory := o.buildChatHistory(ctx, userKey)

	var full strings.Builder
	err := o.client.Stream(ctx, question, chatHistory, func(token string) error {
		// Token rỗng không relay
		if token == "" {
			return nil
		}
		full.WriteString(token)

		o.pusher.SendToUser(userKey, realtime.DestUser, dto.StreamFrame{
			Type:    string(models.TypeMessage),
			Content: token,
			Partial: true,
		})
		o.pusher.SendToSales(realtime.DestSale, dto.StreamFrame{
			Type:       string(models.TypeMessage),
			Content:    token,
			Partial:    true,
			From:       userKey,
			FromName:   AssistantName,
			AIResponse: true,
		})
		return nil
	})
	if err != nil {
		o.logger.Error("ai stream failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		o.notify(userKey, NoticeUnavailable)
		return
	}

	answer := strings.TrimSpace(full.String())
	if answer == "" {
		o.logger.Warn("ai stream returned no tokens", zap.String("user", userKey))
		o.notify(userKey, NoticeEmpty)
		return
	}

	toName := userName
	if toName == "" {
		toName = DefaultCustomerName
	}

	chat := &models.Chat{
		FromUser:  models.SaleChannelKey,
		FromName:  AssistantName,
		ToUser:    userKey,
		ToName:    toName,
		Type:      models.TypeMessage,
		Content:   answer,
		Status:    models.StatusSent,
		CreatedAt: time.Now(),
	}
	if err := o.chats.Create(ctx, chat); err != nil {
		o.logger.Error("persist ai answer failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		o.notify(userKey, NoticeUnavailable)
		return
	}

	o.history.AddMessage(ctx, userKey, "Tôi", answer)

	o.pusher.SendToUser(userKey, realtime.DestUser, dto.StreamFrame{
		ID:        chat.ID,
		Type:      string(models.TypeMessage),
		Content:   answer,
		Partial:   false,
		CreatedAt: chat.TimeHHMM(),
	})
	o.pusher.SendToSales(realtime.DestSale, dto.StreamFrame{
		ID:         chat.ID,
		Type:       string(models.TypeMessage),
		Content:    answer,
		Partial:    false,
		From:       userKey,
		FromName:   AssistantName,
		AIResponse: true,
		CreatedAt:  chat.TimeHHMM(),
	})
	o.pusher.SendToSales(realtime.DestSaleListChat, dto.ListChatFrame{
		UserID:  userKey,
		Name:    toName,
		Message: AssistantName + ": " + previewOf(answer),
		Time:    chat.TimeHHMM(),
	})
}

// RespondFacebook trả lời contact Facebook ở chế độ non-streaming
// Tin nhắn lưu SENDING trước, chỉ chuyển SENT khi Graph API xác nhận
func (o *Orchestrator) RespondFacebook(ctx context.Context, userKey, userName, question string, sender channel.Sender) error {
	chatHistory := o.buildChatHistory(ctx, userKey)

	answer, err := o.client.Ask(ctx, question, chatHistory)
	if err != nil {
		o.logger.Error("ai ask failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		return err
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		o.logger.Warn("ai returned empty answer", zap.String("user", userKey))
		return nil
	}

	toName := userName
	if toName == "" {
		toName = DefaultCustomerName
	}

	chat := &models.Chat{
		FromUser:  models.SaleChannelKey,
		FromName:  AssistantName,
		ToUser:    userKey,
		ToName:    toName,
		Type:      models.TypeMessage,
		Content:   answer,
		Status:    models.StatusSending,
		CreatedAt: time.Now(),
	}
	if err := o.chats.Create(ctx, chat); err != nil {
		return err
	}

	o.history.AddMessage(ctx, userKey, "Tôi", answer)

	if _, err := sender.SendText(ctx, userKey, answer); err != nil {
		// Giữ SENDING để trace được tin chưa tới Facebook
		o.logger.Error("fb ai reply send failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
	} else {
		chat.Status = models.StatusSent
		if err := o.chats.Update(ctx, chat); err != nil {
			o.logger.Error("update ai reply status failed", zap.Error(err))
		}
	}

	o.pusher.SendToSales(realtime.DestSale, dto.ChatFrame{
		ID:        chat.ID,
		From:      userKey,
		Name:      AssistantName,
		Type:      string(models.TypeMessage),
		Content:   answer,
		CreatedAt: chat.TimeHHMM(),
	})
	o.pusher.SendToSales(realtime.DestSaleListChat, dto.ListChatFrame{
		UserID:  userKey,
		Name:    toName,
		Message: AssistantName + ": " + previewOf(answer),
		Time:    chat.TimeHHMM(),
	})

	return nil
}

// Health kiểm tra AI backend có phản hồi không (gọi lúc khởi động)
func (o *Orchestrator) Health(ctx context.Context) error {
	return o.client.Health(ctx)
}

// notify đẩy một notice lỗi tới khách và các sale, không persist gì
func (o *Orchestrator) notify(userKey, message string) {
	frame := dto.StreamFrame{
		Type:    string(models.TypeMessage),
		Content: message,
		Partial: false,
		Status:  "ERROR",
	}
	o.pusher.SendToUser(userKey, realtime.DestUser, frame)

	frame.From = userKey
	frame.FromName = AssistantName
	frame.AIResponse = true
	o.pusher.SendToSales(realtime.DestSale, frame)
}

// previewOf cắt câu trả lời thành preview cho listchat
func previewOf(s string) string {
	runes := []rune(s)
	if len(runes) <= listPreviewLen {
		return s
	}
	return string(runes[:listPreviewLen]) + "..."
}
