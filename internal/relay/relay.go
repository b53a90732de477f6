package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"salechat-gin/internal/channel"
	"salechat-gin/internal/dto"
	"salechat-gin/internal/history"
	"salechat-gin/internal/identity"
	"salechat-gin/internal/models"
	"salechat-gin/internal/realtime"
	"salechat-gin/internal/repositories"
)

// ===========================================================================
// Relay Service
// Luồng tin nhắn trung tâm: nhận tin từ khách (web/guest/Facebook),
// persist, fan-out cho sale dashboard, ack lại người gửi,
// và kích hoạt pipeline phụ (AI streaming, image search)
// Thứ tự cố định: persist trước, fan-out sau, id trong mọi frame
// là id đã được DB cấp
// ===========================================================================

// SalerDisplayName tên hiển thị của kênh sale trong hội thoại
const SalerDisplayName = "Saler"

// AIResponder surface của AI orchestrator mà relay cần
// Tests thay bằng fake để assert AI được/không được kích hoạt
type AIResponder interface {
	// RespondStreaming trả lời khách ở chế độ streaming (blocking)
	RespondStreaming(ctx context.Context, userKey, userName, question string)

	// RespondFacebook trả lời contact Facebook không streaming
	RespondFacebook(ctx context.Context, userKey, userName, question string, sender channel.Sender) error
}

// ImageSearcher surface của vision pipeline mà relay cần
type ImageSearcher interface {
	// ProcessAsync chạy nhận diện sản phẩm trên goroutine riêng
	ProcessAsync(userKey, imageURL string)
}

// Service điều phối luồng tin nhắn giữa khách hàng và kênh sale
type Service struct {
	chats    repositories.ChatRepository
	settings repositories.AISettingRepository
	pusher   realtime.Pusher
	history  *history.Store
	vision   ImageSearcher
	channels *channel.Registry
	ai       AIResponder
	logger   *zap.Logger
}

// NewService tạo relay service mới
func NewService(
	chats repositories.ChatRepository,
	settings repositories.AISettingRepository,
	pusher realtime.Pusher,
	hist *history.Store,
	vision ImageSearcher,
	channels *channel.Registry,
	ai AIResponder,
	logger *zap.Logger,
) *Service {
	return &Service{
		chats:    chats,
		settings: settings,
		pusher:   pusher,
		history:  hist,
		vision:   vision,
		channels: channels,
		ai:       ai,
		logger:   logger,
	}
}

// ===========================================================================
// Luồng khách hàng -> sale
// ===========================================================================

// RelayInbound xử lý một tin nhắn từ khách: persist SENT, fan-out
// cho sale, ack cho khách, rồi kích hoạt pipeline theo loại tin
// (ảnh -> image search, text -> lịch sử hội thoại)
// KHÔNG tự gọi AI, caller quyết định (webhook Facebook dùng chế độ khác)
func (s *Service) RelayInbound(ctx context.Context, msg dto.UserMessageRequest) (*models.Chat, error) {
	ident := identity.Resolve(msg.User)
	userKey := ident.Key()

	name := msg.Name
	if name == "" {
		name = userKey
	}

	msgType := models.ChatType(msg.Type)
	if msgType != models.TypeImage {
		msgType = models.TypeMessage
	}

	chat := &models.Chat{
		FromUser:  userKey,
		FromName:  name,
		ToUser:    models.SaleChannelKey,
		ToName:    SalerDisplayName,
		Type:      msgType,
		Content:   msg.Content,
		Status:    models.StatusSent,
		CreatedAt: time.Now(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		s.logger.Error("persist inbound message failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		return nil, err
	}

	s.fanOutToSales(chat)

	s.pusher.SendToUser(userKey, realtime.DestUser, dto.AckFrame{
		ID:        chat.ID,
		ClientID:  msg.ClientID,
		Status:    string(chat.Status),
		CreatedAt: chat.TimeHHMM(),
	})

	if chat.IsImage() {
		// Ảnh không bao giờ vào lịch sử text, chỉ qua image search
		s.vision.ProcessAsync(userKey, chat.Content)
	} else {
		s.history.AddMessage(ctx, userKey, name, chat.Content)
	}

	s.logger.Info("inbound message relayed",
		zap.Int64("id", chat.ID),
		zap.String("from", userKey),
		zap.String("type", string(chat.Type)),
	)

	return chat, nil
}

// HandleUserMessage là entry point cho frame userMessage trên websocket:
// RelayInbound + kích hoạt AI streaming nếu khách đang bật AI mode
// AI chỉ chạy cho tin text; ảnh không bao giờ thành câu hỏi
func (s *Service) HandleUserMessage(ctx context.Context, msg dto.UserMessageRequest) (*models.Chat, error) {
	chat, err := s.RelayInbound(ctx, msg)
	if err != nil {
		return nil, err
	}

	if chat.IsImage() {
		return chat, nil
	}

	setting, err := s.settings.Get(ctx, chat.FromUser)
	if err != nil {
		s.logger.Warn("load ai setting failed",
			zap.String("user", chat.FromUser),
			zap.Error(err),
		)
		return chat, nil
	}
	if setting.AIEnabled {
		s.ai.RespondStreaming(ctx, chat.FromUser, chat.FromName, chat.Content)
	}

	return chat, nil
}

// ===========================================================================
// Luồng sale -> khách hàng
// ===========================================================================

// HandleSaleMessage xử lý frame saleMessage từ dashboard
// AIMode trong frame bật: tin của sale trở thành câu hỏi cho AI thay vì
// gửi thẳng. Toggle này do sale chọn từng tin; setting auto-AI của khách
// chỉ áp cho chiều userMessage, sale luôn gửi thẳng được
// Đích fb:<psid> đi qua Graph API với status SENDING-cho-tới-khi-gửi-được;
// đích native lưu thẳng SENT và push qua websocket
func (s *Service) HandleSaleMessage(ctx context.Context, msg dto.SaleMessageRequest) (*models.Chat, error) {
	ident := identity.Resolve(msg.To)
	userKey := ident.Key()

	if msg.AIMode && msg.Type != string(models.TypeImage) {
		s.ai.RespondStreaming(ctx, userKey, msg.ToName, msg.Content)
		return nil, nil
	}

	if ident.IsFacebook() {
		return s.sendSaleToFacebook(ctx, userKey, msg)
	}
	return s.sendSaleNative(ctx, userKey, msg)
}

// sendSaleToFacebook gửi tin của sale ra Graph API
// Persist SENDING trước; chỉ chuyển SENT khi API xác nhận,
// gửi lỗi thì tin vẫn nằm ở SENDING để trace
func (s *Service) sendSaleToFacebook(ctx context.Context, userKey string, msg dto.SaleMessageRequest) (*models.Chat, error) {
	chat := &models.Chat{
		FromUser:  models.SaleChannelKey,
		FromName:  SalerDisplayName,
		ToUser:    userKey,
		ToName:    msg.ToName,
		Type:      models.TypeMessage,
		Content:   msg.Content,
		Status:    models.StatusSending,
		CreatedAt: time.Now(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}

	ch, err := s.channels.Get("facebook")
	if err != nil {
		s.logger.Error("facebook channel not registered", zap.Error(err))
	} else if _, err := ch.SendText(ctx, userKey, msg.Content); err != nil {
		s.logger.Error("fb send failed",
			zap.Int64("id", chat.ID),
			zap.String("to", userKey),
			zap.Error(err),
		)
	} else {
		chat.Status = models.StatusSent
		if err := s.chats.Update(ctx, chat); err != nil {
			s.logger.Error("update chat status failed", zap.Error(err))
		}
	}

	s.history.AddMessage(ctx, userKey, "Tôi", msg.Content)
	s.ackSaleSend(chat, userKey, msg.ClientID)

	return chat, nil
}

// sendSaleNative gửi tin của sale tới khách web/guest qua websocket
func (s *Service) sendSaleNative(ctx context.Context, userKey string, msg dto.SaleMessageRequest) (*models.Chat, error) {
	msgType := models.ChatType(msg.Type)
	if msgType != models.TypeImage {
		msgType = models.TypeMessage
	}

	chat := &models.Chat{
		FromUser:  models.SaleChannelKey,
		FromName:  SalerDisplayName,
		ToUser:    userKey,
		ToName:    msg.ToName,
		Type:      msgType,
		Content:   msg.Content,
		Status:    models.StatusSent,
		CreatedAt: time.Now(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}

	s.pusher.SendToUser(userKey, realtime.DestUser, dto.ChatFrame{
		ID:        chat.ID,
		From:      models.SaleChannelKey,
		Name:      SalerDisplayName,
		Type:      string(chat.Type),
		Content:   chat.Content,
		CreatedAt: chat.TimeHHMM(),
	})

	if !chat.IsImage() {
		s.history.AddMessage(ctx, userKey, "Tôi", msg.Content)
	}
	s.ackSaleSend(chat, userKey, msg.ClientID)

	return chat, nil
}

// ===========================================================================
// Luồng Facebook webhook
// ===========================================================================

// RelayFacebookImage persist một ảnh từ contact Facebook và fan-out cho sale
// Image search do webhook handler tự gọi (không qua kind-trigger của websocket)
func (s *Service) RelayFacebookImage(ctx context.Context, userKey, name, imageURL string) (*models.Chat, error) {
	chat := &models.Chat{
		FromUser:  userKey,
		FromName:  name,
		ToUser:    models.SaleChannelKey,
		ToName:    SalerDisplayName,
		Type:      models.TypeImage,
		Content:   imageURL,
		Status:    models.StatusSent,
		CreatedAt: time.Now(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}

	s.fanOutToSales(chat)

	return chat, nil
}

// ===========================================================================
// Trạng thái đã đọc
// ===========================================================================

// MarkSeen chuyển mọi tin nhắn SENT từ khách sang SEEN và báo cho khách
// Idempotent: không còn gì để chuyển -> trả danh sách rỗng, không lỗi
func (s *Service) MarkSeen(ctx context.Context, rawUserID string) ([]int64, error) {
	userKey := identity.Resolve(rawUserID).Key()

	unread, err := s.chats.FindUnreadFromUser(ctx, userKey)
	if err != nil {
		return nil, err
	}
	if len(unread) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(unread))
	for _, c := range unread {
		ids = append(ids, c.ID)
	}

	if err := s.chats.MarkSeen(ctx, ids); err != nil {
		return nil, err
	}

	s.pusher.SendToUser(userKey, realtime.DestUser, dto.SeenFrame{
		UpdatedMessageIDs: ids,
		Status:            string(models.StatusSeen),
	})

	s.logger.Info("messages marked seen",
		zap.String("user", userKey),
		zap.Int("count", len(ids)),
	)

	return ids, nil
}

// ===========================================================================
// Helpers
// ===========================================================================

// fanOutToSales đẩy tin nhắn mới + cập nhật listchat cho mọi sale online
func (s *Service) fanOutToSales(chat *models.Chat) {
	s.pusher.SendToSales(realtime.DestSale, dto.ChatFrame{
		ID:        chat.ID,
		From:      chat.FromUser,
		Name:      chat.FromName,
		Type:      string(chat.Type),
		Content:   chat.Content,
		CreatedAt: chat.TimeHHMM(),
	})
	s.pusher.SendToSales(realtime.DestSaleListChat, dto.ListChatFrame{
		UserID:  conversationKey(chat),
		Name:    displayName(chat),
		Message: chat.ListPreview(),
		Time:    chat.TimeHHMM(),
	})
}

// ackSaleSend xác nhận với các sale rằng tin của sale đã được xử lý
// Frame mang status thật sau khi gửi: tin Facebook kẹt ở SENDING
// hiện nguyên trạng trên dashboard, clientId để match bản optimistic
func (s *Service) ackSaleSend(chat *models.Chat, userKey, clientID string) {
	s.pusher.SendToSales(realtime.DestSale, dto.AckFrame{
		ID:        chat.ID,
		ClientID:  clientID,
		Status:    string(chat.Status),
		CreatedAt: chat.TimeHHMM(),
	})
	s.pusher.SendToSales(realtime.DestSaleListChat, dto.ListChatFrame{
		UserID:  userKey,
		Name:    chat.ToName,
		Message: chat.ListPreview(),
		Time:    chat.TimeHHMM(),
	})
}

// conversationKey trả về customer key của hội thoại chứa tin nhắn này
func conversationKey(chat *models.Chat) string {
	if chat.IsFromSaler() {
		return chat.ToUser
	}
	return chat.FromUser
}

// displayName tên khách trong hội thoại chứa tin nhắn này
func displayName(chat *models.Chat) string {
	if chat.IsFromSaler() {
		return chat.ToName
	}
	return chat.FromName
}
