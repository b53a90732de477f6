package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salechat-gin/internal/channel"
	"salechat-gin/internal/dto"
	"salechat-gin/internal/history"
	"salechat-gin/internal/models"
	"salechat-gin/internal/realtime"
	"salechat-gin/internal/repositories"
)

// ===========================================================================
// Fakes
// ===========================================================================

type fakeChatRepo struct {
	mu     sync.Mutex
	nextID int64
	chats  []*models.Chat
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{nextID: 1}
}

func (r *fakeChatRepo) Create(ctx context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat.ID = r.nextID
	r.nextID++
	stored := *chat
	r.chats = append(r.chats, &stored)
	return nil
}

func (r *fakeChatRepo) Update(ctx context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.chats {
		if c.ID == chat.ID {
			stored := *chat
			r.chats[i] = &stored
			return nil
		}
	}
	return fmt.Errorf("chat %d not found", chat.ID)
}

func (r *fakeChatRepo) FindUnreadFromUser(ctx context.Context, userKey string) ([]models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Chat
	for _, c := range r.chats {
		if c.FromUser == userKey && c.ToUser == models.SaleChannelKey && c.Status == models.StatusSent {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeChatRepo) MarkSeen(ctx context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		for _, c := range r.chats {
			if c.ID == id {
				c.Status = models.StatusSeen
			}
		}
	}
	return nil
}

func (r *fakeChatRepo) FindConversation(ctx context.Context, currentUser, otherUser string) ([]repositories.ChatMessageView, error) {
	return nil, nil
}

func (r *fakeChatRepo) FindSummaries(ctx context.Context) ([]repositories.ChatSummary, error) {
	return nil, nil
}

func (r *fakeChatRepo) all() []*models.Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Chat, len(r.chats))
	copy(out, r.chats)
	return out
}

type fakeSettingsRepo struct {
	enabled map[string]bool
}

func (r *fakeSettingsRepo) Get(ctx context.Context, userKey string) (*models.UserAISetting, error) {
	return &models.UserAISetting{UserID: userKey, AIEnabled: r.enabled[userKey]}, nil
}

func (r *fakeSettingsRepo) Upsert(ctx context.Context, setting *models.UserAISetting) error {
	r.enabled[setting.UserID] = setting.AIEnabled
	return nil
}

type pushRecord struct {
	Target      string
	Destination string
	Payload     interface{}
}

type fakePusher struct {
	mu      sync.Mutex
	records []pushRecord
}

func (p *fakePusher) SendToSales(destination string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, pushRecord{Target: "sales", Destination: destination, Payload: payload})
}

func (p *fakePusher) SendToUser(userKey, destination string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, pushRecord{Target: userKey, Destination: destination, Payload: payload})
}

func (p *fakePusher) byTarget(target string) []pushRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushRecord
	for _, r := range p.records {
		if r.Target == target {
			out = append(out, r)
		}
	}
	return out
}

var _ realtime.Pusher = (*fakePusher)(nil)

type aiCall struct {
	UserKey  string
	UserName string
	Question string
}

type fakeAI struct {
	mu        sync.Mutex
	streaming []aiCall
}

func (a *fakeAI) RespondStreaming(ctx context.Context, userKey, userName, question string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.streaming = append(a.streaming, aiCall{userKey, userName, question})
}

func (a *fakeAI) RespondFacebook(ctx context.Context, userKey, userName, question string, sender channel.Sender) error {
	return nil
}

func (a *fakeAI) calls() []aiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]aiCall, len(a.streaming))
	copy(out, a.streaming)
	return out
}

type visionCall struct {
	UserKey  string
	ImageURL string
}

type fakeVision struct {
	mu    sync.Mutex
	calls []visionCall
}

func (v *fakeVision) ProcessAsync(userKey, imageURL string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, visionCall{userKey, imageURL})
}

func (v *fakeVision) all() []visionCall {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]visionCall, len(v.calls))
	copy(out, v.calls)
	return out
}

// ===========================================================================
// Setup
// ===========================================================================

type testEnv struct {
	svc      *Service
	repo     *fakeChatRepo
	settings *fakeSettingsRepo
	pusher   *fakePusher
	hist     *history.Store
	vision   *fakeVision
	ai       *fakeAI
	mock     *channel.MockChannel
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:     newFakeChatRepo(),
		settings: &fakeSettingsRepo{enabled: map[string]bool{}},
		pusher:   &fakePusher{},
		hist:     history.NewStore(history.NewMemoryListStore(), zap.NewNop()),
		vision:   &fakeVision{},
		ai:       &fakeAI{},
		mock:     channel.NewMockChannel(zap.NewNop()),
	}

	registry := channel.NewRegistry()
	registry.Register(env.mock)
	// Trong tests, mock channel đóng vai Graph API
	registry.Register(facebookAlias{env.mock})

	env.svc = NewService(env.repo, env.settings, env.pusher, env.hist, env.vision, registry, env.ai, zap.NewNop())
	return env
}

// facebookAlias đăng ký mock channel dưới type "facebook"
type facebookAlias struct {
	*channel.MockChannel
}

func (facebookAlias) Type() string { return "facebook" }

// ===========================================================================
// Khách -> sale
// ===========================================================================

func TestHandleUserMessage_TextRelayedAndAcked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	chat, err := env.svc.HandleUserMessage(ctx, dto.UserMessageRequest{
		User:     "42",
		Name:     "Lan",
		Type:     "message",
		Content:  "xin chào shop",
		ClientID: "tmp-1",
	})
	require.NoError(t, err)

	// Persist trước fan-out: frame mang id do DB cấp
	assert.Equal(t, int64(1), chat.ID)
	assert.Equal(t, models.StatusSent, chat.Status)
	assert.Equal(t, "42", chat.FromUser)
	assert.Equal(t, models.SaleChannelKey, chat.ToUser)

	saleFrames := env.pusher.byTarget("sales")
	require.Len(t, saleFrames, 2)
	msgFrame := saleFrames[0].Payload.(dto.ChatFrame)
	assert.Equal(t, int64(1), msgFrame.ID)
	assert.Equal(t, "42", msgFrame.From)
	assert.Equal(t, "xin chào shop", msgFrame.Content)

	lc := saleFrames[1].Payload.(dto.ListChatFrame)
	assert.Equal(t, "Lan: xin chào shop", lc.Message)

	userFrames := env.pusher.byTarget("42")
	require.Len(t, userFrames, 1)
	ack := userFrames[0].Payload.(dto.AckFrame)
	assert.Equal(t, int64(1), ack.ID)
	assert.Equal(t, "tmp-1", ack.ClientID)
	assert.Equal(t, "SENT", ack.Status)

	// Text vào lịch sử với role là tên khách
	conv := env.hist.Conversation(ctx, "42")
	require.Len(t, conv, 1)
	assert.Equal(t, "Lan", conv[0].Role)

	// AI mode tắt -> không gọi AI
	assert.Empty(t, env.ai.calls())
}

func TestHandleUserMessage_ImageTriggersVisionNotHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.HandleUserMessage(ctx, dto.UserMessageRequest{
		User:    "42",
		Name:    "Lan",
		Type:    "image",
		Content: "https://cdn.example/a.jpg",
	})
	require.NoError(t, err)

	calls := env.vision.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "42", calls[0].UserKey)
	assert.Equal(t, "https://cdn.example/a.jpg", calls[0].ImageURL)

	// Ảnh không bao giờ vào lịch sử text
	assert.Empty(t, env.hist.Conversation(ctx, "42"))

	lc := env.pusher.byTarget("sales")[1].Payload.(dto.ListChatFrame)
	assert.Equal(t, "Lan: Đã gửi 1 ảnh", lc.Message)
}

func TestHandleUserMessage_AIEnabledTextTriggersStreaming(t *testing.T) {
	env := newTestEnv(t)
	env.settings.enabled["42"] = true

	_, err := env.svc.HandleUserMessage(context.Background(), dto.UserMessageRequest{
		User: "42", Name: "Lan", Type: "message", Content: "tư vấn giúp em",
	})
	require.NoError(t, err)

	calls := env.ai.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "42", calls[0].UserKey)
	assert.Equal(t, "tư vấn giúp em", calls[0].Question)
}

func TestHandleUserMessage_AIEnabledImageDoesNotTriggerAI(t *testing.T) {
	env := newTestEnv(t)
	env.settings.enabled["42"] = true

	_, err := env.svc.HandleUserMessage(context.Background(), dto.UserMessageRequest{
		User: "42", Type: "image", Content: "https://cdn.example/b.jpg",
	})
	require.NoError(t, err)

	assert.Empty(t, env.ai.calls())
	assert.Len(t, env.vision.all(), 1)
}

func TestHandleUserMessage_EmptyUserFallsBackToGuestKey(t *testing.T) {
	env := newTestEnv(t)

	chat, err := env.svc.HandleUserMessage(context.Background(), dto.UserMessageRequest{
		User: "   ", Type: "message", Content: "ai đó không?",
	})
	require.NoError(t, err)
	assert.Equal(t, "guest-unknown", chat.FromUser)
}

// ===========================================================================
// Sale -> khách
// ===========================================================================

func TestHandleSaleMessage_NativePushedToUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	chat, err := env.svc.HandleSaleMessage(ctx, dto.SaleMessageRequest{
		To: "42", ToName: "Lan", Type: "message", Content: "dạ em chào chị", ClientID: "dash-7",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusSent, chat.Status)
	assert.Equal(t, models.SaleChannelKey, chat.FromUser)
	assert.Equal(t, "42", chat.ToUser)

	userFrames := env.pusher.byTarget("42")
	require.Len(t, userFrames, 1)
	frame := userFrames[0].Payload.(dto.ChatFrame)
	assert.Equal(t, models.SaleChannelKey, frame.From)
	assert.Equal(t, "dạ em chào chị", frame.Content)

	// Các sale khác thấy ack {id, clientId, status} + listchat "Saler: ..."
	saleFrames := env.pusher.byTarget("sales")
	require.Len(t, saleFrames, 2)
	ack := saleFrames[0].Payload.(dto.AckFrame)
	assert.Equal(t, chat.ID, ack.ID)
	assert.Equal(t, "dash-7", ack.ClientID)
	assert.Equal(t, "SENT", ack.Status)
	lc := saleFrames[1].Payload.(dto.ListChatFrame)
	assert.Equal(t, "Saler: dạ em chào chị", lc.Message)

	conv := env.hist.Conversation(ctx, "42")
	require.Len(t, conv, 1)
	assert.Equal(t, "Tôi", conv[0].Role)
}

func TestHandleSaleMessage_FacebookSuccessMarksSent(t *testing.T) {
	env := newTestEnv(t)

	chat, err := env.svc.HandleSaleMessage(context.Background(), dto.SaleMessageRequest{
		To: "fb:999", ToName: "Nguyễn Văn A", Type: "message", Content: "dạ còn hàng ạ",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusSent, chat.Status)

	last := env.mock.LastSent()
	require.NotNil(t, last)
	assert.Equal(t, "fb:999", last.RecipientKey)

	// Khách Facebook không có websocket, không push gì tới user
	assert.Empty(t, env.pusher.byTarget("fb:999"))
}

func TestHandleSaleMessage_FacebookFailureStaysSending(t *testing.T) {
	env := newTestEnv(t)
	env.mock.FailNext = true

	chat, err := env.svc.HandleSaleMessage(context.Background(), dto.SaleMessageRequest{
		To: "fb:999", Type: "message", Content: "tin này không tới", ClientID: "dash-3",
	})
	require.NoError(t, err)

	// Gửi lỗi -> không bao giờ tự đánh SENT
	assert.Equal(t, models.StatusSending, chat.Status)

	stored := env.repo.all()
	require.Len(t, stored, 1)
	assert.Equal(t, models.StatusSending, stored[0].Status)

	// Dashboard thấy tin kẹt ở SENDING qua ack
	saleFrames := env.pusher.byTarget("sales")
	require.NotEmpty(t, saleFrames)
	ack := saleFrames[0].Payload.(dto.AckFrame)
	assert.Equal(t, chat.ID, ack.ID)
	assert.Equal(t, "dash-3", ack.ClientID)
	assert.Equal(t, "SENDING", ack.Status)
}

func TestHandleSaleMessage_AIModeRoutesToAI(t *testing.T) {
	env := newTestEnv(t)

	chat, err := env.svc.HandleSaleMessage(context.Background(), dto.SaleMessageRequest{
		To: "42", ToName: "Lan", Type: "message", Content: "sản phẩm còn không?", AIMode: true,
	})
	require.NoError(t, err)

	// AI mode: tin của sale thành câu hỏi, relay không persist gì
	assert.Nil(t, chat)
	assert.Empty(t, env.repo.all())

	calls := env.ai.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "42", calls[0].UserKey)
}

func TestHandleSaleMessage_DirectReplyIgnoresCustomerAISetting(t *testing.T) {
	env := newTestEnv(t)
	// Khách đang bật auto-AI cho chiều userMessage
	env.settings.enabled["42"] = true

	chat, err := env.svc.HandleSaleMessage(context.Background(), dto.SaleMessageRequest{
		To: "42", ToName: "Lan", Type: "message", Content: "em trả lời trực tiếp nhé",
	})
	require.NoError(t, err)

	// Không có aiMode trong frame: tin của sale vẫn lưu và tới khách
	require.NotNil(t, chat)
	assert.Equal(t, models.StatusSent, chat.Status)

	stored := env.repo.all()
	require.Len(t, stored, 1)
	assert.Equal(t, "em trả lời trực tiếp nhé", stored[0].Content)

	userFrames := env.pusher.byTarget("42")
	require.Len(t, userFrames, 1)
	frame := userFrames[0].Payload.(dto.ChatFrame)
	assert.Equal(t, "em trả lời trực tiếp nhé", frame.Content)

	assert.Empty(t, env.ai.calls())
}

// ===========================================================================
// Facebook image
// ===========================================================================

func TestRelayFacebookImage_PersistsAndFansOutOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	chat, err := env.svc.RelayFacebookImage(ctx, "fb:999", "Nguyễn Văn A", "https://cdn.fb/img.jpg")
	require.NoError(t, err)

	assert.Equal(t, models.TypeImage, chat.Type)
	assert.Equal(t, "fb:999", chat.FromUser)

	saleFrames := env.pusher.byTarget("sales")
	require.Len(t, saleFrames, 2)

	// Webhook handler tự gọi vision, relay không gọi
	assert.Empty(t, env.vision.all())
	assert.Empty(t, env.hist.Conversation(ctx, "fb:999"))
}

// ===========================================================================
// Mark seen
// ===========================================================================

func TestMarkSeen_IdempotentAndNotifiesUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.svc.RelayInbound(ctx, dto.UserMessageRequest{
			User: "42", Name: "Lan", Type: "message", Content: fmt.Sprintf("tin %d", i),
		})
		require.NoError(t, err)
	}

	ids, err := env.svc.MarkSeen(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	for _, c := range env.repo.all() {
		assert.Equal(t, models.StatusSeen, c.Status)
	}

	// Khách được báo danh sách id vừa chuyển SEEN
	userFrames := env.pusher.byTarget("42")
	seen := userFrames[len(userFrames)-1].Payload.(dto.SeenFrame)
	assert.Equal(t, []int64{1, 2, 3}, seen.UpdatedMessageIDs)
	assert.Equal(t, "SEEN", seen.Status)

	// Gọi lại: không còn gì để chuyển, không lỗi
	ids, err = env.svc.MarkSeen(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMarkSeen_OnlyAffectsRequestedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.RelayInbound(ctx, dto.UserMessageRequest{User: "42", Type: "message", Content: "a"})
	require.NoError(t, err)
	_, err = env.svc.RelayInbound(ctx, dto.UserMessageRequest{User: "77", Type: "message", Content: "b"})
	require.NoError(t, err)

	ids, err := env.svc.MarkSeen(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	chats := env.repo.all()
	assert.Equal(t, models.StatusSeen, chats[0].Status)
	assert.Equal(t, models.StatusSent, chats[1].Status)
}
