package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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

// fakeChatRepo in-memory ChatRepository với id tăng dần
type fakeChatRepo struct {
	mu     sync.Mutex
	nextID int64
	chats  []*models.Chat

	failCreate bool
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{nextID: 1}
}

func (r *fakeChatRepo) Create(ctx context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return fmt.Errorf("db down")
	}
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

// pushRecord một lần push đã ghi nhận
type pushRecord struct {
	Target      string // "sales" hoặc userKey
	Destination string
	Payload     interface{}
}

// fakePusher ghi lại mọi push để assert
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

// ===========================================================================
// Helpers
// ===========================================================================

// sseServer trả server giả lập AI backend streaming các token cho trước
// Đồng thời capture request cuối cùng nhận được
func sseServer(t *testing.T, tokens []string, lastReq *ChatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lastReq != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(lastReq))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range tokens {
			chunk, _ := json.Marshal(streamChunk{Type: "token", Content: tok})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
	}))
}

func newTestOrchestrator(t *testing.T, backendURL string) (*Orchestrator, *fakeChatRepo, *fakePusher, *history.Store) {
	t.Helper()
	repo := newFakeChatRepo()
	pusher := &fakePusher{}
	hist := history.NewStore(history.NewMemoryListStore(), zap.NewNop())
	client := NewClient(backendURL, zap.NewNop())
	orch := NewOrchestrator(repo, pusher, hist, client, zap.NewNop())
	return orch, repo, pusher, hist
}

// ===========================================================================
// Streaming tests
// ===========================================================================

func TestRespondStreaming_PersistsAndFansOut(t *testing.T) {
	srv := sseServer(t, []string{"Xin ", "chào ", "bạn"}, nil)
	defer srv.Close()

	orch, repo, pusher, hist := newTestOrchestrator(t, srv.URL)

	orch.RespondStreaming(context.Background(), "42", "Lan", "sản phẩm này giá bao nhiêu?")

	// Một tin nhắn duy nhất được lưu, từ kênh sale, status SENT
	chats := repo.all()
	require.Len(t, chats, 1)
	assert.Equal(t, models.SaleChannelKey, chats[0].FromUser)
	assert.Equal(t, AssistantName, chats[0].FromName)
	assert.Equal(t, "42", chats[0].ToUser)
	assert.Equal(t, "Lan", chats[0].ToName)
	assert.Equal(t, models.StatusSent, chats[0].Status)
	assert.Equal(t, "Xin chào bạn", chats[0].Content)

	// Khách nhận 3 partial + 1 final
	userFrames := pusher.byTarget("42")
	require.Len(t, userFrames, 4)
	for i := 0; i < 3; i++ {
		frame := userFrames[i].Payload.(dto.StreamFrame)
		assert.True(t, frame.Partial)
	}
	final := userFrames[3].Payload.(dto.StreamFrame)
	assert.False(t, final.Partial)
	assert.Equal(t, chats[0].ID, final.ID)
	assert.Equal(t, "Xin chào bạn", final.Content)

	// Sales nhận partial + final + listchat
	saleFrames := pusher.byTarget("sales")
	require.Len(t, saleFrames, 5)
	listchat := saleFrames[4]
	assert.Equal(t, realtime.DestSaleListChat, listchat.Destination)
	lc := listchat.Payload.(dto.ListChatFrame)
	assert.Equal(t, "42", lc.UserID)
	assert.Equal(t, "AI Assistant: Xin chào bạn", lc.Message)

	// Câu trả lời vào lịch sử với role "Tôi"
	conv := hist.Conversation(context.Background(), "42")
	require.Len(t, conv, 1)
	assert.Equal(t, "Tôi", conv[0].Role)
	assert.Equal(t, "Xin chào bạn", conv[0].Content)
}

func TestRespondStreaming_EmptyTokensNotRelayed(t *testing.T) {
	srv := sseServer(t, []string{"", "Xin", "", " chào"}, nil)
	defer srv.Close()

	orch, repo, pusher, _ := newTestOrchestrator(t, srv.URL)

	orch.RespondStreaming(context.Background(), "42", "Lan", "hỏi")

	chats := repo.all()
	require.Len(t, chats, 1)
	assert.Equal(t, "Xin chào", chats[0].Content)

	// Chỉ token có nội dung thành partial: 2 partial + 1 final
	userFrames := pusher.byTarget("42")
	require.Len(t, userFrames, 3)
	assert.Equal(t, "Xin", userFrames[0].Payload.(dto.StreamFrame).Content)
	assert.Equal(t, " chào", userFrames[1].Payload.(dto.StreamFrame).Content)
	assert.False(t, userFrames[2].Payload.(dto.StreamFrame).Partial)
}

func TestRespondStreaming_BackendError_OneNoticeNothingPersisted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	orch, repo, pusher, hist := newTestOrchestrator(t, srv.URL)

	orch.RespondStreaming(context.Background(), "42", "Lan", "hỏi gì đó")

	assert.Empty(t, repo.all())
	assert.Empty(t, hist.Conversation(context.Background(), "42"))

	userFrames := pusher.byTarget("42")
	require.Len(t, userFrames, 1)
	notice := userFrames[0].Payload.(dto.StreamFrame)
	assert.Equal(t, NoticeUnavailable, notice.Content)
	assert.Equal(t, "ERROR", notice.Status)
}

func TestRespondStreaming_EmptyStream_Notice(t *testing.T) {
	srv := sseServer(t, nil, nil)
	defer srv.Close()

	orch, repo, pusher, _ := newTestOrchestrator(t, srv.URL)

	orch.RespondStreaming(context.Background(), "42", "", "hỏi")

	assert.Empty(t, repo.all())

	userFrames := pusher.byTarget("42")
	require.Len(t, userFrames, 1)
	assert.Equal(t, NoticeEmpty, userFrames[0].Payload.(dto.StreamFrame).Content)
}

func TestRespondStreaming_PersistError_Notice(t *testing.T) {
	srv := sseServer(t, []string{"trả lời"}, nil)
	defer srv.Close()

	orch, repo, pusher, _ := newTestOrchestrator(t, srv.URL)
	repo.failCreate = true

	orch.RespondStreaming(context.Background(), "42", "Lan", "hỏi")

	userFrames := pusher.byTarget("42")
	// 1 partial + 1 notice
	require.Len(t, userFrames, 2)
	assert.Equal(t, NoticeUnavailable, userFrames[1].Payload.(dto.StreamFrame).Content)
}

func TestBuildChatHistory_MergesImageHintsAndConversation(t *testing.T) {
	var gotReq ChatRequest
	srv := sseServer(t, []string{"ok"}, &gotReq)
	defer srv.Close()

	orch, _, _, hist := newTestOrchestrator(t, srv.URL)
	ctx := context.Background()

	hist.AddImageHint(ctx, "42", "SP001")
	hist.AddImageHint(ctx, "42", "SP002")
	hist.AddMessage(ctx, "42", "Lan", "cho xem mẫu áo")
	hist.AddMessage(ctx, "42", "Tôi", "dạ đây ạ")

	orch.RespondStreaming(ctx, "42", "Lan", "còn size M không?")

	assert.Equal(t, "còn size M không?", gotReq.Question)
	assert.True(t, gotReq.Stream)
	require.Len(t, gotReq.ChatHistory, 3)

	// Hint gom thành một entry, mã cũ trước
	assert.Equal(t, "Ảnh khách gửi", gotReq.ChatHistory[0].Role)
	assert.Equal(t, "Đã gửi ảnh mã SP001, Đã gửi ảnh mã SP002", gotReq.ChatHistory[0].Content)

	// Hội thoại theo thứ tự thời gian
	assert.Equal(t, "Lan", gotReq.ChatHistory[1].Role)
	assert.Equal(t, "cho xem mẫu áo", gotReq.ChatHistory[1].Content)
	assert.Equal(t, "Tôi", gotReq.ChatHistory[2].Role)
}

// ===========================================================================
// Facebook (non-streaming) tests
// ===========================================================================

func TestRespondFacebook_SendsAndMarksSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		json.NewEncoder(w).Encode(map[string]string{"answer": "Dạ shop còn hàng ạ"})
	}))
	defer srv.Close()

	orch, repo, pusher, _ := newTestOrchestrator(t, srv.URL)
	mock := channel.NewMockChannel(zap.NewNop())

	err := orch.RespondFacebook(context.Background(), "fb:999", "Nguyễn Văn A", "còn hàng không?", mock)
	require.NoError(t, err)

	chats := repo.all()
	require.Len(t, chats, 1)
	assert.Equal(t, models.StatusSent, chats[0].Status)
	assert.Equal(t, "fb:999", chats[0].ToUser)

	last := mock.LastSent()
	require.NotNil(t, last)
	assert.Equal(t, "fb:999", last.RecipientKey)
	assert.Equal(t, "Dạ shop còn hàng ạ", last.Text)

	assert.NotEmpty(t, pusher.byTarget("sales"))
}

func TestRespondFacebook_SendFailure_StaysSending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"answer": "trả lời"})
	}))
	defer srv.Close()

	orch, repo, _, _ := newTestOrchestrator(t, srv.URL)
	mock := channel.NewMockChannel(zap.NewNop())
	mock.FailNext = true

	err := orch.RespondFacebook(context.Background(), "fb:999", "", "hỏi", mock)
	require.NoError(t, err)

	chats := repo.all()
	require.Len(t, chats, 1)
	assert.Equal(t, models.StatusSending, chats[0].Status)
	assert.Equal(t, DefaultCustomerName, chats[0].ToName)
}

func TestRespondFacebook_BackendError_NothingPersisted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	orch, repo, _, _ := newTestOrchestrator(t, srv.URL)
	mock := channel.NewMockChannel(zap.NewNop())

	err := orch.RespondFacebook(context.Background(), "fb:999", "", "hỏi", mock)
	assert.Error(t, err)
	assert.Empty(t, repo.all())
	assert.Nil(t, mock.LastSent())
}

// ===========================================================================
// Client tests
// ===========================================================================

func TestClientStream_SkipsMalformedAndNonTokenChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"a\"}\n\n")
		fmt.Fprint(w, ": comment line\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: {\"type\":\"meta\",\"content\":\"x\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"b\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())

	var tokens []string
	err := client.Stream(context.Background(), "q", nil, func(tok string) error {
		tokens = append(tokens, tok)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tokens)
}

func TestClientAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"answer": "câu trả lời"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())

	answer, err := client.Ask(context.Background(), "hỏi", nil)
	require.NoError(t, err)
	assert.Equal(t, "câu trả lời", answer)
}
