package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"salechat-gin/internal/identity"
)

// ===========================================================================
// Facebook Channel
// Adapter để nhận và gửi tin nhắn qua Facebook Messenger (Graph API v23.0)
// ===========================================================================

// FacebookConfig cấu hình cho Facebook channel
type FacebookConfig struct {
	// GraphBaseURL base URL của Graph API (override được trong test)
	GraphBaseURL string

	// PageAccessToken token của page
	PageAccessToken string

	// VerifyToken token xác thực webhook subscribe
	VerifyToken string

	// AppSecret secret để verify chữ ký X-Hub-Signature-256
	AppSecret string
}

// FacebookChannel implements Channel interface cho Facebook Messenger
type FacebookChannel struct {
	cfg    FacebookConfig
	client *http.Client
	logger *zap.Logger
}

// NewFacebookChannel tạo Facebook channel mới
func NewFacebookChannel(cfg FacebookConfig, logger *zap.Logger) *FacebookChannel {
	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = "https://graph.facebook.com/v23.0"
	}

	return &FacebookChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Type trả về loại channel
func (c *FacebookChannel) Type() string {
	return "facebook"
}

// ===========================================================================
// Webhook Payload Structures
// ===========================================================================

// FBWebhookPayload cấu trúc webhook từ Facebook
type FBWebhookPayload struct {
	Object string           `json:"object"`
	Entry  []FBWebhookEntry `json:"entry"`
}

// FBWebhookEntry một entry trong webhook
type FBWebhookEntry struct {
	ID        string             `json:"id"`
	Time      int64              `json:"time"`
	Messaging []FBMessagingEvent `json:"messaging"`
}

// FBMessagingEvent một sự kiện messaging
type FBMessagingEvent struct {
	Sender    FBUser     `json:"sender"`
	Recipient FBUser     `json:"recipient"`
	Timestamp int64      `json:"timestamp"`
	Message   *FBMessage `json:"message,omitempty"`
}

// FBUser thông tin user
type FBUser struct {
	ID string `json:"id"`
}

// FBMessage tin nhắn từ user
type FBMessage struct {
	MID         string         `json:"mid"`
	Text        string         `json:"text"`
	Attachments []FBAttachment `json:"attachments,omitempty"`
}

// FBAttachment file đính kèm
type FBAttachment struct {
	Type    string          `json:"type"` // image, video, audio, file
	Payload FBAttachPayload `json:"payload"`
}

// FBAttachPayload payload của attachment
type FBAttachPayload struct {
	URL string `json:"url"`
}

// ===========================================================================
// ParseEvents - Chuẩn hóa webhook payload thành InboundEvent
// ===========================================================================

// ParseEvents đọc webhook body và trả về mọi messaging event trong đó
// Một POST có thể chứa nhiều entry, mỗi entry nhiều messaging event
func (c *FacebookChannel) ParseEvents(body []byte) ([]InboundEvent, error) {
	var payload FBWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal fb payload: %w", err)
	}

	if payload.Object != "page" {
		return nil, fmt.Errorf("invalid object type: %s", payload.Object)
	}

	var events []InboundEvent
	for _, entry := range payload.Entry {
		for _, msg := range entry.Messaging {
			if msg.Message == nil {
				continue
			}

			event := InboundEvent{
				SenderID:  msg.Sender.ID,
				MessageID: msg.Message.MID,
				Timestamp: msg.Timestamp,
			}

			// Ảnh ưu tiên hơn text: attachment image đầu tiên thắng
			for _, att := range msg.Message.Attachments {
				if att.Type == "image" && att.Payload.URL != "" {
					event.ImageURL = att.Payload.URL
					break
				}
			}
			if event.ImageURL == "" {
				event.Text = msg.Message.Text
			}

			if event.Text == "" && event.ImageURL == "" {
				continue
			}

			events = append(events, event)
		}
	}

	c.logger.Debug("parsed fb webhook",
		zap.Int("entries", len(payload.Entry)),
		zap.Int("events", len(events)),
	)

	return events, nil
}

// ===========================================================================
// SendText - Gửi tin nhắn qua FB Graph API
// ===========================================================================

// FBSendRequest request gửi tin nhắn
type FBSendRequest struct {
	Recipient     FBUser        `json:"recipient"`
	MessagingType string        `json:"messaging_type"`
	Message       FBSendMessage `json:"message"`
}

// FBSendMessage tin nhắn gửi đi
type FBSendMessage struct {
	Text string `json:"text"`
}

// SendText gửi tin nhắn text tới contact Facebook
// recipientKey dạng "fb:<psid>" hoặc PSID trần đều chấp nhận
func (c *FacebookChannel) SendText(ctx context.Context, recipientKey, text string) (string, error) {
	psid := strings.TrimPrefix(recipientKey, identity.FacebookPrefix)

	fbReq := FBSendRequest{
		Recipient:     FBUser{ID: psid},
		MessagingType: "RESPONSE",
		Message:       FBSendMessage{Text: text},
	}

	jsonBody, err := json.Marshal(fbReq)
	if err != nil {
		return "", fmt.Errorf("marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/me/messages?access_token=%s", c.cfg.GraphBaseURL, c.cfg.PageAccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fb send: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("fb send failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return "", fmt.Errorf("fb api error: status %d", resp.StatusCode)
	}

	var fbResp struct {
		MessageID string `json:"message_id"`
	}
	_ = json.Unmarshal(body, &fbResp)

	c.logger.Info("fb message sent",
		zap.String("recipient", psid),
		zap.String("message_id", fbResp.MessageID),
	)

	return fbResp.MessageID, nil
}

// ===========================================================================
// FetchUserName - Lấy tên contact từ Graph API
// ===========================================================================

// fbConversationsResponse response của me/conversations
type fbConversationsResponse struct {
	Data []struct {
		Participants struct {
			Data []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"data"`
		} `json:"participants"`
	} `json:"data"`
}

// FetchUserName tìm tên của PSID qua danh sách conversations của page
// Không tìm thấy hoặc lỗi -> fallback "Facebook User"
func (c *FacebookChannel) FetchUserName(ctx context.Context, psid string) string {
	const fallback = "Facebook User"

	url := fmt.Sprintf("%s/me/conversations?fields=participants&access_token=%s",
		c.cfg.GraphBaseURL, c.cfg.PageAccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fallback
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("fb conversations fetch failed", zap.Error(err))
		return fallback
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("fb conversations api error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return fallback
	}

	var convResp fbConversationsResponse
	if err := json.Unmarshal(body, &convResp); err != nil {
		return fallback
	}

	for _, conv := range convResp.Data {
		for _, p := range conv.Participants.Data {
			if p.ID == psid && p.Name != "" {
				return p.Name
			}
		}
	}

	return fallback
}

// ===========================================================================
// Webhook Verification
// ===========================================================================

// VerifyWebhook xử lý GET subscribe challenge từ Facebook
// Đúng mode + token -> trả về true để handler echo lại challenge
func (c *FacebookChannel) VerifyWebhook(mode, token string) bool {
	return mode == "subscribe" && token == c.cfg.VerifyToken
}

// Verify kiểm tra X-Hub-Signature-256 header
// AppSecret rỗng -> bỏ qua kiểm tra (môi trường dev)
func (c *FacebookChannel) Verify(signature string, body []byte) bool {
	if c.cfg.AppSecret == "" {
		return true
	}

	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}

	expectedSig := signature[7:]

	mac := hmac.New(sha256.New, []byte(c.cfg.AppSecret))
	mac.Write(body)
	actualSig := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expectedSig), []byte(actualSig))
}
