package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"salechat-gin/internal/history"
)

// ===========================================================================
// AI Client
// HTTP client cho AI backend nội bộ (endpoint /chat)
// Hỗ trợ hai chế độ: non-streaming trả {answer} và streaming SSE
// với các dòng `data: {"type":"token","content":...}`
// ===========================================================================

// ChatRequest request gửi tới AI backend
type ChatRequest struct {
	Question    string          `json:"question"`
	Stream      bool            `json:"stream"`
	ChatHistory []history.Entry `json:"chat_history"`
}

// chatAnswer response non-streaming của AI backend
type chatAnswer struct {
	Answer string `json:"answer"`
}

// streamChunk một dòng SSE đã decode
type streamChunk struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Client gọi AI backend qua HTTP
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient tạo AI client mới
// Timeout dài vì streaming response có thể kéo dài cả phút
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
		logger:  logger,
	}
}

// Ask gọi AI backend ở chế độ non-streaming, trả về câu trả lời hoàn chỉnh
func (c *Client) Ask(ctx context.Context, question string, chatHistory []history.Entry) (string, error) {
	reqBody, err := json.Marshal(ChatRequest{
		Question:    question,
		Stream:      false,
		ChatHistory: chatHistory,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai backend error: status %d", resp.StatusCode)
	}

	var answer chatAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return "", fmt.Errorf("decode answer: %w", err)
	}

	return answer.Answer, nil
}

// Stream gọi AI backend ở chế độ streaming và gọi onToken cho từng token
// onToken trả lỗi -> dừng đọc stream và trả lỗi đó về
func (c *Client) Stream(ctx context.Context, question string, chatHistory []history.Entry, onToken func(token string) error) error {
	reqBody, err := json.Marshal(ChatRequest{
		Question:    question,
		Stream:      true,
		ChatHistory: chatHistory,
	})
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ai backend error: status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	// Token dài (đoạn văn) vẫn phải nằm gọn trong một dòng SSE
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Warn("skip malformed sse chunk", zap.String("data", data))
			continue
		}

		if chunk.Type != "token" {
			continue
		}

		if err := onToken(chunk.Content); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}

	return nil
}

// Health ping AI backend lúc khởi động để log sớm khi backend chưa chạy
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ai backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("ai backend unhealthy: status %d", resp.StatusCode)
	}

	return nil
}
