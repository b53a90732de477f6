package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"salechat-gin/internal/history"
)

// ===========================================================================
// Vision Pipeline
// Nhận diện sản phẩm từ ảnh khách gửi: tải ảnh về file tạm,
// upload multipart sang image-search service, ghi mã sản phẩm
// vào image hint của khách
// Best-effort: mọi lỗi chỉ log, không chặn luồng chat
// ===========================================================================

// searchResponse response của image-search service
type searchResponse struct {
	Results []searchResult `json:"results"`
}

// searchResult một sản phẩm match được
type searchResult struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
}

// Pipeline tải ảnh và gọi image-search service
type Pipeline struct {
	searchURL string
	client    *http.Client
	history   *history.Store
	logger    *zap.Logger
}

// NewPipeline tạo vision pipeline mới
func NewPipeline(searchURL string, hist *history.Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		searchURL: strings.TrimRight(searchURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
		history:   hist,
		logger:    logger,
	}
}

// Process chạy pipeline cho một ảnh của khách
// Chỉ trả về lỗi cho tests; caller trong luồng chat bỏ qua giá trị này
func (p *Pipeline) Process(ctx context.Context, userKey, imageURL string) error {
	tempPath, err := p.download(ctx, imageURL)
	if err != nil {
		p.logger.Warn("download image failed",
			zap.String("user", userKey),
			zap.String("url", imageURL),
			zap.Error(err),
		)
		return err
	}
	// File tạm luôn được dọn, kể cả khi search lỗi
	defer os.Remove(tempPath)

	productID, err := p.search(ctx, tempPath)
	if err != nil {
		p.logger.Warn("image search failed",
			zap.String("user", userKey),
			zap.Error(err),
		)
		return err
	}

	if productID == "" {
		p.logger.Info("image search: no match",
			zap.String("user", userKey),
		)
		return nil
	}

	p.history.AddImageHint(ctx, userKey, productID)
	p.logger.Info("image search: matched product",
		zap.String("user", userKey),
		zap.String("product_id", productID),
	)

	return nil
}

// ProcessAsync chạy Process trên goroutine riêng, lỗi đã được log bên trong
func (p *Pipeline) ProcessAsync(userKey, imageURL string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_ = p.Process(ctx, userKey, imageURL)
	}()
}

// download tải ảnh về file tạm temp_<uuid>.jpg trong thư mục temp
func (p *Pipeline) download(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: status %d", resp.StatusCode)
	}

	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("temp_%s.jpg", uuid.NewString()))
	f, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return "", err
	}

	return tempPath, nil
}

// search upload ảnh sang image-search service và trả về product id đầu tiên
// Không có kết quả nào -> trả chuỗi rỗng, không phải lỗi
func (p *Pipeline) search(ctx context.Context, imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open temp file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.searchURL+"/search/", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("search service error: status %d body %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	if len(result.Results) == 0 {
		return "", nil
	}

	return result.Results[0].ProductID, nil
}
