package vision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salechat-gin/internal/history"
)

func newTestPipeline(t *testing.T, searchURL string) (*Pipeline, *history.Store) {
	t.Helper()
	hist := history.NewStore(history.NewMemoryListStore(), zap.NewNop())
	return NewPipeline(searchURL, hist, zap.NewNop()), hist
}

func TestProcess_RecordsImageHint(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("fake-jpeg-bytes"))
	}))
	defer imageSrv.Close()

	var gotField string
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		f.Close()
		gotField = header.Filename
		w.Write([]byte(`{"results": [{"product_id": "SP042", "score": 0.91}]}`))
	}))
	defer searchSrv.Close()

	pipeline, hist := newTestPipeline(t, searchSrv.URL)

	err := pipeline.Process(context.Background(), "fb:999", imageSrv.URL+"/photo.jpg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotField, "temp_"))
	assert.True(t, strings.HasSuffix(gotField, ".jpg"))

	hints := hist.ImageHints(context.Background(), "fb:999")
	require.Len(t, hints, 1)
	assert.Equal(t, "Đã gửi ảnh mã SP042", hints[0])
}

func TestProcess_NoMatch_NoHint(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img"))
	}))
	defer imageSrv.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer searchSrv.Close()

	pipeline, hist := newTestPipeline(t, searchSrv.URL)

	err := pipeline.Process(context.Background(), "42", imageSrv.URL)
	require.NoError(t, err)
	assert.Empty(t, hist.ImageHints(context.Background(), "42"))
}

func TestProcess_DownloadError(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer imageSrv.Close()

	pipeline, hist := newTestPipeline(t, "http://127.0.0.1:0")

	err := pipeline.Process(context.Background(), "42", imageSrv.URL)
	assert.Error(t, err)
	assert.Empty(t, hist.ImageHints(context.Background(), "42"))
}

func TestProcess_SearchError_TempFileRemoved(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img"))
	}))
	defer imageSrv.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer searchSrv.Close()

	pipeline, hist := newTestPipeline(t, searchSrv.URL)

	before := countTempImages(t)
	err := pipeline.Process(context.Background(), "42", imageSrv.URL)
	assert.Error(t, err)
	assert.Empty(t, hist.ImageHints(context.Background(), "42"))

	// File tạm phải được dọn cả khi search lỗi
	assert.Equal(t, before, countTempImages(t))
}

func countTempImages(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "temp_*.jpg"))
	require.NoError(t, err)
	return len(matches)
}
