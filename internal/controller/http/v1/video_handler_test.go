package v1

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"videogate/internal/domain/entity"
	"videogate/internal/domain/usecase"
)

type stubUseCase struct {
	video     *entity.Video
	streamURL string
	stream    *usecase.StreamData
	err       error
	deleteErr error
}

func (s *stubUseCase) UploadVideo(_ context.Context, file io.Reader, size int64, fileName, mimeType, userID, orgID string) (*entity.Video, error) {
	if s.err != nil {
		return nil, s.err
	}
	io.Copy(io.Discard, file)
	return s.video, nil
}

func (s *stubUseCase) GetVideos(context.Context, string, usecase.VideoFilter) ([]entity.Video, usecase.Pagination, error) {
	if s.err != nil {
		return nil, usecase.Pagination{}, s.err
	}
	return []entity.Video{*s.video}, usecase.Pagination{Page: 1, Limit: 10, Total: 1, Pages: 1}, nil
}

func (s *stubUseCase) GetVideo(context.Context, string, string) (*entity.Video, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.video, s.streamURL, nil
}

func (s *stubUseCase) DeleteVideo(context.Context, string, string, string, string) error {
	return s.deleteErr
}

func (s *stubUseCase) StreamVideo(context.Context, string, string, string) (*usecase.StreamData, error) {
	return s.stream, s.err
}

func newTestRouter(uc VideoUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewVideoHandler(uc)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Set("org_id", "org-1")
		c.Set("role", "editor")
	})
	group := router.Group("/api/v1/videos")
	{
		group.POST("/upload", handler.Upload)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.GET("/:id/stream", handler.Stream)
		group.DELETE("/:id", handler.Delete)
	}
	return router
}

func multipartUpload(t *testing.T, fieldName, fileName, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(payload)
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestUploadReturnsCreated(t *testing.T) {
	uc := &stubUseCase{video: &entity.Video{VideoID: "v1", Status: entity.StatusUploading}}
	router := newTestRouter(uc)

	body, contentType := multipartUpload(t, "video", "clip.mp4", "video/mp4", []byte("bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"v1"`) {
		t.Fatalf("response missing video id: %s", rec.Body.String())
	}
}

func TestUploadRequiresFile(t *testing.T) {
	router := newTestRouter(&stubUseCase{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", strings.NewReader(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadValidationMapsTo400(t *testing.T) {
	uc := &stubUseCase{err: fmt.Errorf("%w: unsupported mime type", usecase.ErrValidation)}
	router := newTestRouter(uc)

	body, contentType := multipartUpload(t, "video", "notes.txt", "text/plain", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStreamFullObject(t *testing.T) {
	payload := bytes.Repeat([]byte{0xCD}, 1000)
	uc := &stubUseCase{stream: &usecase.StreamData{
		Reader:      io.NopCloser(bytes.NewReader(payload)),
		Start:       0,
		End:         999,
		ChunkSize:   1000,
		FileSize:    1000,
		ContentType: "video/mp4",
		StatusCode:  http.StatusOK,
	}}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/v1/stream", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("Accept-Ranges = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "1000" {
		t.Fatalf("Content-Length = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Fatal("body differs from object bytes")
	}
}

func TestStreamPartialContent(t *testing.T) {
	payload := bytes.Repeat([]byte{0xEF}, 100)
	uc := &stubUseCase{stream: &usecase.StreamData{
		Reader:      io.NopCloser(bytes.NewReader(payload)),
		Start:       0,
		End:         99,
		ChunkSize:   100,
		FileSize:    1000,
		ContentType: "video/mp4",
		StatusCode:  http.StatusPartialContent,
	}}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/v1/stream", nil)
	req.Header.Set("Range", "bytes=0-99")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 0-99/1000" {
		t.Fatalf("Content-Range = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "100" {
		t.Fatalf("Content-Length = %q", got)
	}
	if rec.Body.Len() != 100 {
		t.Fatalf("body length = %d, want 100", rec.Body.Len())
	}
}

func TestStreamRangeNotSatisfiable(t *testing.T) {
	uc := &stubUseCase{
		stream: &usecase.StreamData{FileSize: 1000},
		err:    usecase.ErrRangeNotSatisfiable,
	}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/v1/stream", nil)
	req.Header.Set("Range", "bytes=5000-")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */1000" {
		t.Fatalf("Content-Range = %q", got)
	}
}

func TestStreamErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"still processing", usecase.ErrNotReady, http.StatusBadRequest},
		{"unknown video", usecase.ErrNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubUseCase{err: tc.err})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/v1/stream", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}
}

func TestGetVideoIncludesStreamURL(t *testing.T) {
	uc := &stubUseCase{
		video:     &entity.Video{VideoID: "v1", Status: entity.StatusCompleted},
		streamURL: "https://signed.example/v1",
	}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/v1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "https://signed.example/v1") {
		t.Fatalf("response missing stream url: %s", rec.Body.String())
	}
}

func TestDeleteForbidden(t *testing.T) {
	router := newTestRouter(&stubUseCase{deleteErr: usecase.ErrForbidden})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/videos/v1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
