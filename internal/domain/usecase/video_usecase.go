package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"videogate/internal/domain/entity"
	"videogate/pkg/utils"
)

type VideoRepo interface {
	CreateVideo(ctx context.Context, video *entity.Video) error
	GetVideo(ctx context.Context, videoID, orgID string) (*entity.Video, error)
	ListVideos(ctx context.Context, orgID string, filter VideoFilter) ([]entity.Video, int64, error)
	DeleteVideo(ctx context.Context, videoID string) error
}

type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Stat(ctx context.Context, key string) (entity.ObjectInfo, error)
	GetFileReader(ctx context.Context, key string) (io.ReadCloser, error)
	GetRangeReader(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Publisher interface {
	Publish(ctx context.Context, body json.RawMessage) error
}

type ProgressCache interface {
	GetProgress(ctx context.Context, videoID string) (int, bool, error)
}

type VideoFilter struct {
	Status            string
	SensitivityStatus string
	Page              int
	Limit             int
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// StreamData describes one streaming response: the byte reader plus the
// range math the handler needs for headers.
type StreamData struct {
	Reader      io.ReadCloser
	Start       int64
	End         int64
	ChunkSize   int64
	FileSize    int64
	ContentType string
	StatusCode  int
}

const (
	DefaultMaxUploadSize = int64(500 * 1024 * 1024)
	defaultPageLimit     = 10
	maxPageLimit         = 100
	presignedURLTTL      = time.Hour
)

var allowedUploadMimes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/ogg":       true,
	"video/quicktime": true,
	"video/x-msvideo": true,
}

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

type VideoUseCase struct {
	Repo          VideoRepo
	Storage       Storage
	Publisher     Publisher
	Cache         ProgressCache
	MaxUploadSize int64
	Log           *slog.Logger
}

func NewVideoUseCase(repo VideoRepo, storage Storage, publisher Publisher, cache ProgressCache, log *slog.Logger) *VideoUseCase {
	return &VideoUseCase{
		Repo:          repo,
		Storage:       storage,
		Publisher:     publisher,
		Cache:         cache,
		MaxUploadSize: DefaultMaxUploadSize,
		Log:           log,
	}
}

// UploadVideo stores the raw bytes, creates the record and enqueues the
// pipeline task. The response never waits for moderation.
func (u *VideoUseCase) UploadVideo(ctx context.Context, file io.Reader, size int64, fileName, mimeType, userID, orgID string) (*entity.Video, error) {
	if fileName == "" || size <= 0 {
		return nil, fmt.Errorf("%w: missing file", ErrValidation)
	}
	if size > u.MaxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, u.MaxUploadSize)
	}
	if !allowedUploadMimes[strings.ToLower(mimeType)] {
		return nil, fmt.Errorf("%w: unsupported mime type %q", ErrValidation, mimeType)
	}

	videoID := uuid.New().String()
	s3Key := fmt.Sprintf("%s/%s/%d-%s", orgID, userID, time.Now().UnixMilli(), keySanitizer.ReplaceAllString(fileName, "_"))

	if err := u.Storage.Upload(ctx, s3Key, file, size, mimeType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	video := &entity.Video{
		VideoID:   videoID,
		UserID:    userID,
		OrgID:     orgID,
		FileName:  fileName,
		S3Key:     s3Key,
		Size:      size,
		MimeType:  mimeType,
		Status:    entity.StatusUploading,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := u.Repo.CreateVideo(ctx, video); err != nil {
		return nil, err
	}

	msg, err := utils.ToRawMessage(entity.VideoUploadedMessage{
		VideoID:  videoID,
		UserID:   userID,
		OrgID:    orgID,
		S3Key:    s3Key,
		MimeType: mimeType,
	})
	if err != nil {
		return nil, err
	}
	if err := u.publishWithRetry(ctx, msg); err != nil {
		return nil, err
	}

	u.Log.Info("video uploaded", "video_id", videoID, "org_id", orgID, "size", size)
	return video, nil
}

func (u *VideoUseCase) GetVideos(ctx context.Context, orgID string, filter VideoFilter) ([]entity.Video, Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	videos, total, err := u.Repo.ListVideos(ctx, orgID, filter)
	if err != nil {
		return nil, Pagination{}, err
	}
	pages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return videos, Pagination{Page: filter.Page, Limit: filter.Limit, Total: total, Pages: pages}, nil
}

// GetVideo returns the record with a time-limited signed playback URL.
// Live progress from the cache overrides the stored value while the
// pipeline is still running.
func (u *VideoUseCase) GetVideo(ctx context.Context, videoID, orgID string) (*entity.Video, string, error) {
	video, err := u.Repo.GetVideo(ctx, videoID, orgID)
	if err != nil {
		return nil, "", err
	}

	if video.Status == entity.StatusProcessing && u.Cache != nil {
		if progress, ok, err := u.Cache.GetProgress(ctx, videoID); err == nil && ok && progress > video.ProcessingProgress {
			video.ProcessingProgress = progress
		}
	}

	streamURL, err := u.Storage.GetPresignedURL(ctx, video.S3Key, presignedURLTTL)
	if err != nil {
		return nil, "", fmt.Errorf("sign playback url: %w", err)
	}
	return video, streamURL, nil
}

func (u *VideoUseCase) DeleteVideo(ctx context.Context, videoID, orgID, userID, role string) error {
	video, err := u.Repo.GetVideo(ctx, videoID, orgID)
	if err != nil {
		return err
	}
	if role != "admin" && video.UserID != userID {
		return ErrForbidden
	}
	if err := u.Storage.Delete(ctx, video.S3Key); err != nil {
		// The record delete still proceeds; an orphaned object is
		// preferable to a record pointing at freed storage.
		u.Log.Warn("object delete failed", "video_id", videoID, "s3_key", video.S3Key, "error", err)
	}
	return u.Repo.DeleteVideo(ctx, videoID)
}

// StreamVideo resolves a streaming response for a completed video. The
// blob store is not touched unless the status precondition holds.
func (u *VideoUseCase) StreamVideo(ctx context.Context, videoID, orgID, rangeHeader string) (*StreamData, error) {
	video, err := u.Repo.GetVideo(ctx, videoID, orgID)
	if err != nil {
		return nil, err
	}
	if video.Status != entity.StatusCompleted {
		return nil, ErrNotReady
	}

	info, err := u.Storage.Stat(ctx, video.S3Key)
	if err != nil {
		return nil, fmt.Errorf("head object %s: %w", video.S3Key, err)
	}

	start, end, hasRange, err := parseRange(rangeHeader, info.Size)
	if err != nil {
		return &StreamData{FileSize: info.Size}, err
	}

	if !hasRange {
		reader, err := u.Storage.GetFileReader(ctx, video.S3Key)
		if err != nil {
			return nil, fmt.Errorf("get object %s: %w", video.S3Key, err)
		}
		return &StreamData{
			Reader:      reader,
			Start:       0,
			End:         info.Size - 1,
			ChunkSize:   info.Size,
			FileSize:    info.Size,
			ContentType: info.ContentType,
			StatusCode:  200,
		}, nil
	}

	reader, err := u.Storage.GetRangeReader(ctx, video.S3Key, start, end)
	if err != nil {
		return nil, fmt.Errorf("get object range %s: %w", video.S3Key, err)
	}
	return &StreamData{
		Reader:      reader,
		Start:       start,
		End:         end,
		ChunkSize:   end - start + 1,
		FileSize:    info.Size,
		ContentType: info.ContentType,
		StatusCode:  206,
	}, nil
}

// parseRange interprets a Range header of the form bytes=<start>-<end?>.
// Malformed syntax is treated as "no range" so naive players keep
// working; a parseable range starting past the end of the object is the
// one hard error.
func parseRange(header string, size int64) (start, end int64, hasRange bool, err error) {
	if header == "" {
		return 0, 0, false, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, 0, false, nil
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false, nil
	}

	start, perr := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if perr != nil || start < 0 {
		return 0, 0, false, nil
	}
	end = size - 1
	if trimmed := strings.TrimSpace(parts[1]); trimmed != "" {
		end, perr = strconv.ParseInt(trimmed, 10, 64)
		if perr != nil {
			return 0, 0, false, nil
		}
	}

	if start >= size {
		return 0, 0, false, ErrRangeNotSatisfiable
	}
	if end >= size {
		end = size - 1
	}
	if end < start {
		return 0, 0, false, nil
	}
	return start, end, true, nil
}

func (u *VideoUseCase) publishWithRetry(ctx context.Context, msg json.RawMessage) error {
	var (
		baseDelay   = 500 * time.Millisecond
		maxDelay    = 10 * time.Second
		maxAttempts = 5
	)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := u.Publisher.Publish(ctx, msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt == maxAttempts {
			break
		}

		backoff := baseDelay << (attempt - 1)
		if backoff > maxDelay {
			backoff = maxDelay
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return errors.New("publish canceled by context")
		}
	}
	return lastErr
}
