package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"videogate/pkg/ffmpeg"
)

// Container formats the analysis service accepts natively. Anything else
// is transcoded to mp4 first.
var analyzableExtensions = map[string]bool{
	".mp4":   true,
	".mov":   true,
	".mpeg4": true,
}

var analyzableMimeTypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
	"video/mpeg":      true,
}

type AdapterStorage interface {
	GetFileReader(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// FormatAdapter makes an uploaded object analyzable: when the native
// container is not accepted it fetches the bytes, transcodes via ffmpeg
// and uploads the result under a derived temporary key.
type FormatAdapter struct {
	Storage    AdapterStorage
	Transcoder ffmpeg.Client
	ScratchDir string
	Log        *slog.Logger
}

func NewFormatAdapter(storage AdapterStorage, transcoder ffmpeg.Client, scratchDir string, log *slog.Logger) *FormatAdapter {
	return &FormatAdapter{Storage: storage, Transcoder: transcoder, ScratchDir: scratchDir, Log: log}
}

func analyzable(s3Key, mimeType string) bool {
	if analyzableExtensions[strings.ToLower(filepath.Ext(s3Key))] {
		return true
	}
	return analyzableMimeTypes[strings.ToLower(mimeType)]
}

// EnsureAnalyzable returns the object key to hand to the moderation
// service and a cleanup func releasing all scratch state. cleanup is
// always non-nil and must run when the pipeline run ends, success or
// failure. A transcode failure is terminal: moderation cannot proceed
// without a compatible object.
func (a *FormatAdapter) EnsureAnalyzable(ctx context.Context, ref VideoRef, s3Key, mimeType string, tick func(progress int, message string)) (string, func(), error) {
	if analyzable(s3Key, mimeType) {
		return s3Key, func() {}, nil
	}

	tick(91, "Converting video format...")
	a.Log.Info("video format not analyzable, converting to mp4",
		"video_id", ref.VideoID, "s3_key", s3Key, "mime_type", mimeType)

	originalPath := filepath.Join(a.ScratchDir, ref.VideoID+"_original")
	convertedPath := filepath.Join(a.ScratchDir, ref.VideoID+"_converted.mp4")
	tempKey := ""
	cleanup := func() {
		for _, path := range []string{originalPath, convertedPath} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				a.Log.Warn("scratch file cleanup failed", "path", path, "error", err)
			}
		}
		if tempKey == "" {
			return
		}
		// The pipeline context may already be done; the temp object must
		// still be removed.
		dctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.Storage.Delete(dctx, tempKey); err != nil {
			a.Log.Warn("temp object cleanup failed", "s3_key", tempKey, "error", err)
		}
	}

	if err := os.MkdirAll(a.ScratchDir, 0o755); err != nil {
		return "", cleanup, fmt.Errorf("create scratch dir: %w", err)
	}
	if err := a.download(ctx, s3Key, originalPath); err != nil {
		return "", cleanup, err
	}

	if err := a.Transcoder.Transcode(ctx, originalPath, convertedPath); err != nil {
		return "", cleanup, fmt.Errorf("transcode %s: %w", s3Key, err)
	}
	info, err := os.Stat(convertedPath)
	if err != nil {
		return "", cleanup, fmt.Errorf("transcoded file not created: %w", err)
	}

	converted, err := os.Open(convertedPath)
	if err != nil {
		return "", cleanup, fmt.Errorf("open transcoded file: %w", err)
	}
	defer converted.Close()

	key := s3Key + ".converted.mp4"
	if err := a.Storage.Upload(ctx, key, converted, info.Size(), "video/mp4"); err != nil {
		return "", cleanup, fmt.Errorf("upload transcoded object: %w", err)
	}
	tempKey = key

	a.Log.Info("video converted and uploaded", "video_id", ref.VideoID, "s3_key", key, "size", info.Size())
	return key, cleanup, nil
}

func (a *FormatAdapter) download(ctx context.Context, s3Key, path string) error {
	reader, err := a.Storage.GetFileReader(ctx, s3Key)
	if err != nil {
		return fmt.Errorf("fetch object %s: %w", s3Key, err)
	}
	defer reader.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		return fmt.Errorf("download object %s: %w", s3Key, err)
	}
	return out.Close()
}
