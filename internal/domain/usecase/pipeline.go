package usecase

import (
	"context"
	"log/slog"

	"videogate/internal/domain/entity"
)

// PipelineUseCase drives one uploaded video through the sequential stage
// chain: lifecycle advance, format adaptation, moderation polling and the
// terminal transition. Runs for different videos are independent; the
// video record is the only shared state and every write goes through the
// lifecycle.
type PipelineUseCase struct {
	Lifecycle *Lifecycle
	Adapter   *FormatAdapter
	Poller    *ModerationPoller
	Log       *slog.Logger
}

func NewPipelineUseCase(lifecycle *Lifecycle, adapter *FormatAdapter, poller *ModerationPoller, log *slog.Logger) *PipelineUseCase {
	return &PipelineUseCase{Lifecycle: lifecycle, Adapter: adapter, Poller: poller, Log: log}
}

func (u *PipelineUseCase) ProcessVideo(ctx context.Context, msg entity.VideoUploadedMessage) error {
	ref := VideoRef{VideoID: msg.VideoID, UserID: msg.UserID, OrgID: msg.OrgID}
	u.Log.Info("pipeline run started", "video_id", ref.VideoID, "s3_key", msg.S3Key)

	if err := u.Lifecycle.Advance(ctx, ref, entity.StatusProcessing, entity.SensitivityUnset); err != nil {
		return err
	}

	tick := func(progress int, message string) {
		if err := u.Lifecycle.Progress(ctx, ref, progress, message); err != nil {
			u.Log.Warn("progress update failed", "video_id", ref.VideoID, "progress", progress, "error", err)
		}
	}
	tick(90, "Preparing video for analysis...")

	key, cleanup, err := u.Adapter.EnsureAnalyzable(ctx, ref, msg.S3Key, msg.MimeType, tick)
	defer cleanup()
	if err != nil {
		return u.fail(ctx, ref, err)
	}

	tick(92, "Starting content analysis...")
	verdict, err := u.Poller.Moderate(ctx, ref, key, tick)
	if err != nil {
		return u.fail(ctx, ref, err)
	}

	if err := u.Lifecycle.Advance(ctx, ref, entity.StatusCompleted, verdict); err != nil {
		return err
	}
	u.Log.Info("pipeline run completed", "video_id", ref.VideoID, "verdict", string(verdict))
	return nil
}

func (u *PipelineUseCase) fail(ctx context.Context, ref VideoRef, cause error) error {
	u.Log.Error("pipeline run failed", "video_id", ref.VideoID, "error", cause)
	if err := u.Lifecycle.Advance(ctx, ref, entity.StatusFailed, entity.SensitivityUnset); err != nil {
		u.Log.Error("failed-state write failed", "video_id", ref.VideoID, "error", err)
	}
	return cause
}
