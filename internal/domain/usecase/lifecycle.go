package usecase

import (
	"context"
	"log/slog"

	"videogate/internal/domain/entity"
)

// VideoRef identifies one video and its owners for the duration of a
// pipeline run.
type VideoRef struct {
	VideoID string
	UserID  string
	OrgID   string
}

type LifecycleRepo interface {
	MarkProcessing(ctx context.Context, videoID string) (bool, error)
	UpdateProgress(ctx context.Context, videoID string, progress int) (bool, error)
	MarkCompleted(ctx context.Context, videoID string, sensitivity entity.SensitivityStatus) (bool, error)
	MarkFailed(ctx context.Context, videoID string) (bool, error)
}

type Notifier interface {
	Publish(ctx context.Context, channel string, event entity.Event) error
}

type StatusCache interface {
	SetStatus(ctx context.Context, videoID string, status string) error
	SetProgress(ctx context.Context, videoID string, progress int) error
}

// Lifecycle is the single writer of a video's status, sensitivity and
// progress fields. All writes are guarded conditional updates keyed by
// video id, so an out-of-order call becomes a logged no-op instead of a
// regression.
type Lifecycle struct {
	Repo     LifecycleRepo
	Notifier Notifier
	Cache    StatusCache
	Log      *slog.Logger
}

func NewLifecycle(repo LifecycleRepo, notifier Notifier, cache StatusCache, log *slog.Logger) *Lifecycle {
	return &Lifecycle{Repo: repo, Notifier: notifier, Cache: cache, Log: log}
}

// Advance moves a video to the given status. Transitions outside
// uploading -> processing -> {completed, failed} are rejected as no-ops.
// Completing requires a non-unset sensitivity verdict. Every applied
// transition notifies subscribers before returning.
func (l *Lifecycle) Advance(ctx context.Context, ref VideoRef, to entity.VideoStatus, sensitivity entity.SensitivityStatus) error {
	switch to {
	case entity.StatusProcessing:
		applied, err := l.Repo.MarkProcessing(ctx, ref.VideoID)
		if err != nil {
			return err
		}
		if !applied {
			l.rejected(ref, to)
			return nil
		}
		l.cacheState(ctx, ref.VideoID, entity.StatusProcessing, 0)
		l.emit(ctx, ref, entity.NewProcessingEvent(ref.VideoID, 0, ""))
	case entity.StatusCompleted:
		if sensitivity == entity.SensitivityUnset {
			l.Log.Warn("rejected completion without sensitivity verdict", "video_id", ref.VideoID)
			return nil
		}
		applied, err := l.Repo.MarkCompleted(ctx, ref.VideoID, sensitivity)
		if err != nil {
			return err
		}
		if !applied {
			l.rejected(ref, to)
			return nil
		}
		l.cacheState(ctx, ref.VideoID, entity.StatusCompleted, 100)
		l.emit(ctx, ref, entity.NewCompletedEvent(ref.VideoID, sensitivity))
	case entity.StatusFailed:
		applied, err := l.Repo.MarkFailed(ctx, ref.VideoID)
		if err != nil {
			return err
		}
		if !applied {
			l.rejected(ref, to)
			return nil
		}
		if l.Cache != nil {
			if err := l.Cache.SetStatus(ctx, ref.VideoID, string(entity.StatusFailed)); err != nil {
				l.Log.Warn("status cache write failed", "video_id", ref.VideoID, "error", err)
			}
		}
		l.emit(ctx, ref, entity.NewFailedEvent(ref.VideoID))
	default:
		l.rejected(ref, to)
	}
	return nil
}

// Progress records a progress tick for a video still in processing. The
// store guard keeps progress non-decreasing; a stale tick is dropped
// silently.
func (l *Lifecycle) Progress(ctx context.Context, ref VideoRef, progress int, message string) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	applied, err := l.Repo.UpdateProgress(ctx, ref.VideoID, progress)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	if l.Cache != nil {
		if err := l.Cache.SetProgress(ctx, ref.VideoID, progress); err != nil {
			l.Log.Warn("progress cache write failed", "video_id", ref.VideoID, "error", err)
		}
	}
	l.emit(ctx, ref, entity.NewProcessingEvent(ref.VideoID, progress, message))
	return nil
}

func (l *Lifecycle) rejected(ref VideoRef, to entity.VideoStatus) {
	l.Log.Warn("rejected status transition", "video_id", ref.VideoID, "to", string(to))
}

func (l *Lifecycle) cacheState(ctx context.Context, videoID string, status entity.VideoStatus, progress int) {
	if l.Cache == nil {
		return
	}
	if err := l.Cache.SetStatus(ctx, videoID, string(status)); err != nil {
		l.Log.Warn("status cache write failed", "video_id", videoID, "error", err)
	}
	if err := l.Cache.SetProgress(ctx, videoID, progress); err != nil {
		l.Log.Warn("progress cache write failed", "video_id", videoID, "error", err)
	}
}

// emit is fire-and-forget: a dropped event is superseded by the next one
// or by clients re-fetching state on reconnect.
func (l *Lifecycle) emit(ctx context.Context, ref VideoRef, event entity.Event) {
	channels := []string{entity.UserChannel(ref.UserID)}
	if ref.OrgID != "" {
		channels = append(channels, entity.OrgChannel(ref.OrgID))
	}
	for _, channel := range channels {
		if err := l.Notifier.Publish(ctx, channel, event); err != nil {
			l.Log.Warn("event publish failed", "video_id", ref.VideoID, "channel", channel, "error", err)
		}
	}
}
