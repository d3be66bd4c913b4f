package usecase

import (
	"context"
	"log/slog"
	"time"

	"videogate/internal/domain/entity"
)

type ModerationService interface {
	StartJob(ctx context.Context, s3Key string, minConfidence float32) (string, error)
	GetJob(ctx context.Context, jobID string) (*entity.ModerationResult, error)
}

const (
	defaultPollInterval  = 5 * time.Second
	defaultMaxAttempts   = 120
	defaultMinConfidence = 30

	progressAnalysisStart   = 93
	progressAnalysisCeiling = 97
	progressFinalizing      = 98
)

// moderationJob is the ephemeral record of one outstanding analysis call.
// It lives only for the duration of a single Moderate run.
type moderationJob struct {
	id          string
	submittedAt time.Time
	attempts    int
}

// ModerationPoller submits a stored object to the external analysis
// service and polls until a verdict or a terminal failure.
//
// Failure policy: a job that the service reports as FAILED, or a
// submission that yields no job handle, resolves fail-open to safe. Only
// exhausting the attempt ceiling fails the pipeline run.
type ModerationPoller struct {
	Service       ModerationService
	Interval      time.Duration
	MaxAttempts   int
	MinConfidence float32
	Log           *slog.Logger
}

func NewModerationPoller(service ModerationService, log *slog.Logger) *ModerationPoller {
	return &ModerationPoller{
		Service:       service,
		Interval:      defaultPollInterval,
		MaxAttempts:   defaultMaxAttempts,
		MinConfidence: defaultMinConfidence,
		Log:           log,
	}
}

// Moderate runs one moderation job to completion. tick receives
// intermediate progress updates; the values stay below the completion
// progress reserved for the state machine.
func (p *ModerationPoller) Moderate(ctx context.Context, ref VideoRef, s3Key string, tick func(progress int, message string)) (entity.SensitivityStatus, error) {
	jobID, err := p.Service.StartJob(ctx, s3Key, p.MinConfidence)
	if err != nil {
		p.Log.Error("moderation job submission failed, falling back to safe", "video_id", ref.VideoID, "error", err)
		return entity.SensitivitySafe, nil
	}
	if jobID == "" {
		p.Log.Error("moderation service returned no job handle, falling back to safe", "video_id", ref.VideoID)
		return entity.SensitivitySafe, nil
	}

	p.Log.Info("moderation job started", "video_id", ref.VideoID, "job_id", jobID, "s3_key", s3Key)
	tick(progressAnalysisStart, "Analyzing video content...")

	job := moderationJob{id: jobID, submittedAt: time.Now()}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	lastProgress := 0
	for job.attempts < p.MaxAttempts {
		select {
		case <-ctx.Done():
			return entity.SensitivityUnset, ctx.Err()
		case <-ticker.C:
		}

		result, err := p.Service.GetJob(ctx, job.id)
		job.attempts++
		if err != nil {
			// Transient transport error; only the ceiling aborts.
			p.Log.Warn("moderation poll failed", "video_id", ref.VideoID, "job_id", job.id, "attempt", job.attempts, "error", err)
			continue
		}

		switch result.Status {
		case entity.ModerationSucceeded:
			tick(progressFinalizing, "Finalizing analysis...")
			verdict := p.verdict(result.Labels)
			p.Log.Info("moderation job succeeded",
				"video_id", ref.VideoID,
				"job_id", job.id,
				"labels", len(result.Labels),
				"verdict", string(verdict),
				"elapsed", time.Since(job.submittedAt).String(),
			)
			return verdict, nil
		case entity.ModerationFailed:
			p.Log.Error("moderation job failed, falling back to safe",
				"video_id", ref.VideoID, "job_id", job.id, "status_message", result.StatusMessage)
			return entity.SensitivitySafe, nil
		default:
			progress := progressAnalysisStart + job.attempts*(progressFinalizing-progressAnalysisStart)/p.MaxAttempts
			if progress > progressAnalysisCeiling {
				progress = progressAnalysisCeiling
			}
			if progress != lastProgress {
				tick(progress, "Analyzing video content...")
				lastProgress = progress
			}
		}
	}

	p.Log.Error("moderation job timed out", "video_id", ref.VideoID, "job_id", job.id, "attempts", job.attempts)
	return entity.SensitivityUnset, ErrModerationTimeout
}

// verdict flags the video iff any label clears the confidence threshold.
func (p *ModerationPoller) verdict(labels []entity.ModerationLabel) entity.SensitivityStatus {
	for _, label := range labels {
		if label.Confidence > p.MinConfidence {
			return entity.SensitivityFlagged
		}
	}
	return entity.SensitivitySafe
}
