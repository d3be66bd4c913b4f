package psql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"videogate/internal/domain/entity"
	"videogate/internal/domain/usecase"
)

type GormVideoRepo struct {
	DB *gorm.DB
}

func NewGormVideoRepo(db *gorm.DB) *GormVideoRepo {
	return &GormVideoRepo{DB: db}
}

func (r *GormVideoRepo) CreateVideo(ctx context.Context, video *entity.Video) error {
	return r.DB.WithContext(ctx).Create(video).Error
}

func (r *GormVideoRepo) GetVideo(ctx context.Context, videoID, orgID string) (*entity.Video, error) {
	video := &entity.Video{}
	err := r.DB.WithContext(ctx).First(video, "video_id = ? AND org_id = ?", videoID, orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, usecase.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

func (r *GormVideoRepo) ListVideos(ctx context.Context, orgID string, filter usecase.VideoFilter) ([]entity.Video, int64, error) {
	query := r.DB.WithContext(ctx).Model(&entity.Video{}).Where("org_id = ?", orgID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SensitivityStatus != "" {
		query = query.Where("sensitivity_status = ?", filter.SensitivityStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	var videos []entity.Video
	err := query.
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&videos).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list videos: %w", err)
	}
	return videos, total, nil
}

func (r *GormVideoRepo) DeleteVideo(ctx context.Context, videoID string) error {
	return r.DB.WithContext(ctx).Delete(&entity.Video{}, "video_id = ?", videoID).Error
}

// The lifecycle writes below are guarded conditional updates: the WHERE
// clause encodes the allowed source state, so a write racing a newer one
// reports applied=false instead of regressing the record.

func (r *GormVideoRepo) MarkProcessing(ctx context.Context, videoID string) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&entity.Video{}).
		Where("video_id = ? AND status = ?", videoID, entity.StatusUploading).
		Updates(map[string]any{
			"status":              entity.StatusProcessing,
			"processing_progress": 0,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *GormVideoRepo) UpdateProgress(ctx context.Context, videoID string, progress int) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&entity.Video{}).
		Where("video_id = ? AND status = ? AND processing_progress < ?", videoID, entity.StatusProcessing, progress).
		Update("processing_progress", progress)
	return res.RowsAffected > 0, res.Error
}

func (r *GormVideoRepo) MarkCompleted(ctx context.Context, videoID string, sensitivity entity.SensitivityStatus) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&entity.Video{}).
		Where("video_id = ? AND status = ?", videoID, entity.StatusProcessing).
		Updates(map[string]any{
			"status":              entity.StatusCompleted,
			"sensitivity_status":  sensitivity,
			"processing_progress": 100,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *GormVideoRepo) MarkFailed(ctx context.Context, videoID string) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&entity.Video{}).
		Where("video_id = ? AND status = ?", videoID, entity.StatusProcessing).
		Update("status", entity.StatusFailed)
	return res.RowsAffected > 0, res.Error
}
