package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"

	"videogate/internal/domain/entity"
	"videogate/pkg/client/s3"
)

type S3Repo struct {
	StorageS3 *s3.StorageS3
}

func NewS3Repo(storageS3 *s3.StorageS3) *S3Repo {
	return &S3Repo{
		StorageS3: storageS3,
	}
}

func (s *S3Repo) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if s.StorageS3 == nil || s.StorageS3.Client == nil {
		return fmt.Errorf("s3 client not initialized")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.StorageS3.Client.PutObject(
		ctx,
		s.StorageS3.Bucket,
		key,
		reader,
		size,
		minio.PutObjectOptions{
			ContentType: contentType,
		},
	)
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (s *S3Repo) GetFileReader(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.StorageS3.Client.GetObject(ctx, s.StorageS3.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	return obj, nil
}

// GetRangeReader streams exactly bytes [start, end] of the object, so a
// range response never buffers the whole file.
func (s *S3Repo) GetRangeReader(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, fmt.Errorf("s3 range: %w", err)
	}
	obj, err := s.StorageS3.Client.GetObject(ctx, s.StorageS3.Bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("s3 get object range: %w", err)
	}
	return obj, nil
}

func (s *S3Repo) Stat(ctx context.Context, key string) (entity.ObjectInfo, error) {
	info, err := s.StorageS3.Client.StatObject(ctx, s.StorageS3.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return entity.ObjectInfo{}, fmt.Errorf("s3 stat object: %w", err)
	}
	return entity.ObjectInfo{ContentType: info.ContentType, Size: info.Size}, nil
}

func (s *S3Repo) GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.StorageS3 == nil || s.StorageS3.Client == nil {
		return "", fmt.Errorf("s3 client not initialized")
	}

	reqParams := url.Values{}
	presignedURL, err := s.StorageS3.Client.PresignedGetObject(ctx, s.StorageS3.Bucket, key, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("presigned get object: %w", err)
	}
	return presignedURL.String(), nil
}

func (s *S3Repo) Delete(ctx context.Context, key string) error {
	err := s.StorageS3.Client.RemoveObject(ctx, s.StorageS3.Bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("s3 remove object: %w", err)
	}
	return nil
}
