package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"videogate/internal/domain/entity"
)

// ModerationClient adapts AWS Rekognition content moderation to the
// poller's start/get contract. One client is constructed per process and
// reuses its connections.
type ModerationClient struct {
	client *rekognition.Client
	bucket string
}

type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

func NewModerationClient(ctx context.Context, cfg Config) (*ModerationClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &ModerationClient{
		client: rekognition.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
	}, nil
}

func (m *ModerationClient) StartJob(ctx context.Context, s3Key string, minConfidence float32) (string, error) {
	out, err := m.client.StartContentModeration(ctx, &rekognition.StartContentModerationInput{
		Video: &types.Video{
			S3Object: &types.S3Object{
				Bucket: aws.String(m.bucket),
				Name:   aws.String(s3Key),
			},
		},
		MinConfidence: aws.Float32(minConfidence),
	})
	if err != nil {
		return "", fmt.Errorf("start content moderation: %w", err)
	}
	if out.JobId == nil {
		return "", nil
	}
	return *out.JobId, nil
}

func (m *ModerationClient) GetJob(ctx context.Context, jobID string) (*entity.ModerationResult, error) {
	out, err := m.client.GetContentModeration(ctx, &rekognition.GetContentModerationInput{
		JobId: aws.String(jobID),
	})
	if err != nil {
		return nil, fmt.Errorf("get content moderation: %w", err)
	}

	result := &entity.ModerationResult{
		Status:        jobStatus(out.JobStatus),
		StatusMessage: aws.ToString(out.StatusMessage),
	}
	for _, detection := range out.ModerationLabels {
		if detection.ModerationLabel == nil {
			continue
		}
		result.Labels = append(result.Labels, entity.ModerationLabel{
			Name:            aws.ToString(detection.ModerationLabel.Name),
			ParentName:      aws.ToString(detection.ModerationLabel.ParentName),
			Confidence:      aws.ToFloat32(detection.ModerationLabel.Confidence),
			TimestampMillis: detection.Timestamp,
		})
	}
	return result, nil
}

func jobStatus(status types.VideoJobStatus) entity.ModerationJobStatus {
	switch status {
	case types.VideoJobStatusSucceeded:
		return entity.ModerationSucceeded
	case types.VideoJobStatusFailed:
		return entity.ModerationFailed
	default:
		return entity.ModerationInProgress
	}
}
