package entity

import (
	"time"

	"gorm.io/gorm"
)

type VideoStatus string

const (
	StatusUploading  VideoStatus = "uploading"
	StatusProcessing VideoStatus = "processing"
	StatusCompleted  VideoStatus = "completed"
	StatusFailed     VideoStatus = "failed"
)

type SensitivityStatus string

const (
	SensitivityUnset   SensitivityStatus = ""
	SensitivitySafe    SensitivityStatus = "safe"
	SensitivityFlagged SensitivityStatus = "flagged"
)

type Video struct {
	VideoID            string            `gorm:"primaryKey;type:uuid" json:"videoId"`
	UserID             string            `gorm:"not null;type:uuid;index" json:"userId"`
	OrgID              string            `gorm:"not null;type:uuid;index" json:"orgId"`
	FileName           string            `gorm:"not null" json:"fileName"`
	S3Key              string            `gorm:"not null" json:"-"`
	S3Bucket           string            `gorm:"not null" json:"-"`
	Size               int64             `gorm:"not null" json:"size"`
	MimeType           string            `gorm:"not null" json:"mimeType"`
	Status             VideoStatus       `gorm:"not null;type:text;index" json:"status"`
	SensitivityStatus  SensitivityStatus `gorm:"type:text;index" json:"sensitivityStatus"`
	ProcessingProgress int               `gorm:"not null;default:0" json:"processingProgress"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt    `gorm:"index" json:"-"`
}

// CanTransition reports whether a status change is allowed. The lifecycle
// is uploading -> processing -> {completed, failed}; terminal states never
// change again.
func CanTransition(from, to VideoStatus) bool {
	switch from {
	case StatusUploading:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Terminal reports whether a status ends the pipeline.
func (s VideoStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
