package entity

// ModerationJobStatus mirrors the states reported by the external content
// analysis service.
type ModerationJobStatus string

const (
	ModerationInProgress ModerationJobStatus = "IN_PROGRESS"
	ModerationSucceeded  ModerationJobStatus = "SUCCEEDED"
	ModerationFailed     ModerationJobStatus = "FAILED"
)

// ModerationLabel is one detection returned by the analysis service.
type ModerationLabel struct {
	Name            string
	ParentName      string
	Confidence      float32
	TimestampMillis int64
}

// ModerationResult is one poll response for an outstanding analysis job.
type ModerationResult struct {
	Status        ModerationJobStatus
	Labels        []ModerationLabel
	StatusMessage string
}
