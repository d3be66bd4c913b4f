package entity

// VideoUploadedMessage is published to the task queue when an upload
// finishes; the worker drives the moderation pipeline from it.
type VideoUploadedMessage struct {
	VideoID  string `json:"video_id"`
	UserID   string `json:"user_id"`
	OrgID    string `json:"org_id"`
	S3Key    string `json:"s3_key"`
	MimeType string `json:"mime_type"`
}

const (
	EventProcessing = "video:processing"
	EventCompleted  = "video:completed"
	EventFailed     = "video:failed"
)

// Event is the realtime payload fanned out on user/org channels. Data
// fields are populated per event kind.
type Event struct {
	Event             string            `json:"event"`
	VideoID           string            `json:"videoId"`
	Status            VideoStatus       `json:"status"`
	Progress          *int              `json:"progress,omitempty"`
	SensitivityStatus SensitivityStatus `json:"sensitivityStatus,omitempty"`
	Message           string            `json:"message,omitempty"`
}

func NewProcessingEvent(videoID string, progress int, message string) Event {
	return Event{
		Event:    EventProcessing,
		VideoID:  videoID,
		Status:   StatusProcessing,
		Progress: &progress,
		Message:  message,
	}
}

func NewCompletedEvent(videoID string, sensitivity SensitivityStatus) Event {
	return Event{
		Event:             EventCompleted,
		VideoID:           videoID,
		Status:            StatusCompleted,
		SensitivityStatus: sensitivity,
	}
}

func NewFailedEvent(videoID string) Event {
	return Event{
		Event:   EventFailed,
		VideoID: videoID,
		Status:  StatusFailed,
	}
}

// UserChannel and OrgChannel name the realtime delivery scopes a connected
// client joins after authenticating.
func UserChannel(userID string) string { return "user:" + userID }
func OrgChannel(orgID string) string   { return "org:" + orgID }
