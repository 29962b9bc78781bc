package progress

import "vidscreen/internal/models"

// Wire names of the lifecycle events emitted on a user's topic.
const (
	EventUploaded  = "video:uploaded"
	EventProgress  = "video:progress"
	EventCompleted = "video:completed"
	EventFailed    = "video:failed"
)

type UploadedPayload struct {
	VideoID  string `json:"videoId"`
	Filename string `json:"filename"`
}

type ProgressPayload struct {
	VideoID  string `json:"videoId"`
	Progress int    `json:"progress"`
}

type CompletedPayload struct {
	VideoID           string                   `json:"videoId"`
	SensitivityStatus models.SensitivityStatus `json:"sensitivityStatus"`
	SensitivityScore  int                      `json:"sensitivityScore"`
}

type FailedPayload struct {
	VideoID string `json:"videoId"`
	Error   string `json:"error"`
}
