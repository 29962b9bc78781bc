package models

import "time"

type VideoStatus string

const (
	VideoStatusUploading  VideoStatus = "uploading"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

// Terminal reports whether no further lifecycle transition is permitted.
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

type SensitivityStatus string

const (
	SensitivityPending SensitivityStatus = "pending"
	SensitivitySafe    SensitivityStatus = "safe"
	SensitivityFlagged SensitivityStatus = "flagged"
)

type Video struct {
	ID                string            `json:"id"`
	Filename          string            `json:"filename"`
	OriginalName      string            `json:"originalName"`
	FilePath          string            `json:"-"`
	FileSize          int64             `json:"fileSize"`
	MimeType          string            `json:"mimeType"`
	Duration          float64           `json:"duration"`
	OwnerID           string            `json:"owner"`
	Organization      string            `json:"organization"`
	Status            VideoStatus       `json:"status"`
	Progress          int               `json:"processingProgress"`
	SensitivityStatus SensitivityStatus `json:"sensitivityStatus"`
	SensitivityScore  int               `json:"sensitivityScore"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Tags              []string          `json:"tags"`
	Category          string            `json:"category"`
	AllowedRoles      []string          `json:"-"`
	AllowedUsers      []string          `json:"-"`
	UploadedAt        time.Time         `json:"uploadedAt"`
	ProcessedAt       *time.Time        `json:"processedAt,omitempty"`
}
