package media

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Status is the processing state of an uploaded file. Transitions are driven
// exclusively by the ingestion Service; ready and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUploading, StatusProcessing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Kind is the declared media category of an asset.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
)

func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindVideo, KindAudio, KindDocument:
		return true
	}
	return false
}

// Asset represents an uploaded file and its processing outcome.
// It is shared infrastructure — owning entities reference assets through links,
// never by embedding file paths directly.
type Asset struct {
	ID              string         `gorm:"column:id;primaryKey" json:"id"`
	PropertyID      int64          `gorm:"column:property_id;index" json:"property_id"`
	OriginalName    string         `gorm:"column:original_name" json:"original_name"`
	Kind            Kind           `gorm:"column:kind" json:"kind"`
	MimeType        string         `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes       int64          `gorm:"column:size_bytes" json:"size_bytes"`
	StoragePath     string         `gorm:"column:storage_path" json:"-"`
	FileURL         string         `gorm:"column:file_url" json:"url"`
	ThumbnailPath   *string        `gorm:"column:thumbnail_path" json:"thumbnail_path,omitempty"`
	DurationSeconds *float64       `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	Metadata        datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	Tags            string         `gorm:"column:tags" json:"-"`
	Status          Status         `gorm:"column:status;index" json:"status"`
	ProcessingError *string        `gorm:"column:processing_error" json:"processing_error,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at" json:"updated_at"`
	ProcessedAt     *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (Asset) TableName() string { return "media_assets" }

// TagList splits the stored comma-joined tag set.
func (a *Asset) TagList() []string {
	if a.Tags == "" {
		return nil
	}
	return strings.Split(a.Tags, ",")
}

// SetTags normalizes and stores a tag set, dropping empties and duplicates.
// Commas are the storage separator and may not appear inside a tag.
func (a *Asset) SetTags(tags []string) {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ReplaceAll(t, ",", " ")
		t = strings.Join(strings.Fields(t), " ")
		t = strings.ToLower(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	a.Tags = strings.Join(out, ",")
}
