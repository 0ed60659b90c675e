package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MediaItem struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Filename        string     `gorm:"type:varchar(255);not null;index" json:"filename"`
	StoragePath     string     `gorm:"type:varchar(1024);uniqueIndex;not null" json:"-"`
	Title           string     `gorm:"type:varchar(255);not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	CategoryID      *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	SizeBytes       int64      `gorm:"not null;default:0" json:"size_bytes"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	ThumbnailPath   *string    `gorm:"type:varchar(1024)" json:"-"`
	ContentType     string     `gorm:"type:varchar(128)" json:"content_type"`
	UploadedAt      time.Time  `gorm:"not null;index" json:"uploaded_at"`
	UploadedBy      uuid.UUID  `gorm:"type:uuid;not null" json:"uploaded_by"`
	DownloadCount   int64      `gorm:"not null;default:0" json:"download_count"`
	ViewCount       int64      `gorm:"not null;default:0" json:"view_count"`
}

func (MediaItem) TableName() string { return "media" }

func (m *MediaItem) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.UploadedAt.IsZero() {
		m.UploadedAt = time.Now().UTC()
	}
	return nil
}

func NewMediaItem(filename, storagePath, title string, uploadedBy uuid.UUID) (*MediaItem, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, errors.New("media filename is required")
	}
	if strings.TrimSpace(storagePath) == "" {
		return nil, errors.New("media storage path is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("media title is required")
	}
	return &MediaItem{
		ID:          uuid.New(),
		Filename:    filename,
		StoragePath: storagePath,
		Title:       strings.TrimSpace(title),
		UploadedAt:  time.Now().UTC(),
		UploadedBy:  uploadedBy,
	}, nil
}
