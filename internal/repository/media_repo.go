package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"familyvault/mediahub/internal/model"
)

var ErrUnknownSortField = errors.New("unknown sort field")

// MediaSortField is the closed set of columns a listing may be ordered by.
type MediaSortField string

const (
	SortByUploadedAt    MediaSortField = "uploaded_at"
	SortByTitle         MediaSortField = "title"
	SortByFilename      MediaSortField = "filename"
	SortBySize          MediaSortField = "size_bytes"
	SortByDownloadCount MediaSortField = "download_count"
	SortByViewCount     MediaSortField = "view_count"
)

var mediaSortColumns = map[MediaSortField]string{
	SortByUploadedAt:    "uploaded_at",
	SortByTitle:         "title",
	SortByFilename:      "filename",
	SortBySize:          "size_bytes",
	SortByDownloadCount: "download_count",
	SortByViewCount:     "view_count",
}

// SortColumn returns the column for f, or false when f is not allow-listed.
func SortColumn(f MediaSortField) (string, bool) {
	col, ok := mediaSortColumns[f]
	return col, ok
}

type MediaCounter string

const (
	CounterDownloads MediaCounter = "download_count"
	CounterViews     MediaCounter = "view_count"
)

type MediaQuery struct {
	CategoryID *uuid.UUID
	// VisibleTo limits results to uncategorized items and categories granted to this user.
	VisibleTo  *uuid.UUID
	Search     string
	SortBy     MediaSortField
	Descending bool
	Limit      int
	Offset     int
}

type MediaRepository interface {
	Create(ctx context.Context, item *model.MediaItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.MediaItem, error)
	List(ctx context.Context, q MediaQuery) ([]model.MediaItem, error)
	ExistsByFilenameOrPath(ctx context.Context, filename, path string) (bool, error)
	IncrementCounter(ctx context.Context, id uuid.UUID, counter MediaCounter) error
	Update(ctx context.Context, item *model.MediaItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}
