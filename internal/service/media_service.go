package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"familyvault/mediahub/internal/config"
	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/repository"
	"familyvault/mediahub/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// MediaFilter selects and orders a catalog listing. OrderBy and Order arrive
// untrusted from query strings and are validated against fixed sets.
type MediaFilter struct {
	CategoryID *uuid.UUID
	VisibleTo  *uuid.UUID
	Search     string
	OrderBy    string
	Order      string
	Limit      int
	Offset     int
}

type UploadInput struct {
	Filename    string
	Body        io.Reader
	Title       string
	Description string
	CategoryID  *uuid.UUID
	UploadedBy  uuid.UUID
}

type ImportInput struct {
	Path        string
	Title       string
	Description string
	CategoryID  *uuid.UUID
	UploadedBy  uuid.UUID
}

type ImportIssue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type ImportSummary struct {
	Imported []model.MediaItem `json:"imported"`
	Skipped  []ImportIssue     `json:"skipped"`
	Failed   []ImportIssue     `json:"failed"`
}

// ScannedFile is a video on disk and whether the catalog already knows it.
type ScannedFile struct {
	storage.ServerFile
	Imported bool `json:"imported"`
}

// MediaUpdate carries the fields to change; nil leaves a field untouched.
type MediaUpdate struct {
	Title         *string
	Description   *string
	CategoryID    *uuid.UUID
	ClearCategory bool
}

type MediaService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.MediaItem, error)
	List(ctx context.Context, filter MediaFilter) ([]model.MediaItem, error)
	RecordDownload(ctx context.Context, id uuid.UUID) error
	RecordView(ctx context.Context, id uuid.UUID) error
	Upload(ctx context.Context, in UploadInput) (*model.MediaItem, error)
	Import(ctx context.Context, in ImportInput) (*model.MediaItem, error)
	ImportMany(ctx context.Context, paths []string, uploadedBy uuid.UUID) (*ImportSummary, error)
	ScanServer(ctx context.Context, search string) ([]ScannedFile, error)
	Update(ctx context.Context, id uuid.UUID, upd MediaUpdate) (*model.MediaItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type mediaService struct {
	mediaRepo    repository.MediaRepository
	categoryRepo repository.CategoryRepository
	thumbnailer  storage.Thumbnailer
	prober       storage.DurationProber
	cfg          config.MediaConfig
	logger       *zap.Logger
}

// NewMediaService wires the catalog. thumbnailer and prober may be nil, in which case
// every item gets the placeholder thumbnail and no duration.
func NewMediaService(
	mediaRepo repository.MediaRepository,
	categoryRepo repository.CategoryRepository,
	thumbnailer storage.Thumbnailer,
	prober storage.DurationProber,
	cfg config.MediaConfig,
	logger *zap.Logger,
) MediaService {
	if cfg.ImportConcurrency <= 0 {
		cfg.ImportConcurrency = 1
	}
	return &mediaService{
		mediaRepo:    mediaRepo,
		categoryRepo: categoryRepo,
		thumbnailer:  thumbnailer,
		prober:       prober,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *mediaService) GetByID(ctx context.Context, id uuid.UUID) (*model.MediaItem, error) {
	item, err := s.mediaRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("get media: %w", err)
	}
	return item, nil
}

func (s *mediaService) List(ctx context.Context, filter MediaFilter) ([]model.MediaItem, error) {
	q := repository.MediaQuery{
		CategoryID: filter.CategoryID,
		VisibleTo:  filter.VisibleTo,
		Search:     filter.Search,
		SortBy:     repository.SortByUploadedAt,
		Descending: true,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.OrderBy != "" {
		field := repository.MediaSortField(strings.ToLower(filter.OrderBy))
		if _, ok := repository.SortColumn(field); !ok {
			return nil, ErrInvalidOrder
		}
		q.SortBy = field
	}
	switch strings.ToLower(filter.Order) {
	case "", "desc":
	case "asc":
		q.Descending = false
	default:
		return nil, ErrInvalidOrder
	}
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	items, err := s.mediaRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return items, nil
}

func (s *mediaService) RecordDownload(ctx context.Context, id uuid.UUID) error {
	return s.increment(ctx, id, repository.CounterDownloads)
}

func (s *mediaService) RecordView(ctx context.Context, id uuid.UUID) error {
	return s.increment(ctx, id, repository.CounterViews)
}

func (s *mediaService) increment(ctx context.Context, id uuid.UUID, counter repository.MediaCounter) error {
	if err := s.mediaRepo.IncrementCounter(ctx, id, counter); err != nil {
		return fmt.Errorf("increment %s: %w", counter, err)
	}
	return nil
}

func (s *mediaService) Upload(ctx context.Context, in UploadInput) (*model.MediaItem, error) {
	if !storage.IsVideoExtension(in.Filename) {
		return nil, ErrInvalidFileType
	}
	filename, err := storage.SanitizeFilename(in.Filename)
	if err != nil {
		return nil, ErrInvalidFileType
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	mime, body, err := storage.SniffReader(in.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !storage.IsAllowedVideo(mime) {
		return nil, ErrInvalidFileType
	}

	if err := os.MkdirAll(s.cfg.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create media dir: %v", ErrStorage, err)
	}
	f, path, err := storage.CreateUnique(s.cfg.RootDir, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: create file: %v", ErrStorage, err)
	}

	size, err := s.copyUpload(f, body)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: close file: %v", ErrStorage, closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	if abs, absErr := filepath.Abs(path); absErr == nil {
		path = abs
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = storage.TitleFromFilename(filepath.Base(path))
	}
	item, err := model.NewMediaItem(filepath.Base(path), path, title, in.UploadedBy)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrInvalidTitle, err)
	}
	item.Description = strings.TrimSpace(in.Description)
	item.CategoryID = in.CategoryID
	item.SizeBytes = size
	item.ContentType = mime.String()
	s.attachArtifacts(ctx, item)

	if err := s.mediaRepo.Create(ctx, item); err != nil {
		s.removeFiles(item)
		return nil, fmt.Errorf("%w: save media: %v", ErrStorage, err)
	}
	s.logger.Info("media uploaded",
		zap.String("media_id", item.ID.String()),
		zap.String("filename", item.Filename),
		zap.Int64("size", item.SizeBytes),
	)
	return item, nil
}

func (s *mediaService) copyUpload(dst io.Writer, src io.Reader) (int64, error) {
	if s.cfg.MaxUploadBytes > 0 {
		src = io.LimitReader(src, s.cfg.MaxUploadBytes+1)
	}
	n, err := io.Copy(dst, src)
	if err != nil {
		return 0, fmt.Errorf("%w: write file: %v", ErrStorage, err)
	}
	if s.cfg.MaxUploadBytes > 0 && n > s.cfg.MaxUploadBytes {
		return 0, ErrFileTooLarge
	}
	return n, nil
}

func (s *mediaService) Import(ctx context.Context, in ImportInput) (*model.MediaItem, error) {
	path := in.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.RootDir, path)
	}
	path, err := storage.WithinRoot(s.cfg.RootDir, path)
	if err != nil {
		return nil, ErrFileNotFound
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, ErrFileNotFound
	}
	if !storage.IsVideoExtension(path) {
		return nil, ErrInvalidFileType
	}
	mime, err := storage.SniffFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read file: %v", ErrStorage, err)
	}
	if !storage.IsAllowedVideo(mime) {
		return nil, ErrInvalidFileType
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	filename := filepath.Base(path)
	exists, err := s.mediaRepo.ExistsByFilenameOrPath(ctx, filename, path)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return nil, ErrAlreadyImported
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = storage.TitleFromFilename(filename)
	}
	item, err := model.NewMediaItem(filename, path, title, in.UploadedBy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTitle, err)
	}
	item.Description = strings.TrimSpace(in.Description)
	item.CategoryID = in.CategoryID
	item.SizeBytes = info.Size()
	item.ContentType = mime.String()
	s.attachArtifacts(ctx, item)

	if err := s.mediaRepo.Create(ctx, item); err != nil {
		s.removeThumbnail(item)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyImported
		}
		return nil, fmt.Errorf("%w: save media: %v", ErrStorage, err)
	}
	s.logger.Info("media imported", zap.String("media_id", item.ID.String()), zap.String("path", path))
	return item, nil
}

// ImportMany imports paths with bounded parallelism. Per-file failures are reported in
// the summary; only cancellation of ctx aborts the batch.
func (s *mediaService) ImportMany(ctx context.Context, paths []string, uploadedBy uuid.UUID) (*ImportSummary, error) {
	summary := &ImportSummary{
		Imported: []model.MediaItem{},
		Skipped:  []ImportIssue{},
		Failed:   []ImportIssue{},
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ImportConcurrency)
	for _, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item, err := s.Import(gctx, ImportInput{Path: p, UploadedBy: uploadedBy})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Imported = append(summary.Imported, *item)
			case errors.Is(err, ErrAlreadyImported):
				summary.Skipped = append(summary.Skipped, ImportIssue{Path: p, Reason: err.Error()})
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				s.logger.Warn("import failed", zap.String("path", p), zap.Error(err))
				summary.Failed = append(summary.Failed, ImportIssue{Path: p, Reason: err.Error()})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(summary.Imported, func(i, j int) bool { return summary.Imported[i].StoragePath < summary.Imported[j].StoragePath })
	sort.Slice(summary.Skipped, func(i, j int) bool { return summary.Skipped[i].Path < summary.Skipped[j].Path })
	sort.Slice(summary.Failed, func(i, j int) bool { return summary.Failed[i].Path < summary.Failed[j].Path })
	return summary, nil
}

func (s *mediaService) ScanServer(ctx context.Context, search string) ([]ScannedFile, error) {
	if _, err := os.Stat(s.cfg.RootDir); errors.Is(err, os.ErrNotExist) {
		return []ScannedFile{}, nil
	}
	files, err := storage.ScanVideos(ctx, s.cfg.RootDir, s.cfg.ThumbnailDir, search)
	if err != nil {
		return nil, fmt.Errorf("%w: scan media root: %v", ErrStorage, err)
	}
	out := make([]ScannedFile, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			abs = f.Path
		}
		imported, err := s.mediaRepo.ExistsByFilenameOrPath(ctx, f.Filename, abs)
		if err != nil {
			return nil, fmt.Errorf("check imported: %w", err)
		}
		out = append(out, ScannedFile{ServerFile: f, Imported: imported})
	}
	return out, nil
}

func (s *mediaService) Update(ctx context.Context, id uuid.UUID, upd MediaUpdate) (*model.MediaItem, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, ErrInvalidTitle
		}
		item.Title = title
		changed = true
	}
	if upd.Description != nil {
		item.Description = strings.TrimSpace(*upd.Description)
		changed = true
	}
	switch {
	case upd.ClearCategory:
		item.CategoryID = nil
		changed = true
	case upd.CategoryID != nil:
		if err := s.checkCategory(ctx, upd.CategoryID); err != nil {
			return nil, err
		}
		item.CategoryID = upd.CategoryID
		changed = true
	}
	if !changed {
		return nil, ErrNothingToUpdate
	}

	if err := s.mediaRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update media: %w", err)
	}
	return item, nil
}

// Delete removes the row first, then the file and thumbnail. A stream already
// reading the file may fail part way through.
func (s *mediaService) Delete(ctx context.Context, id uuid.UUID) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.mediaRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMediaNotFound
		}
		return fmt.Errorf("delete media: %w", err)
	}
	s.removeFiles(item)
	s.logger.Info("media deleted", zap.String("media_id", item.ID.String()), zap.String("filename", item.Filename))
	return nil
}

func (s *mediaService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.categoryRepo.GetByID(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCategory
		}
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

// attachArtifacts fills in thumbnail and duration. Neither failure is fatal.
func (s *mediaService) attachArtifacts(ctx context.Context, item *model.MediaItem) {
	if err := os.MkdirAll(s.cfg.ThumbnailDir, 0o755); err != nil {
		s.logger.Warn("create thumbnail dir", zap.Error(err))
	} else {
		thumb := filepath.Join(s.cfg.ThumbnailDir, item.ID.String()+".jpg")
		var err error = storage.ErrToolUnavailable
		if s.thumbnailer != nil {
			err = s.thumbnailer.GenerateThumbnail(ctx, item.StoragePath, thumb)
		}
		if err != nil {
			s.logger.Debug("thumbnail generation failed, using placeholder",
				zap.String("media_id", item.ID.String()), zap.Error(err))
			err = storage.WritePlaceholderThumbnail(thumb)
		}
		if err != nil {
			s.logger.Warn("write placeholder thumbnail", zap.String("media_id", item.ID.String()), zap.Error(err))
		} else {
			item.ThumbnailPath = &thumb
		}
	}

	if s.prober == nil {
		return
	}
	d, err := s.prober.ProbeDuration(ctx, item.StoragePath)
	if err != nil {
		s.logger.Debug("duration probe failed", zap.String("media_id", item.ID.String()), zap.Error(err))
		return
	}
	secs := int64(d.Seconds())
	item.DurationSeconds = &secs
}

func (s *mediaService) removeThumbnail(item *model.MediaItem) {
	if item.ThumbnailPath == nil {
		return
	}
	if err := os.Remove(*item.ThumbnailPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove thumbnail", zap.String("path", *item.ThumbnailPath), zap.Error(err))
	}
}

func (s *mediaService) removeFiles(item *model.MediaItem) {
	if err := os.Remove(item.StoragePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove media file", zap.String("path", item.StoragePath), zap.Error(err))
	}
	s.removeThumbnail(item)
}

var _ MediaService = (*mediaService)(nil)
