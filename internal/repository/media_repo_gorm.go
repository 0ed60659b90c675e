package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"familyvault/mediahub/internal/model"
)

type gormMediaRepository struct {
	db *gorm.DB
}

func NewGormMediaRepository(db *gorm.DB) MediaRepository {
	return &gormMediaRepository{db: db}
}

func (r *gormMediaRepository) Create(ctx context.Context, item *model.MediaItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *gormMediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MediaItem, error) {
	var item model.MediaItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// escapeLike neutralises LIKE wildcards so user input only ever matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *gormMediaRepository) List(ctx context.Context, q MediaQuery) ([]model.MediaItem, error) {
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = SortByUploadedAt
	}
	col, ok := SortColumn(sortBy)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortField, sortBy)
	}

	tx := r.db.WithContext(ctx).Model(&model.MediaItem{})
	if q.CategoryID != nil {
		tx = tx.Where("category_id = ?", *q.CategoryID)
	}
	if q.VisibleTo != nil {
		granted := r.db.Model(&model.PermissionGrant{}).Select("category_id").Where("user_id = ?", *q.VisibleTo)
		tx = tx.Where("(category_id IS NULL OR category_id IN (?))", granted)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		tx = tx.Where(
			`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(filename) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: q.Descending})
	// Stable tie-break so paging never repeats or skips rows.
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}

	var items []model.MediaItem
	if err := tx.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *gormMediaRepository) ExistsByFilenameOrPath(ctx context.Context, filename, path string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.MediaItem{}).
		Where("filename = ? OR storage_path = ?", filename, path).
		Count(&n).Error
	return n > 0, err
}

func (r *gormMediaRepository) IncrementCounter(ctx context.Context, id uuid.UUID, counter MediaCounter) error {
	switch counter {
	case CounterDownloads, CounterViews:
	default:
		return fmt.Errorf("unknown media counter %q", counter)
	}
	col := string(counter)
	return r.db.WithContext(ctx).
		Model(&model.MediaItem{}).
		Where("id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + 1")).
		Error
}

func (r *gormMediaRepository) Update(ctx context.Context, item *model.MediaItem) error {
	return r.db.WithContext(ctx).
		Model(item).
		Select("title", "description", "category_id").
		Updates(item).Error
}

func (r *gormMediaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.MediaItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
