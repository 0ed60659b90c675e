package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/repository"
)

type CategoryService interface {
	Create(ctx context.Context, name, description string, parentID *uuid.UUID) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	// EnsureDefault seeds the "Uncategorized" category when none exists yet.
	EnsureDefault(ctx context.Context) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

func (s *categoryService) Create(ctx context.Context, name, description string, parentID *uuid.UUID) (*model.Category, error) {
	if parentID != nil {
		if _, err := s.GetByID(ctx, *parentID); err != nil {
			return nil, err
		}
	}
	cat, err := model.NewCategory(name, description, parentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCategory, err)
	}
	if err := s.categoryRepo.Create(ctx, cat); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return cat, nil
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	cats, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *categoryService) GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	cat, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return cat, nil
}

func (s *categoryService) EnsureDefault(ctx context.Context) error {
	n, err := s.categoryRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = s.Create(ctx, "Uncategorized", "Videos without a specific category", nil)
	if errors.Is(err, ErrCategoryExists) {
		return nil
	}
	return err
}

var _ CategoryService = (*categoryService)(nil)
