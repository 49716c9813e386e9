package services

import (
	"context"
	"fmt"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// CategoryService validates and persists categories. All operations are
// scoped to the owning user; rows of other users are indistinguishable from
// absent ones.
type CategoryService struct {
	storage *storage.Repository
}

func NewCategoryService(storage *storage.Repository) *CategoryService {
	return &CategoryService{storage: storage}
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if res := core.ValidateCategory(c); !res.Valid {
		return core.Category{}, res.Err()
	}

	created, err := s.storage.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.storage.ListCategories(ctx, userID)
}

func (s *CategoryService) GetByID(ctx context.Context, userID, id int64) (core.Category, error) {
	return s.storage.GetCategory(ctx, userID, id)
}

func (s *CategoryService) Update(ctx context.Context, userID, id int64, upd storage.CategoryUpdate) (core.Category, error) {
	if upd.Name != nil || upd.Type != nil {
		// Validate the merged shape before touching the row.
		existing, err := s.storage.GetCategory(ctx, userID, id)
		if err != nil {
			return core.Category{}, err
		}
		if upd.Name != nil {
			existing.Name = *upd.Name
		}
		if upd.Type != nil {
			existing.Type = *upd.Type
		}
		if res := core.ValidateCategory(existing); !res.Valid {
			return core.Category{}, res.Err()
		}
	}

	return s.storage.UpdateCategory(ctx, userID, id, upd)
}

func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	return s.storage.DeleteCategory(ctx, userID, id)
}
