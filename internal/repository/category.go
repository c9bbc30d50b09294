package repository

import (
	"context"

	"github.com/agalitsyn/task-planner-bot/internal/model"
)

type CategoryRepository struct {
	storage model.CategoryStorage
}

func NewCategoryRepository(storage model.CategoryStorage) *CategoryRepository {
	return &CategoryRepository{storage: storage}
}

func (r *CategoryRepository) Insert(ctx context.Context, category *model.Category) (int64, error) {
	if !category.Valid() {
		return 0, &model.ValidationError{Entity: "category", Field: "name", Reason: "must not be empty"}
	}
	if err := r.storage.CreateCategory(ctx, category); err != nil {
		return 0, storeErr("insert category", err)
	}
	return category.ID, nil
}

// Update rejects predefined categories: they can be read but never mutated.
// The check runs against the stored row, not the caller's copy.
func (r *CategoryRepository) Update(ctx context.Context, category *model.Category) error {
	if !category.Valid() {
		return &model.ValidationError{Entity: "category", Field: "name", Reason: "must not be empty"}
	}
	if err := r.ensureMutable(ctx, category.ID); err != nil {
		return err
	}
	if err := r.storage.UpdateCategory(ctx, category); err != nil {
		return storeErr("update category", err)
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	if err := r.ensureMutable(ctx, id); err != nil {
		return err
	}
	if err := r.storage.DeleteCategory(ctx, id); err != nil {
		return storeErr("delete category", err)
	}
	return nil
}

func (r *CategoryRepository) ensureMutable(ctx context.Context, id int64) error {
	stored, err := r.storage.GetCategoryByID(ctx, id)
	if err != nil {
		return storeErr("get category", err)
	}
	if stored.Predefined {
		return &model.StateError{Err: model.ErrPredefinedImmutable}
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	category, err := r.storage.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, storeErr("get category", err)
	}
	return category, nil
}

func (r *CategoryRepository) Categories(ctx context.Context) ([]model.Category, error) {
	categories, err := r.storage.ListCategories(ctx)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return categories, nil
}

func (r *CategoryRepository) CustomCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := r.storage.ListCustomCategories(ctx)
	if err != nil {
		return nil, storeErr("list custom categories", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Watch(ctx context.Context, customOnly bool) (<-chan []model.Category, error) {
	ch, err := r.storage.WatchCategories(ctx, customOnly)
	if err != nil {
		return nil, storeErr("watch categories", err)
	}
	return ch, nil
}
