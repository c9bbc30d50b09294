package model

import (
	"context"
	"strings"
)

// Predefined category ids seeded at store creation.
const (
	CategoryWork     int64 = 1
	CategoryPersonal int64 = 2
	CategoryStudies  int64 = 3
)

type Category struct {
	ID    int64
	Name  string
	Color string
	Icon  string
	// Predefined categories are seeded once and immutable: the repository
	// rejects update and delete attempts against them.
	Predefined bool
}

func NewCategory(name, color, icon string) *Category {
	return &Category{
		Name:  name,
		Color: color,
		Icon:  icon,
	}
}

func (c Category) Valid() bool {
	return strings.TrimSpace(c.Name) != ""
}

type CategoryStorage interface {
	CreateCategory(ctx context.Context, category *Category) error
	UpdateCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, id int64) error

	GetCategoryByID(ctx context.Context, id int64) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListCustomCategories(ctx context.Context) ([]Category, error)

	WatchCategories(ctx context.Context, customOnly bool) (<-chan []Category, error)
}
