package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/agalitsyn/task-planner-bot/internal/model"
)

type categoryRow struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	Color      string `db:"color"`
	Icon       string `db:"icon"`
	Predefined bool   `db:"predefined"`
}

func (r categoryRow) toModel() model.Category {
	return model.Category{
		ID:         r.ID,
		Name:       r.Name,
		Color:      r.Color,
		Icon:       r.Icon,
		Predefined: r.Predefined,
	}
}

type CategoryStorage struct {
	db *DB
}

func NewCategoryStorage(db *DB) *CategoryStorage {
	return &CategoryStorage{db: db}
}

func (s *CategoryStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	const q = `INSERT INTO categories (name, color, icon, predefined) VALUES (?, ?, ?, ?)`
	result, err := s.db.db.ExecContext(ctx, q, category.Name, category.Color, category.Icon, category.Predefined)
	if err != nil {
		return fmt.Errorf("could not create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("could not get last insert id: %w", err)
	}
	category.ID = id

	s.db.hub.broadcast(tableCategories)
	return nil
}

func (s *CategoryStorage) UpdateCategory(ctx context.Context, category *model.Category) error {
	const q = `UPDATE categories SET name = ?, color = ?, icon = ? WHERE id = ?`
	result, err := s.db.db.ExecContext(ctx, q, category.Name, category.Color, category.Icon, category.ID)
	if err != nil {
		return fmt.Errorf("could not update category: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return model.ErrCategoryNotFound
	}

	s.db.hub.broadcast(tableCategories)
	return nil
}

// DeleteCategory removes the category and detaches its tasks.
func (s *CategoryStorage) DeleteCategory(ctx context.Context, id int64) error {
	err := s.db.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET category_id = NULL WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("could not detach tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("could not remove category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.db.hub.broadcast(tableCategories, tableTasks)
	return nil
}

func (s *CategoryStorage) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	const q = `SELECT id, name, color, icon, predefined FROM categories WHERE id = ?`
	var row categoryRow
	if err := s.db.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("could not get category: %w", err)
	}
	category := row.toModel()
	return &category, nil
}

func (s *CategoryStorage) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.listCategories(ctx, false)
}

func (s *CategoryStorage) ListCustomCategories(ctx context.Context) ([]model.Category, error) {
	return s.listCategories(ctx, true)
}

func (s *CategoryStorage) listCategories(ctx context.Context, customOnly bool) ([]model.Category, error) {
	q := `SELECT id, name, color, icon, predefined FROM categories`
	if customOnly {
		q += ` WHERE predefined = 0`
	}
	q += ` ORDER BY name ASC`

	var rows []categoryRow
	if err := s.db.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("could not list categories: %w", err)
	}

	categories := make([]model.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, row.toModel())
	}
	return categories, nil
}

func (s *CategoryStorage) WatchCategories(ctx context.Context, customOnly bool) (<-chan []model.Category, error) {
	return watch(ctx, s.db, func(ctx context.Context) ([]model.Category, error) {
		return s.listCategories(ctx, customOnly)
	}, tableCategories)
}
