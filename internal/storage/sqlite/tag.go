package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/agalitsyn/task-planner-bot/internal/model"
)

type tagRow struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Color string `db:"color"`
}

func (r tagRow) toModel() model.Tag {
	return model.Tag{ID: r.ID, Name: r.Name, Color: r.Color}
}

type TagStorage struct {
	db *DB
}

func NewTagStorage(db *DB) *TagStorage {
	return &TagStorage{db: db}
}

func (s *TagStorage) CreateTag(ctx context.Context, tag *model.Tag) error {
	const q = `INSERT INTO tags (name, color) VALUES (?, ?)`
	result, err := s.db.db.ExecContext(ctx, q, tag.Name, tag.Color)
	if err != nil {
		return fmt.Errorf("could not create tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("could not get last insert id: %w", err)
	}
	tag.ID = id

	s.db.hub.broadcast(tableTags)
	return nil
}

func (s *TagStorage) UpdateTag(ctx context.Context, tag *model.Tag) error {
	const q = `UPDATE tags SET name = ?, color = ? WHERE id = ?`
	result, err := s.db.db.ExecContext(ctx, q, tag.Name, tag.Color, tag.ID)
	if err != nil {
		return fmt.Errorf("could not update tag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return model.ErrTagNotFound
	}

	s.db.hub.broadcast(tableTags)
	return nil
}

// DeleteTag removes the tag and its task associations.
func (s *TagStorage) DeleteTag(ctx context.Context, id int64) error {
	err := s.db.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_tags WHERE tag_id = ?`, id); err != nil {
			return fmt.Errorf("could not remove tag associations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
			return fmt.Errorf("could not remove tag: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.db.hub.broadcast(tableTags, tableTaskTags)
	return nil
}

func (s *TagStorage) GetTagByID(ctx context.Context, id int64) (*model.Tag, error) {
	const q = `SELECT id, name, color FROM tags WHERE id = ?`
	var row tagRow
	if err := s.db.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrTagNotFound
		}
		return nil, fmt.Errorf("could not get tag: %w", err)
	}
	tag := row.toModel()
	return &tag, nil
}

func (s *TagStorage) ListTags(ctx context.Context) ([]model.Tag, error) {
	const q = `SELECT id, name, color FROM tags ORDER BY name ASC`
	var rows []tagRow
	if err := s.db.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("could not list tags: %w", err)
	}

	tags := make([]model.Tag, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, row.toModel())
	}
	return tags, nil
}

// ReplaceTaskTags swaps the task's tag set for the given one. The clear and
// the inserts run inside one transaction, so a failure leaves the previous
// associations in place.
func (s *TagStorage) ReplaceTaskTags(ctx context.Context, taskID int64, tagIDs []int64) error {
	err := s.db.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = ?`, taskID); err != nil {
			return fmt.Errorf("could not clear task tags: %w", err)
		}
		for _, tagID := range tagIDs {
			const q = `INSERT OR REPLACE INTO task_tags (task_id, tag_id) VALUES (?, ?)`
			if _, err := tx.ExecContext(ctx, q, taskID, tagID); err != nil {
				return fmt.Errorf("could not tag task: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.db.hub.broadcast(tableTaskTags)
	return nil
}

func (s *TagStorage) ListTagsForTask(ctx context.Context, taskID int64) ([]model.Tag, error) {
	const q = `
		SELECT t.id, t.name, t.color
		FROM tags t
		JOIN task_tags tt ON tt.tag_id = t.id
		WHERE tt.task_id = ?
		ORDER BY t.name ASC
	`
	var rows []tagRow
	if err := s.db.db.SelectContext(ctx, &rows, q, taskID); err != nil {
		return nil, fmt.Errorf("could not list task tags: %w", err)
	}

	tags := make([]model.Tag, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, row.toModel())
	}
	return tags, nil
}

func (s *TagStorage) ListTasksForTag(ctx context.Context, tagID int64) ([]model.Task, error) {
	q := `
		SELECT tk.id, tk.title, tk.description, tk.due_date, tk.priority,
			tk.status, tk.category_id, tk.created_at, tk.completed_at,
			tk.has_reminder, tk.reminder_at, tk.is_recurring,
			tk.recurrence_days, tk.start_time, tk.end_time
		FROM tasks tk
		JOIN task_tags tt ON tt.task_id = tk.id
		WHERE tt.tag_id = ?
		ORDER BY tk.created_at DESC
	`
	var rows []taskRow
	if err := s.db.db.SelectContext(ctx, &rows, q, tagID); err != nil {
		return nil, fmt.Errorf("could not list tag tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toModel())
	}
	return tasks, nil
}

func (s *TagStorage) CountTasksForTag(ctx context.Context, tagID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM task_tags WHERE tag_id = ?`
	var count int64
	if err := s.db.db.QueryRowContext(ctx, q, tagID).Scan(&count); err != nil {
		return 0, fmt.Errorf("could not count tag tasks: %w", err)
	}
	return count, nil
}

func (s *TagStorage) WatchTags(ctx context.Context) (<-chan []model.Tag, error) {
	return watch(ctx, s.db, s.ListTags, tableTags)
}

func (s *TagStorage) WatchTagsForTask(ctx context.Context, taskID int64) (<-chan []model.Tag, error) {
	return watch(ctx, s.db, func(ctx context.Context) ([]model.Tag, error) {
		return s.ListTagsForTask(ctx, taskID)
	}, tableTags, tableTaskTags)
}
