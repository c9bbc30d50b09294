package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/agalitsyn/task-planner-bot/internal/model"
)

// priorityRank orders HIGH before MEDIUM before LOW inside SQL.
const priorityRank = "CASE priority WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END"

var taskColumns = []string{
	"id", "title", "description", "due_date", "priority", "status",
	"category_id", "created_at", "completed_at", "has_reminder",
	"reminder_at", "is_recurring", "recurrence_days", "start_time", "end_time",
}

type taskRow struct {
	ID             int64         `db:"id"`
	Title          string        `db:"title"`
	Description    string        `db:"description"`
	DueDate        sql.NullInt64 `db:"due_date"`
	Priority       string        `db:"priority"`
	Status         string        `db:"status"`
	CategoryID     sql.NullInt64 `db:"category_id"`
	CreatedAt      int64         `db:"created_at"`
	CompletedAt    sql.NullInt64 `db:"completed_at"`
	HasReminder    bool          `db:"has_reminder"`
	ReminderAt     sql.NullInt64 `db:"reminder_at"`
	IsRecurring    bool          `db:"is_recurring"`
	RecurrenceDays string        `db:"recurrence_days"`
	StartTime      string        `db:"start_time"`
	EndTime        string        `db:"end_time"`
}

func (r taskRow) toModel() model.Task {
	task := model.Task{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		DueDate:        fromMillis(r.DueDate),
		Priority:       model.TaskPriority(r.Priority),
		Status:         model.TaskStatus(r.Status),
		CreatedAt:      time.UnixMilli(r.CreatedAt),
		CompletedAt:    fromMillis(r.CompletedAt),
		HasReminder:    r.HasReminder,
		ReminderAt:     fromMillis(r.ReminderAt),
		IsRecurring:    r.IsRecurring,
		RecurrenceDays: r.RecurrenceDays,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
	}
	if r.CategoryID.Valid {
		id := r.CategoryID.Int64
		task.CategoryID = &id
	}
	return task
}

type TaskStorage struct {
	db *DB
}

func NewTaskStorage(db *DB) *TaskStorage {
	return &TaskStorage{db: db}
}

func (s *TaskStorage) CreateTask(ctx context.Context, task *model.Task) error {
	if err := s.createTask(ctx, s.db.db, task); err != nil {
		return err
	}
	s.db.hub.broadcast(tableTasks)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *TaskStorage) createTask(ctx context.Context, db execer, task *model.Task) error {
	var categoryID sql.NullInt64
	if task.CategoryID != nil {
		categoryID = sql.NullInt64{Int64: *task.CategoryID, Valid: true}
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	// Replace-on-id-collision: inserting a task that already carries an id
	// overwrites the stored row (last write wins by primary key). A zero id
	// lets the store assign one.
	var id interface{}
	if task.ID != 0 {
		id = task.ID
	}

	const q = `
		INSERT OR REPLACE INTO tasks
			(id, title, description, due_date, priority, status, category_id,
			created_at, completed_at, has_reminder, reminder_at,
			is_recurring, recurrence_days, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := db.ExecContext(ctx, q,
		id,
		task.Title,
		task.Description,
		toMillis(task.DueDate),
		string(task.Priority),
		string(task.Status),
		categoryID,
		task.CreatedAt.UnixMilli(),
		toMillis(task.CompletedAt),
		task.HasReminder,
		toMillis(task.ReminderAt),
		task.IsRecurring,
		task.RecurrenceDays,
		task.StartTime,
		task.EndTime,
	)
	if err != nil {
		return fmt.Errorf("could not create task: %w", err)
	}

	if task.ID == 0 {
		lastID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("could not get last insert id: %w", err)
		}
		task.ID = lastID
	}
	return nil
}

// CreateTasks inserts every task inside a single transaction; no row is
// persisted if any insert fails.
func (s *TaskStorage) CreateTasks(ctx context.Context, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	err := s.db.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, task := range tasks {
			if err := s.createTask(ctx, tx, task); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.db.hub.broadcast(tableTasks)
	return nil
}

func (s *TaskStorage) UpdateTask(ctx context.Context, task *model.Task) error {
	var categoryID sql.NullInt64
	if task.CategoryID != nil {
		categoryID = sql.NullInt64{Int64: *task.CategoryID, Valid: true}
	}

	const q = `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, priority = ?, status = ?,
			category_id = ?, completed_at = ?, has_reminder = ?, reminder_at = ?,
			is_recurring = ?, recurrence_days = ?, start_time = ?, end_time = ?
		WHERE id = ?
	`
	result, err := s.db.db.ExecContext(ctx, q,
		task.Title,
		task.Description,
		toMillis(task.DueDate),
		string(task.Priority),
		string(task.Status),
		categoryID,
		toMillis(task.CompletedAt),
		task.HasReminder,
		toMillis(task.ReminderAt),
		task.IsRecurring,
		task.RecurrenceDays,
		task.StartTime,
		task.EndTime,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}
	return s.notifyTaskChanged(result)
}

func (s *TaskStorage) UpdateTaskStatus(ctx context.Context, id int64, status model.TaskStatus) error {
	const q = `UPDATE tasks SET status = ? WHERE id = ?`
	result, err := s.db.db.ExecContext(ctx, q, string(status), id)
	if err != nil {
		return fmt.Errorf("could not update task status: %w", err)
	}
	return s.notifyTaskChanged(result)
}

func (s *TaskStorage) UpdateTaskReminder(ctx context.Context, id int64, hasReminder bool, reminderAt *time.Time) error {
	const q = `UPDATE tasks SET has_reminder = ?, reminder_at = ? WHERE id = ?`
	result, err := s.db.db.ExecContext(ctx, q, hasReminder, toMillis(reminderAt), id)
	if err != nil {
		return fmt.Errorf("could not update task reminder: %w", err)
	}
	return s.notifyTaskChanged(result)
}

func (s *TaskStorage) notifyTaskChanged(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return model.ErrTaskNotFound
	}
	s.db.hub.broadcast(tableTasks)
	return nil
}

// DeleteTask removes the task and its tag associations.
func (s *TaskStorage) DeleteTask(ctx context.Context, id int64) error {
	err := s.db.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = ?`, id); err != nil {
			return fmt.Errorf("could not remove task tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("could not remove task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.db.hub.broadcast(tableTasks, tableTaskTags)
	return nil
}

func (s *TaskStorage) DeleteCompletedTasks(ctx context.Context) (int64, error) {
	return s.deleteTasksWhere(ctx, `status = ?`, string(model.TaskStatusCompleted))
}

func (s *TaskStorage) DeleteAllTasks(ctx context.Context) (int64, error) {
	return s.deleteTasksWhere(ctx, `1 = 1`)
}

func (s *TaskStorage) deleteTasksWhere(ctx context.Context, cond string, args ...interface{}) (int64, error) {
	var removed int64
	err := s.db.inTx(ctx, func(tx *sqlx.Tx) error {
		q := `DELETE FROM task_tags WHERE task_id IN (SELECT id FROM tasks WHERE ` + cond + `)`
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("could not remove task tags: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE `+cond, args...)
		if err != nil {
			return fmt.Errorf("could not remove tasks: %w", err)
		}
		removed, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.db.hub.broadcast(tableTasks, tableTaskTags)
	}
	return removed, nil
}

func (s *TaskStorage) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	q, args, err := sq.Select(taskColumns...).From("tasks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	var row taskRow
	if err := s.db.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrTaskNotFound
		}
		return nil, fmt.Errorf("could not get task: %w", err)
	}
	task := row.toModel()
	return &task, nil
}

func (s *TaskStorage) FilterTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	b := sq.Select(taskColumns...).From("tasks")

	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Priority != "" {
		b = b.Where(sq.Eq{"priority": string(filter.Priority)})
	}
	if filter.CategoryID != 0 {
		b = b.Where(sq.Eq{"category_id": filter.CategoryID})
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		b = b.Where(sq.Or{sq.Like{"title": like}, sq.Like{"description": like}})
	}
	if filter.DueOn != nil {
		start := startOfDay(*filter.DueOn)
		end := start.AddDate(0, 0, 1)
		b = b.Where(sq.GtOrEq{"due_date": start.UnixMilli()}).Where(sq.Lt{"due_date": end.UnixMilli()})
	}
	if filter.CompletedFrom != nil {
		b = b.Where(sq.GtOrEq{"completed_at": filter.CompletedFrom.UnixMilli()})
	}
	if filter.CompletedTo != nil {
		b = b.Where(sq.LtOrEq{"completed_at": filter.CompletedTo.UnixMilli()})
	}
	if filter.HasReminder != nil {
		if *filter.HasReminder {
			b = b.Where(sq.Eq{"has_reminder": true}).Where("reminder_at IS NOT NULL")
		} else {
			b = b.Where(sq.Eq{"has_reminder": false})
		}
	}

	switch filter.Sort {
	case model.TaskSortPending:
		b = b.OrderBy("due_date IS NULL", "due_date ASC", priorityRank+" DESC")
	case model.TaskSortCompleted:
		b = b.OrderBy("completed_at DESC")
	default:
		b = b.OrderBy("created_at DESC")
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	var rows []taskRow
	if err := s.db.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("could not filter tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toModel())
	}
	return tasks, nil
}

func (s *TaskStorage) CountTasks(ctx context.Context) (int64, int64, error) {
	const q = `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM tasks
	`
	var total, completed int64
	err := s.db.db.QueryRowContext(ctx, q, string(model.TaskStatusCompleted)).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("could not count tasks: %w", err)
	}
	return total, completed, nil
}

func (s *TaskStorage) WatchTasks(ctx context.Context, filter model.TaskFilter) (<-chan []model.Task, error) {
	return watch(ctx, s.db, func(ctx context.Context) ([]model.Task, error) {
		return s.FilterTasks(ctx, filter)
	}, tableTasks, tableTaskTags)
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
