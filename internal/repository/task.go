package repository

import (
	"context"
	"time"

	"github.com/agalitsyn/task-planner-bot/internal/model"
)

type TaskRepository struct {
	storage model.TaskStorage

	// now is swappable in tests.
	now func() time.Time
}

func NewTaskRepository(storage model.TaskStorage) *TaskRepository {
	return &TaskRepository{storage: storage, now: time.Now}
}

// Insert persists a validated task and returns its generated id.
func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) (int64, error) {
	if !task.Valid() {
		return 0, &model.ValidationError{Entity: "task", Field: "title", Reason: "must not be empty"}
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = r.now()
	}
	if err := r.storage.CreateTask(ctx, task); err != nil {
		return 0, storeErr("insert task", err)
	}
	return task.ID, nil
}

// InsertBatch persists all tasks or none: validation runs over the whole
// batch before the store is touched, and the inserts share one transaction.
func (r *TaskRepository) InsertBatch(ctx context.Context, tasks []*model.Task) error {
	for _, task := range tasks {
		if !task.Valid() {
			return &model.ValidationError{Entity: "task", Field: "title", Reason: "must not be empty"}
		}
	}
	now := r.now()
	for _, task := range tasks {
		if task.CreatedAt.IsZero() {
			task.CreatedAt = now
		}
	}
	if err := r.storage.CreateTasks(ctx, tasks); err != nil {
		return storeErr("insert tasks", err)
	}
	return nil
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	if !task.Valid() {
		return &model.ValidationError{Entity: "task", Field: "title", Reason: "must not be empty"}
	}
	if err := r.storage.UpdateTask(ctx, task); err != nil {
		return storeErr("update task", err)
	}
	return nil
}

// UpdateStatus writes the status field only, without validation.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id int64, status model.TaskStatus) error {
	if err := r.storage.UpdateTaskStatus(ctx, id, status); err != nil {
		return storeErr("update task status", err)
	}
	return nil
}

// UpdateReminder writes the reminder fields only, without validation.
func (r *TaskRepository) UpdateReminder(ctx context.Context, id int64, hasReminder bool, reminderAt *time.Time) error {
	if err := r.storage.UpdateTaskReminder(ctx, id, hasReminder, reminderAt); err != nil {
		return storeErr("update task reminder", err)
	}
	return nil
}

// ToggleCompletion flips the task's completion state and persists the full
// record. The toggled copy is returned.
func (r *TaskRepository) ToggleCompletion(ctx context.Context, task model.Task) (model.Task, error) {
	next := task.ToggleCompletion(r.now())
	if err := r.Update(ctx, &next); err != nil {
		return task, err
	}
	return next, nil
}

func (r *TaskRepository) Delete(ctx context.Context, task model.Task) error {
	return r.DeleteByID(ctx, task.ID)
}

func (r *TaskRepository) DeleteByID(ctx context.Context, id int64) error {
	if err := r.storage.DeleteTask(ctx, id); err != nil {
		return storeErr("delete task", err)
	}
	return nil
}

func (r *TaskRepository) DeleteCompleted(ctx context.Context) (int64, error) {
	n, err := r.storage.DeleteCompletedTasks(ctx)
	if err != nil {
		return 0, storeErr("delete completed tasks", err)
	}
	return n, nil
}

func (r *TaskRepository) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.storage.DeleteAllTasks(ctx)
	if err != nil {
		return 0, storeErr("delete all tasks", err)
	}
	return n, nil
}

// UpdateOverdueTasks queries pending tasks fresh from the store and writes
// OVERDUE into the stored status of every one whose due date has passed.
// Returns the number of tasks updated. The caller decides when to run this
// reconciliation pass; nothing triggers it automatically.
func (r *TaskRepository) UpdateOverdueTasks(ctx context.Context, now time.Time) (int, error) {
	tasks, err := r.storage.FilterTasks(ctx, model.TaskFilter{Status: model.TaskStatusPending})
	if err != nil {
		return 0, storeErr("list pending tasks", err)
	}

	var updated int
	for _, task := range tasks {
		if !task.Overdue(now) {
			continue
		}
		if err := r.storage.UpdateTaskStatus(ctx, task.ID, model.TaskStatusOverdue); err != nil {
			return updated, storeErr("mark task overdue", err)
		}
		updated++
	}
	return updated, nil
}

// CompletionPercentage returns 100*completed/total, or 0 for an empty store.
func (r *TaskRepository) CompletionPercentage(ctx context.Context) (float64, error) {
	total, completed, err := r.storage.CountTasks(ctx)
	if err != nil {
		return 0, storeErr("count tasks", err)
	}
	if total == 0 {
		return 0, nil
	}
	return 100 * float64(completed) / float64(total), nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	task, err := r.storage.GetTaskByID(ctx, id)
	if err != nil {
		return nil, storeErr("get task", err)
	}
	return task, nil
}

func (r *TaskRepository) Tasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	tasks, err := r.storage.FilterTasks(ctx, filter)
	if err != nil {
		return nil, storeErr("filter tasks", err)
	}
	return tasks, nil
}

// TasksDueToday lists tasks whose due date falls on the given day.
func (r *TaskRepository) TasksDueToday(ctx context.Context, now time.Time) ([]model.Task, error) {
	return r.Tasks(ctx, model.TaskFilter{DueOn: &now, Sort: model.TaskSortPending})
}

// TasksWithReminder lists tasks that carry an active reminder.
func (r *TaskRepository) TasksWithReminder(ctx context.Context) ([]model.Task, error) {
	hasReminder := true
	return r.Tasks(ctx, model.TaskFilter{HasReminder: &hasReminder})
}

// Watch re-emits the filtered task list whenever the underlying rows change.
// The stream ends when ctx does.
func (r *TaskRepository) Watch(ctx context.Context, filter model.TaskFilter) (<-chan []model.Task, error) {
	ch, err := r.storage.WatchTasks(ctx, filter)
	if err != nil {
		return nil, storeErr("watch tasks", err)
	}
	return ch, nil
}
