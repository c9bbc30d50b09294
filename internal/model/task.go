package model

import (
	"context"
	"strconv"
	"strings"
	"time"
)

type Task struct {
	ID          int64
	Title       string
	Description string
	DueDate     *time.Time
	Priority    TaskPriority
	Status      TaskStatus
	CategoryID  *int64
	CreatedAt   time.Time
	CompletedAt *time.Time

	HasReminder bool
	ReminderAt  *time.Time

	IsRecurring bool
	// RecurrenceDays holds weekday indices 1-7 as a comma-separated list,
	// e.g. "1,3,5".
	RecurrenceDays string

	// StartTime and EndTime are optional HH:MM time-of-day strings.
	StartTime string
	EndTime   string
}

func NewTask(title string) *Task {
	return &Task{
		Title:     title,
		Priority:  TaskPriorityMedium,
		Status:    TaskStatusPending,
		CreatedAt: time.Now(),
	}
}

// Valid reports whether the task may be persisted.
func (t Task) Valid() bool {
	return strings.TrimSpace(t.Title) != ""
}

// Overdue reports whether the task's due date has passed. A completed task
// is never overdue, regardless of its due date. The stored status is not
// consulted beyond the completion check: overdue is a computed predicate.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskStatusCompleted {
		return false
	}
	return t.DueDate.Before(now)
}

// MarkCompleted returns a copy with status set to completed and the
// completion instant recorded.
func (t Task) MarkCompleted(now time.Time) Task {
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	return t
}

// ToggleCompletion flips completion state. Un-completing clears the
// completion instant instead of restoring the previous one.
func (t Task) ToggleCompletion(now time.Time) Task {
	if t.Status == TaskStatusCompleted {
		t.Status = TaskStatusPending
		t.CompletedAt = nil
		return t
	}
	return t.MarkCompleted(now)
}

// RecurrenceWeekdays parses RecurrenceDays into weekday indices, dropping
// anything outside 1-7.
func (t Task) RecurrenceWeekdays() []int {
	if t.RecurrenceDays == "" {
		return nil
	}
	var days []int
	for _, part := range strings.Split(t.RecurrenceDays, ",") {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || day < 1 || day > 7 {
			continue
		}
		days = append(days, day)
	}
	return days
}

// EncodeRecurrenceDays is the inverse of Task.RecurrenceWeekdays.
func EncodeRecurrenceDays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, day := range days {
		if day < 1 || day > 7 {
			continue
		}
		parts = append(parts, strconv.Itoa(day))
	}
	return strings.Join(parts, ",")
}

type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityLow    TaskPriority = "LOW"
)

// Rank orders priorities for sorting, higher is more urgent.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityHigh:
		return 3
	case TaskPriorityMedium:
		return 2
	default:
		return 1
	}
}

func (p TaskPriority) Label() string {
	switch p {
	case TaskPriorityHigh:
		return "high"
	case TaskPriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusOverdue   TaskStatus = "OVERDUE"
)

type TaskSort string

const (
	// TaskSortDefault orders by creation instant, newest first.
	TaskSortDefault TaskSort = "default"
	// TaskSortPending orders by due date ascending (tasks without a due
	// date last), then priority rank descending.
	TaskSortPending TaskSort = "pending"
	// TaskSortCompleted orders by completion instant, newest first.
	TaskSortCompleted TaskSort = "completed"
)

type TaskFilter struct {
	Status     TaskStatus
	Priority   TaskPriority
	CategoryID int64
	// Search matches case-insensitively against title and description.
	Search string
	// DueOn restricts to tasks due on the given calendar day.
	DueOn         *time.Time
	CompletedFrom *time.Time
	CompletedTo   *time.Time
	HasReminder   *bool
	Sort          TaskSort
}

type TaskStorage interface {
	CreateTask(ctx context.Context, task *Task) error
	CreateTasks(ctx context.Context, tasks []*Task) error
	UpdateTask(ctx context.Context, task *Task) error
	UpdateTaskStatus(ctx context.Context, id int64, status TaskStatus) error
	UpdateTaskReminder(ctx context.Context, id int64, hasReminder bool, reminderAt *time.Time) error
	DeleteTask(ctx context.Context, id int64) error
	DeleteCompletedTasks(ctx context.Context) (int64, error)
	DeleteAllTasks(ctx context.Context) (int64, error)

	GetTaskByID(ctx context.Context, id int64) (*Task, error)
	FilterTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	CountTasks(ctx context.Context) (total int64, completed int64, err error)

	WatchTasks(ctx context.Context, filter TaskFilter) (<-chan []Task, error)
}
