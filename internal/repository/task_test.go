package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agalitsyn/task-planner-bot/internal/model"
	"github.com/agalitsyn/task-planner-bot/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTaskRepo(t *testing.T) *TaskRepository {
	t.Helper()
	return NewTaskRepository(sqlite.NewTaskStorage(newTestStore(t)))
}

func TestInsertRejectsInvalidTask(t *testing.T) {
	repo := newTaskRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, model.NewTask("   "))
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	// The store was never touched.
	tasks, err := repo.Tasks(ctx, model.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestInsertBatchAllOrNothing(t *testing.T) {
	repo := newTaskRepo(t)
	ctx := context.Background()

	err := repo.InsertBatch(ctx, []*model.Task{
		model.NewTask("good"),
		model.NewTask(""),
	})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	tasks, err := repo.Tasks(ctx, model.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, repo.InsertBatch(ctx, []*model.Task{
		model.NewTask("one"),
		model.NewTask("two"),
	}))
	tasks, err = repo.Tasks(ctx, model.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestUpdateRejectsInvalidTask(t *testing.T) {
	repo := newTaskRepo(t)
	ctx := context.Background()

	task := model.NewTask("fine")
	_, err := repo.Insert(ctx, task)
	require.NoError(t, err)

	task.Title = ""
	err = repo.Update(ctx, task)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "fine", stored.Title)
}

func TestToggleCompletionPersists(t *testing.T) {
	repo := newTaskRepo(t)
	ctx := context.Background()

	task := model.NewTask("t")
	_, err := repo.Insert(ctx, task)
	require.NoError(t, err)

	completed, err := repo.ToggleCompletion(ctx, *task)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	reopened, err := repo.ToggleCompletion(ctx, *stored)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, reopened.Status)

	stored, err = repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, stored.Status)
	assert.Nil(t, stored.CompletedAt)
}

func TestUpdateOverdueTasks(t *testing.T) {
	repo := newTaskRepo(t)
	ctx := context.Background()
	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	late := model.NewTask("Buy milk")
	late.DueDate = &yesterday
	onTime := model.NewTask("on time")
	onTime.DueDate = &tomorrow
	doneLate := model.NewTask("done late")
	doneLate.DueDate = &yesterday
	*doneLate = doneLate.MarkCompleted(now)
	require.NoError(t, repo.InsertBatch(ctx, []*model.Task{late, onTime, doneLate}))

	require.True(t, late.Overdue(now))

	updated, err := repo.UpdateOverdueTasks(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	stored, err := repo.GetByID(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusOverdue, stored.Status)

	// A second pass finds nothing new.
	updated, err = repo.UpdateOverdueTasks(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestCompletionPercentage(t *testing.T) {
	repo := newTaskRepo(t)
	ctx := context.Background()

	// Empty store: 0, not a division by zero.
	pct, err := repo.CompletionPercentage(ctx)
	require.NoError(t, err)
	assert.Zero(t, pct)

	a := model.NewTask("a")
	b := model.NewTask("b")
	c := model.NewTask("c")
	d := model.NewTask("d")
	require.NoError(t, repo.InsertBatch(ctx, []*model.Task{a, b, c, d}))

	_, err = repo.ToggleCompletion(ctx, *a)
	require.NoError(t, err)

	pct, err = repo.CompletionPercentage(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, pct, 0.001)
}

func TestUpdateReminder(t *testing.T) {
	repo := newTaskRepo(t)
	ctx := context.Background()

	task := model.NewTask("t")
	_, err := repo.Insert(ctx, task)
	require.NoError(t, err)

	at := time.Now().Add(time.Hour)
	require.NoError(t, repo.UpdateReminder(ctx, task.ID, true, &at))

	withReminder, err := repo.TasksWithReminder(ctx)
	require.NoError(t, err)
	require.Len(t, withReminder, 1)
	assert.Equal(t, task.ID, withReminder[0].ID)

	require.NoError(t, repo.UpdateReminder(ctx, task.ID, false, nil))
	withReminder, err = repo.TasksWithReminder(ctx)
	require.NoError(t, err)
	assert.Empty(t, withReminder)
}

func TestDeleteAll(t *testing.T) {
	repo := newTaskRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertBatch(ctx, []*model.Task{
		model.NewTask("a"), model.NewTask("b"),
	}))

	removed, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	tasks, err := repo.Tasks(ctx, model.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
