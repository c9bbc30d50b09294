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

func newCategoryRepo(t *testing.T) *CategoryRepository {
	t.Helper()
	return NewCategoryRepository(sqlite.NewCategoryStorage(newTestStore(t)))
}

func TestPredefinedCategoriesAreImmutable(t *testing.T) {
	repo := newCategoryRepo(t)
	ctx := context.Background()

	work, err := repo.GetByID(ctx, model.CategoryWork)
	require.NoError(t, err)
	require.True(t, work.Predefined)

	t.Run("update rejected", func(t *testing.T) {
		renamed := *work
		renamed.Name = "Office"
		err := repo.Update(ctx, &renamed)
		require.Error(t, err)
		assert.True(t, model.IsState(err))
		assert.ErrorIs(t, err, model.ErrPredefinedImmutable)
	})

	t.Run("delete rejected", func(t *testing.T) {
		err := repo.Delete(ctx, model.CategoryWork)
		require.Error(t, err)
		assert.True(t, model.IsState(err))
	})

	// The stored row is unchanged.
	stored, err := repo.GetByID(ctx, model.CategoryWork)
	require.NoError(t, err)
	assert.Equal(t, "Work", stored.Name)
}

func TestCustomCategoryLifecycle(t *testing.T) {
	repo := newCategoryRepo(t)
	ctx := context.Background()

	custom, err := repo.CustomCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, custom)

	hobby := model.NewCategory("Hobby", "#123456", "palette")
	id, err := repo.Insert(ctx, hobby)
	require.NoError(t, err)
	require.NotZero(t, id)

	custom, err = repo.CustomCategories(ctx)
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Equal(t, "Hobby", custom[0].Name)

	hobby.Name = "Crafts"
	require.NoError(t, repo.Update(ctx, hobby))

	require.NoError(t, repo.Delete(ctx, hobby.ID))
	custom, err = repo.CustomCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, custom)
}

func TestCategoryValidation(t *testing.T) {
	repo := newCategoryRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, model.NewCategory("  ", "#fff", ""))
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestWatchCustomCategoriesStream(t *testing.T) {
	repo := newCategoryRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := repo.Watch(ctx, true)
	require.NoError(t, err)

	select {
	case snapshot := <-ch:
		assert.Empty(t, snapshot)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	_, err = repo.Insert(ctx, model.NewCategory("Hobby", "#123456", "palette"))
	require.NoError(t, err)

	select {
	case snapshot := <-ch:
		require.Len(t, snapshot, 1)
		assert.Equal(t, "Hobby", snapshot[0].Name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for updated snapshot")
	}
}
