package repository

import (
	"context"

	"github.com/agalitsyn/task-planner-bot/internal/model"
)

type TagRepository struct {
	storage model.TagStorage
}

func NewTagRepository(storage model.TagStorage) *TagRepository {
	return &TagRepository{storage: storage}
}

func (r *TagRepository) Insert(ctx context.Context, tag *model.Tag) (int64, error) {
	if !tag.Valid() {
		return 0, &model.ValidationError{Entity: "tag", Field: "name", Reason: "must not be empty"}
	}
	if err := r.storage.CreateTag(ctx, tag); err != nil {
		return 0, storeErr("insert tag", err)
	}
	return tag.ID, nil
}

func (r *TagRepository) Update(ctx context.Context, tag *model.Tag) error {
	if !tag.Valid() {
		return &model.ValidationError{Entity: "tag", Field: "name", Reason: "must not be empty"}
	}
	if err := r.storage.UpdateTag(ctx, tag); err != nil {
		return storeErr("update tag", err)
	}
	return nil
}

func (r *TagRepository) Delete(ctx context.Context, id int64) error {
	if err := r.storage.DeleteTag(ctx, id); err != nil {
		return storeErr("delete tag", err)
	}
	return nil
}

func (r *TagRepository) GetByID(ctx context.Context, id int64) (*model.Tag, error) {
	tag, err := r.storage.GetTagByID(ctx, id)
	if err != nil {
		return nil, storeErr("get tag", err)
	}
	return tag, nil
}

func (r *TagRepository) Tags(ctx context.Context) ([]model.Tag, error) {
	tags, err := r.storage.ListTags(ctx)
	if err != nil {
		return nil, storeErr("list tags", err)
	}
	return tags, nil
}

// SetTagsForTask replaces the task's whole tag set atomically.
func (r *TagRepository) SetTagsForTask(ctx context.Context, taskID int64, tagIDs []int64) error {
	if err := r.storage.ReplaceTaskTags(ctx, taskID, tagIDs); err != nil {
		return storeErr("set task tags", err)
	}
	return nil
}

func (r *TagRepository) TagsForTask(ctx context.Context, taskID int64) ([]model.Tag, error) {
	tags, err := r.storage.ListTagsForTask(ctx, taskID)
	if err != nil {
		return nil, storeErr("list task tags", err)
	}
	return tags, nil
}

func (r *TagRepository) TasksForTag(ctx context.Context, tagID int64) ([]model.Task, error) {
	tasks, err := r.storage.ListTasksForTag(ctx, tagID)
	if err != nil {
		return nil, storeErr("list tag tasks", err)
	}
	return tasks, nil
}

func (r *TagRepository) TaskCountForTag(ctx context.Context, tagID int64) (int64, error) {
	count, err := r.storage.CountTasksForTag(ctx, tagID)
	if err != nil {
		return 0, storeErr("count tag tasks", err)
	}
	return count, nil
}

func (r *TagRepository) Watch(ctx context.Context) (<-chan []model.Tag, error) {
	ch, err := r.storage.WatchTags(ctx)
	if err != nil {
		return nil, storeErr("watch tags", err)
	}
	return ch, nil
}

func (r *TagRepository) WatchTagsForTask(ctx context.Context, taskID int64) (<-chan []model.Tag, error) {
	ch, err := r.storage.WatchTagsForTask(ctx, taskID)
	if err != nil {
		return nil, storeErr("watch task tags", err)
	}
	return ch, nil
}
