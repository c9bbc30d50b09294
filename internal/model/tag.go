package model

import (
	"context"
	"strings"
)

type Tag struct {
	ID    int64
	Name  string
	Color string
}

func NewTag(name, color string) *Tag {
	return &Tag{Name: name, Color: color}
}

func (t Tag) Valid() bool {
	return strings.TrimSpace(t.Name) != ""
}

// TaskTag links a task to a tag. The pair is the primary key; inserting an
// existing pair is idempotent.
type TaskTag struct {
	TaskID int64
	TagID  int64
}

type TagStorage interface {
	CreateTag(ctx context.Context, tag *Tag) error
	UpdateTag(ctx context.Context, tag *Tag) error
	DeleteTag(ctx context.Context, id int64) error

	GetTagByID(ctx context.Context, id int64) (*Tag, error)
	ListTags(ctx context.Context) ([]Tag, error)

	// ReplaceTaskTags replaces every association of the task with the given
	// tag set in a single transaction.
	ReplaceTaskTags(ctx context.Context, taskID int64, tagIDs []int64) error
	ListTagsForTask(ctx context.Context, taskID int64) ([]Tag, error)
	ListTasksForTag(ctx context.Context, tagID int64) ([]Task, error)
	CountTasksForTag(ctx context.Context, tagID int64) (int64, error)

	WatchTags(ctx context.Context) (<-chan []Tag, error)
	WatchTagsForTask(ctx context.Context, taskID int64) (<-chan []Tag, error)
}
