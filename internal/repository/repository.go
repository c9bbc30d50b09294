// Package repository sits between callers and the persistence access layer.
// It validates input, enforces business rules, and reports failures through
// the typed errors in internal/model; errors never escape as panics.
package repository

import (
	"errors"

	"github.com/agalitsyn/task-planner-bot/internal/model"
)

// storeErr wraps unexpected store faults. Sentinel and typed errors pass
// through untouched so callers can match on them.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrTaskNotFound) ||
		errors.Is(err, model.ErrCategoryNotFound) ||
		errors.Is(err, model.ErrTagNotFound) {
		return err
	}
	if model.IsValidation(err) || model.IsState(err) {
		return err
	}
	return &model.StoreError{Op: op, Err: err}
}
