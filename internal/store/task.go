package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	if t.Status == "" {
		t.Status = TaskQueued
	}
	return s.db.WithContext(ctx).Create(t).Error
}

// GetTask returns nil when the task id is unknown.
func (s *Store) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var t Task
	err := s.db.WithContext(ctx).First(&t, "task_id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkTaskRunning bumps queued → running. A no-op for any other status.
func (s *Store) MarkTaskRunning(ctx context.Context, taskID string) error {
	return s.db.WithContext(ctx).Model(&Task{}).
		Where("task_id = ? AND status = ?", taskID, TaskQueued).
		Update("status", TaskRunning).Error
}

// ListActiveTasks returns every task that has not reached a terminal
// status, oldest first. Used at startup to resume watching in-flight work.
func (s *Store) ListActiveTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := s.db.WithContext(ctx).
		Where("status IN ?", []TaskStatus{TaskQueued, TaskRunning}).
		Order("created_at asc").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ResolveTask performs the single sticky terminal transition for a task.
// The guarded update only matches non-terminal rows, so whichever caller
// (poller or webhook) gets there first wins; everyone else gets won=false
// and must not act on the outcome.
func (s *Store) ResolveTask(ctx context.Context, taskID string, status TaskStatus, resultJSON, failCode, failMsg *string) (won bool, err error) {
	if !status.Terminal() {
		return false, fmt.Errorf("resolve task %s with non-terminal status %q", taskID, status)
	}
	res := s.db.WithContext(ctx).Model(&Task{}).
		Where("task_id = ? AND status IN ?", taskID, []TaskStatus{TaskQueued, TaskRunning}).
		Updates(map[string]any{
			"status":      status,
			"result_json": resultJSON,
			"fail_code":   failCode,
			"fail_msg":    failMsg,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
