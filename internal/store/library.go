package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertLibraryVideo records a finished video, keyed by task id. Repeated
// completion signals for the same task update the row instead of duplicating
// it.
func (s *Store) UpsertLibraryVideo(ctx context.Context, v *LibraryVideo) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"video_url", "prompt", "updated_at"}),
		}).
		Create(v).Error
}

// ListLibraryVideos returns the user's videos, newest first.
func (s *Store) ListLibraryVideos(ctx context.Context, userID string, limit int) ([]LibraryVideo, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var vids []LibraryVideo
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&vids).Error
	if err != nil {
		return nil, err
	}
	return vids, nil
}

// GetLibraryVideo returns nil when no video exists for the task.
func (s *Store) GetLibraryVideo(ctx context.Context, taskID string) (*LibraryVideo, error) {
	var v LibraryVideo
	err := s.db.WithContext(ctx).First(&v, "task_id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
