package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

func (s *Store) CreateUploadAttempt(ctx context.Context, a *UploadAttempt) error {
	if a.ID == "" {
		a.ID = NewAttemptID()
	}
	if a.Status == "" {
		a.Status = UploadPending
	}
	return s.db.WithContext(ctx).Create(a).Error
}

// GetUploadAttempt returns nil when the id is unknown.
func (s *Store) GetUploadAttempt(ctx context.Context, id string) (*UploadAttempt, error) {
	var a UploadAttempt
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) MarkUploadSucceeded(ctx context.Context, id, videoID, videoURL string) error {
	return s.db.WithContext(ctx).Model(&UploadAttempt{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            UploadSucceeded,
			"youtube_video_id":  videoID,
			"youtube_video_url": videoURL,
			"error_message":     nil,
		}).Error
}

func (s *Store) MarkUploadFailed(ctx context.Context, id, errMsg string) error {
	return s.db.WithContext(ctx).Model(&UploadAttempt{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        UploadFailed,
			"error_message": errMsg,
		}).Error
}
