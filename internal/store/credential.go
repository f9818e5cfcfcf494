package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// SaveCredential seals the secret fields and inserts a fresh active row,
// deactivating any previous channel for the user. Old rows are kept.
func (s *Store) SaveCredential(ctx context.Context, c *ChannelCredential) error {
	if c.UserID == "" {
		return ErrMissingUserID
	}
	sealedSecret, err := s.sealer.Seal(c.ClientSecret)
	if err != nil {
		return fmt.Errorf("seal client secret: %w", err)
	}
	sealedToken, err := s.sealer.Seal(c.RefreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}

	row := *c
	row.ID = 0
	row.ClientSecret = sealedSecret
	row.RefreshToken = sealedToken
	row.IsActive = true

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ChannelCredential{}).
			Where("user_id = ? AND is_active = ?", c.UserID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
}

// GetActiveCredential returns the user's active channel with secrets
// unsealed, or nil when no channel is configured.
func (s *Store) GetActiveCredential(ctx context.Context, userID string) (*ChannelCredential, error) {
	var c ChannelCredential
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c.ClientSecret, err = s.sealer.Open(c.ClientSecret); err != nil {
		return nil, fmt.Errorf("unseal client secret: %w", err)
	}
	if c.RefreshToken, err = s.sealer.Open(c.RefreshToken); err != nil {
		return nil, fmt.Errorf("unseal refresh token: %w", err)
	}
	return &c, nil
}

// DeactivateCredential logically deletes the user's channel. The row stays.
func (s *Store) DeactivateCredential(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&ChannelCredential{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error
}
