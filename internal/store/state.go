package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetUserState returns the conversation record for userID, or nil when the
// user has never been seen.
func (s *Store) GetUserState(ctx context.Context, userID string) (*UserState, error) {
	var st UserState
	err := s.db.WithContext(ctx).First(&st, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetOrCreateUserState loads the record for userID, creating an idle one on
// first contact.
func (s *Store) GetOrCreateUserState(ctx context.Context, userID string) (*UserState, error) {
	st, err := s.GetUserState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}
	st = &UserState{UserID: userID, State: StateIdle}
	if err := s.SaveUserState(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// SaveUserState persists the full record, replacing any existing row for the
// same user. A record without a user id fails loudly rather than writing a
// corrupted row.
func (s *Store) SaveUserState(ctx context.Context, st *UserState) error {
	if st == nil || st.UserID == "" {
		return ErrMissingUserID
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(st).Error
}
