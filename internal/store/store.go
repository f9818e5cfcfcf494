package store

import (
	"errors"

	"gorm.io/gorm"
)

// ErrMissingUserID marks a state write that lost its user identity.
// Persisting such a row would silently orphan the conversation, so the
// write fails instead.
var ErrMissingUserID = errors.New("store: user state write without user id")

type Store struct {
	db     *gorm.DB
	sealer *Sealer
}

func New(db *gorm.DB, sealer *Sealer) *Store {
	return &Store{db: db, sealer: sealer}
}
