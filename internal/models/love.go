package models

import "time"

// Love marks that a user loved a peek. At most one row exists per (peek, user).
type Love struct {
	ID        uint `gorm:"primaryKey"`
	PeekID    uint `gorm:"not null;uniqueIndex:idx_loves_peek_user"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_loves_peek_user"`
	CreatedAt time.Time
}
