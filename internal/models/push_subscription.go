package models

import "time"

// PushSubscription is a stored browser push endpoint. Endpoint is unique across users;
// re-subscribing the same endpoint rebinds it to the caller.
type PushSubscription struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Endpoint  string `gorm:"size:2048;uniqueIndex;not null"`
	P256dh    string `gorm:"size:255"`
	Auth      string `gorm:"size:255"`
	Enabled   bool   `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
