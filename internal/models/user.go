package models

import (
	"strings"

	"gorm.io/gorm"
)

// User represents a user in the system.
type User struct {
	gorm.Model
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	UserName     string `gorm:"size:255;not null"`
	AvatarURL    string `gorm:"size:1024"`
	PasswordHash string `gorm:"size:255;not null"`
}

// DisplayName falls back to the local part of the email when no user name is set.
func (u User) DisplayName() string {
	if u.UserName != "" {
		return u.UserName
	}
	if local, _, _ := strings.Cut(u.Email, "@"); local != "" {
		return local
	}
	return "Someone"
}
