package models

import "gorm.io/gorm"

// Peek is a user-submitted image post.
type Peek struct {
	gorm.Model
	UserID       uint   `gorm:"not null;index"`
	Title        string `gorm:"size:255;not null"`
	Content      string
	ImageURL     string `gorm:"size:1024;not null"`
	LikeCount    int64  `gorm:"not null;default:0"`
	CommentCount int64  `gorm:"not null;default:0"`

	User User `gorm:"foreignKey:UserID"`
}
