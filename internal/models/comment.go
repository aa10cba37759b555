package models

import "gorm.io/gorm"

// Comment belongs to a peek. Replies point at a parent comment of the same peek.
type Comment struct {
	gorm.Model
	PeekID          uint   `gorm:"not null;index"`
	UserID          uint   `gorm:"not null;index"`
	ParentCommentID *uint  `gorm:"index"`
	Author          string `gorm:"size:255;not null"`
	Content         string `gorm:"not null"`
}
