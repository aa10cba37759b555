package repository

import (
	"context"
	"errors"
	"peek/backend/internal/models"

	"gorm.io/gorm"
)

// Directory looks up users, peeks, comments and bestie edges by id.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) FindUser(ctx context.Context, id uint) (*models.User, error) {
	return findByID[models.User](ctx, d.db, id)
}

func (d *Directory) FindPeek(ctx context.Context, id uint) (*models.Peek, error) {
	return findByID[models.Peek](ctx, d.db, id)
}

func (d *Directory) FindComment(ctx context.Context, id uint) (*models.Comment, error) {
	return findByID[models.Comment](ctx, d.db, id)
}

// EdgeStatus returns the status of ownerID -> bestieID, or "" when no such edge exists.
func (d *Directory) EdgeStatus(ctx context.Context, ownerID, bestieID uint) (models.BestieStatus, error) {
	var edge models.Bestie
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND bestie_id = ?", ownerID, bestieID).
		First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return edge.Status, nil
}

func findByID[T any](ctx context.Context, db *gorm.DB, id uint) (*T, error) {
	var row T
	err := db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
