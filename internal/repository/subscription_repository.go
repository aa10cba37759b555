package repository

import (
	"context"
	"peek/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	Disable(ctx context.Context, userID uint, endpoint string) (int64, error)
	HasEnabled(ctx context.Context, userID uint) (bool, error)
	ListEnabled(ctx context.Context, userIDs []uint) ([]models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert stores sub keyed by its endpoint. An existing endpoint is rebound to sub.UserID
// and re-enabled.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	sub.Enabled = true
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "enabled", "updated_at"}),
	}).Create(sub).Error
}

// Disable turns off one endpoint of the user, or all of them when endpoint is empty.
func (r *subscriptionRepository) Disable(ctx context.Context, userID uint, endpoint string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PushSubscription{}).Where("user_id = ?", userID)
	if endpoint != "" {
		query = query.Where("endpoint = ?", endpoint)
	}
	result := query.Update("enabled", false)
	return result.RowsAffected, result.Error
}

func (r *subscriptionRepository) HasEnabled(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("user_id = ? AND enabled = ?", userID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *subscriptionRepository) ListEnabled(ctx context.Context, userIDs []uint) ([]models.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var subs []models.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND enabled = ?", userIDs, true).
		Order("id").
		Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return r.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&models.PushSubscription{}).Error
}
