package repository

import (
	"context"
	"errors"
	"peek/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrBestieNotFound     = errors.New("bestie relation not found")
	ErrBestieLimitReached = errors.New("bestie limit reached")
	ErrRequesterAtLimit   = errors.New("requesting user has reached the bestie limit")
	ErrRelationExists     = errors.New("relation already exists")
	ErrSelfRelation       = errors.New("cannot be your own bestie")
)

type BestieRepository interface {
	IsAcceptedBestie(ctx context.Context, ownerID, bestieID uint) (bool, error)
	ListBestieOwners(ctx context.Context, bestieID uint) ([]uint, error)
	AcceptedCount(ctx context.Context, userID uint) (int64, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Bestie, error)
	CreateRequest(ctx context.Context, fromID, toID uint, maxBesties int) error
	Accept(ctx context.Context, requesterID, accepterID uint, maxBesties int) error
	Decline(ctx context.Context, requesterID, accepterID uint) error
	Remove(ctx context.Context, userID, otherID uint) error
}

type bestieRepository struct {
	db *gorm.DB
}

func NewBestieRepository(db *gorm.DB) BestieRepository {
	return &bestieRepository{db: db}
}

// IsAcceptedBestie reports whether ownerID holds an accepted edge pointing at bestieID.
func (r *bestieRepository) IsAcceptedBestie(ctx context.Context, ownerID, bestieID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Bestie{}).
		Where("user_id = ? AND bestie_id = ? AND status = ?", ownerID, bestieID, models.StatusAccepted).
		Count(&count).Error
	return count > 0, err
}

// ListBestieOwners returns every user holding an accepted edge pointing at bestieID.
func (r *bestieRepository) ListBestieOwners(ctx context.Context, bestieID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Bestie{}).
		Where("bestie_id = ? AND status = ?", bestieID, models.StatusAccepted).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *bestieRepository) AcceptedCount(ctx context.Context, userID uint) (int64, error) {
	return acceptedCount(r.db.WithContext(ctx), userID)
}

// ListForUser returns all edges touching userID in either direction, with both users preloaded.
func (r *bestieRepository) ListForUser(ctx context.Context, userID uint) ([]models.Bestie, error) {
	var rows []models.Bestie
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Bestie").
		Where("user_id = ? OR bestie_id = ?", userID, userID).
		Order("created_at").
		Find(&rows).Error
	return rows, err
}

// CreateRequest inserts a pending edge fromID -> toID. It refuses when any edge already
// exists between the pair in either direction or when fromID is at the cap.
func (r *bestieRepository) CreateRequest(ctx context.Context, fromID, toID uint, maxBesties int) error {
	if fromID == toID {
		return ErrSelfRelation
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUsers(tx, fromID, toID); err != nil {
			return err
		}

		var existing int64
		err := tx.Model(&models.Bestie{}).
			Where("(user_id = ? AND bestie_id = ?) OR (user_id = ? AND bestie_id = ?)", fromID, toID, toID, fromID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrRelationExists
		}

		count, err := acceptedCount(tx, fromID)
		if err != nil {
			return err
		}
		if count >= int64(maxBesties) {
			return ErrBestieLimitReached
		}

		return tx.Create(&models.Bestie{
			UserID:   fromID,
			BestieID: toID,
			Status:   models.StatusPending,
		}).Error
	})
}

// Accept turns the pending edge requesterID -> accepterID into an accepted one and mirrors it.
// Both users must be below the cap.
func (r *bestieRepository) Accept(ctx context.Context, requesterID, accepterID uint, maxBesties int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUsers(tx, requesterID, accepterID); err != nil {
			return err
		}

		var request models.Bestie
		err := tx.Where("user_id = ? AND bestie_id = ? AND status = ?", requesterID, accepterID, models.StatusPending).
			First(&request).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBestieNotFound
		}
		if err != nil {
			return err
		}

		count, err := acceptedCount(tx, accepterID)
		if err != nil {
			return err
		}
		if count >= int64(maxBesties) {
			return ErrBestieLimitReached
		}
		count, err = acceptedCount(tx, requesterID)
		if err != nil {
			return err
		}
		if count >= int64(maxBesties) {
			return ErrRequesterAtLimit
		}

		err = tx.Model(&models.Bestie{}).
			Where("user_id = ? AND bestie_id = ?", requesterID, accepterID).
			Update("status", models.StatusAccepted).Error
		if err != nil {
			return err
		}

		mirror := models.Bestie{
			UserID:   accepterID,
			BestieID: requesterID,
			Status:   models.StatusAccepted,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "bestie_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).Create(&mirror).Error
	})
}

func (r *bestieRepository) Decline(ctx context.Context, requesterID, accepterID uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND bestie_id = ? AND status = ?", requesterID, accepterID, models.StatusPending).
		Delete(&models.Bestie{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBestieNotFound
	}
	return nil
}

// Remove deletes the relation in both directions. It cancels an outgoing request,
// drops an incoming one or ends an accepted bestie relationship.
func (r *bestieRepository) Remove(ctx context.Context, userID, otherID uint) error {
	result := r.db.WithContext(ctx).
		Where("(user_id = ? AND bestie_id = ?) OR (user_id = ? AND bestie_id = ?)", userID, otherID, otherID, userID).
		Delete(&models.Bestie{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBestieNotFound
	}
	return nil
}

// lockUsers takes row locks on the users, in id order, for the rest of the transaction.
// Cap checks on the same user then run one after another. SQLite has no row locks and
// its dialector drops the clause.
func lockUsers(tx *gorm.DB, ids ...uint) error {
	var locked []models.User
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id IN ?", ids).
		Order("id").
		Find(&locked).Error
}

func acceptedCount(db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Bestie{}).
		Where("user_id = ? AND status = ?", userID, models.StatusAccepted).
		Count(&count).Error
	return count, err
}
