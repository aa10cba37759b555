package handler

import (
	"errors"
	"net/http"
	"peek/backend/internal/database"
	"peek/backend/internal/hub"
	"peek/backend/internal/models"
	"peek/backend/internal/notify"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LoveResponse is the love state of a peek as seen by the caller.
type LoveResponse struct {
	PeekID    uint  `json:"peek_id" example:"1"`
	LikeCount int64 `json:"like_count" example:"3"`
	Loved     bool  `json:"loved" example:"true"`
}

// ToggleLove godoc
// @Summary      Love or unlove a peek
// @Description  Adds the caller's love when absent and removes it otherwise. Loving notifies the owner when they are besties.
// @Tags         loves
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Peek ID"
// @Success      200  {object}  LoveResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /peeks/{id}/love [post]
func ToggleLove(c *gin.Context) {
	viewerID := currentUserID(c)
	peekID, ok := parseIDParam(c, "id", "Invalid peek ID")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	actor := actorFor(ctx, viewerID)

	var peek models.Peek
	var loved bool
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&peek, peekID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errPeekNotFound
			}
			return err
		}

		var existing models.Love
		err := tx.Where("peek_id = ? AND user_id = ?", peekID, viewerID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			err = tx.Model(&models.Peek{}).
				Where("id = ? AND like_count > 0", peekID).
				UpdateColumn("like_count", gorm.Expr("like_count - ?", 1)).Error
			if err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Love{PeekID: peekID, UserID: viewerID}).Error; err != nil {
				return err
			}
			err = tx.Model(&models.Peek{}).
				Where("id = ?", peekID).
				UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error
			if err != nil {
				return err
			}
			loved = true
		default:
			return err
		}

		return tx.Model(&models.Peek{}).Where("id = ?", peekID).Select("like_count").Scan(&peek.LikeCount).Error
	})
	if errors.Is(err, errPeekNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Peek not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update love"})
		return
	}

	if loved {
		dispatchAction(ctx, notify.Action{
			ActionType: notify.ActionLike,
			Actor:      actor,
			Post:       &notify.PostRef{ID: peek.ID, OwnerID: peek.UserID},
		})
	}

	response := LoveResponse{PeekID: peek.ID, LikeCount: peek.LikeCount, Loved: loved}
	events.Broadcast(peek.ID, hub.Event{
		Type:    hub.EventLoveUpdated,
		Payload: gin.H{"peek_id": peek.ID, "like_count": peek.LikeCount},
	})

	c.JSON(http.StatusOK, response)
}

// GetLoves godoc
// @Summary      Get love state of a peek
// @Tags         loves
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Peek ID"
// @Success      200  {object}  LoveResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /peeks/{id}/loves [get]
func GetLoves(c *gin.Context) {
	viewerID := currentUserID(c)
	peekID, ok := parseIDParam(c, "id", "Invalid peek ID")
	if !ok {
		return
	}
	db := database.DB.WithContext(c.Request.Context())

	var peek models.Peek
	if err := db.First(&peek, peekID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Peek not found"})
		return
	}

	var total, mine int64
	db.Model(&models.Love{}).Where("peek_id = ?", peekID).Count(&total)
	db.Model(&models.Love{}).Where("peek_id = ? AND user_id = ?", peekID, viewerID).Count(&mine)

	c.JSON(http.StatusOK, LoveResponse{PeekID: peek.ID, LikeCount: total, Loved: mine > 0})
}
