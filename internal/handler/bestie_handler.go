package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"peek/backend/internal/database"
	"peek/backend/internal/logging"
	"peek/backend/internal/models"
	"peek/backend/internal/notify"
	"peek/backend/internal/repository"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// region --- DTOs ---

// BestieRequestInput names the user to send a bestie request to.
type BestieRequestInput struct {
	Email string `json:"email" binding:"required" example:"bob@example.com"`
}

// BestieEntry is the other user of an edge touching the caller.
type BestieEntry struct {
	UserID    uint                `json:"user_id" example:"2"`
	UserName  string              `json:"user_name" example:"bob"`
	AvatarURL string              `json:"avatar_url,omitempty"`
	Status    models.BestieStatus `json:"status" example:"accepted"`
	Since     string              `json:"since" example:"2025-01-01T00:00:00Z"`
}

// BestiesResponse groups the caller's edges.
type BestiesResponse struct {
	Besties  []BestieEntry `json:"besties"`
	Incoming []BestieEntry `json:"incoming"`
	Outgoing []BestieEntry `json:"outgoing"`
	Count    int           `json:"count"`
	Max      int           `json:"max"`
}

// endregion

// ListBesties godoc
// @Summary      List besties and pending requests
// @Description  Returns accepted besties, incoming requests and outgoing requests of the caller.
// @Tags         besties
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  BestiesResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /besties [get]
func ListBesties(c *gin.Context) {
	viewerID := currentUserID(c)

	rows, err := besties().ListForUser(c.Request.Context(), viewerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch besties"})
		return
	}

	response := BestiesResponse{
		Besties:  []BestieEntry{},
		Incoming: []BestieEntry{},
		Outgoing: []BestieEntry{},
		Max:      maxBesties(),
	}
	for _, r := range rows {
		switch {
		case r.Status == models.StatusAccepted && r.UserID == viewerID:
			response.Besties = append(response.Besties, bestieEntry(r.Bestie, r))
		case r.Status == models.StatusPending && r.BestieID == viewerID:
			response.Incoming = append(response.Incoming, bestieEntry(r.User, r))
		case r.Status == models.StatusPending && r.UserID == viewerID:
			response.Outgoing = append(response.Outgoing, bestieEntry(r.Bestie, r))
		}
	}
	response.Count = len(response.Besties)

	c.JSON(http.StatusOK, response)
}

// RequestBestieByEmail godoc
// @Summary      Send a bestie request by email
// @Description  Looks up the user by email and sends them a bestie request.
// @Tags         besties
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body BestieRequestInput true "Target email"
// @Success      201  {object}  map[string]string "{"message": "Request sent successfully"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Bestie limit reached"
// @Failure      404  {object}  ErrorResponse "Target user not found"
// @Failure      409  {object}  ErrorResponse "Relation already exists"
// @Failure      500  {object}  ErrorResponse
// @Router       /besties/request [post]
func RequestBestieByEmail(c *gin.Context) {
	var input BestieRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := normalizeEmail(input.Email)

	var target models.User
	if err := database.DB.Where("LOWER(email) = ?", email).First(&target).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No user found with email: %s", email)})
		return
	}

	sendBestieRequest(c, target.ID)
}

// SendRequest godoc
// @Summary      Send bestie request
// @Description  Sends a bestie request to another user.
// @Tags         besties
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      201  {object}  map[string]string "{"message": "Request sent successfully"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Bestie limit reached"
// @Failure      404  {object}  ErrorResponse "Target user not found"
// @Failure      409  {object}  ErrorResponse "Relation already exists"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/request [post]
func SendRequest(c *gin.Context) {
	targetUserID, ok := parseIDParam(c, "id", "Invalid target user ID")
	if !ok {
		return
	}

	var target models.User
	if err := database.DB.First(&target, targetUserID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target user not found"})
		return
	}

	sendBestieRequest(c, target.ID)
}

func sendBestieRequest(c *gin.Context, targetUserID uint) {
	viewerID := currentUserID(c)
	ctx := c.Request.Context()

	if err := besties().CreateRequest(ctx, viewerID, targetUserID, maxBesties()); err != nil {
		writeBestieError(c, err, "Failed to create request")
		return
	}

	dispatchAction(ctx, notify.Action{
		ActionType: notify.ActionNewBestieRequest,
		Actor:      actorFor(ctx, viewerID),
		TargetUser: &notify.UserRef{ID: targetUserID},
	})

	c.JSON(http.StatusCreated, gin.H{"message": "Request sent successfully"})
}

// AcceptRequest godoc
// @Summary      Accept bestie request
// @Description  Accepts a pending bestie request from another user. Both users must be below the bestie limit.
// @Tags         besties
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  map[string]string "{"message": "Request accepted"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Bestie limit reached"
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/accept [post]
func AcceptRequest(c *gin.Context) {
	viewerID := currentUserID(c)
	requestingUserID, ok := parseIDParam(c, "id", "Invalid requesting user ID")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := besties().Accept(ctx, requestingUserID, viewerID, maxBesties()); err != nil {
		writeBestieError(c, err, "Failed to accept request")
		return
	}

	dispatchAction(ctx, notify.Action{
		ActionType: notify.ActionBestieRequestAccepted,
		Actor:      actorFor(ctx, viewerID),
		TargetUser: &notify.UserRef{ID: requestingUserID},
	})

	c.JSON(http.StatusOK, gin.H{"message": "Request accepted"})
}

// DeclineRequest godoc
// @Summary      Decline bestie request
// @Description  Declines a pending bestie request from another user.
// @Tags         besties
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  map[string]string "{"message": "Request declined"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/decline [post]
func DeclineRequest(c *gin.Context) {
	viewerID := currentUserID(c)
	requestingUserID, ok := parseIDParam(c, "id", "Invalid requesting user ID")
	if !ok {
		return
	}

	if err := besties().Decline(c.Request.Context(), requestingUserID, viewerID); err != nil {
		writeBestieError(c, err, "Failed to decline request")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request declined"})
}

// RemoveRelation godoc
// @Summary      Remove bestie
// @Description  Cancels a sent request, drops a received one, or removes a bestie. Both directions are deleted.
// @Tags         besties
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  map[string]string "{"message": "Relation removed"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Relation not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/remove [post]
func RemoveRelation(c *gin.Context) {
	viewerID := currentUserID(c)
	targetUserID, ok := parseIDParam(c, "id", "Invalid target user ID")
	if !ok {
		return
	}

	if err := besties().Remove(c.Request.Context(), viewerID, targetUserID); err != nil {
		writeBestieError(c, err, "Failed to remove relation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Relation removed"})
}

// region --- Helpers ---

func bestieEntry(other models.User, r models.Bestie) BestieEntry {
	return BestieEntry{
		UserID:    other.ID,
		UserName:  other.DisplayName(),
		AvatarURL: other.AvatarURL,
		Status:    r.Status,
		Since:     r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeBestieError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrSelfRelation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot add yourself as a bestie"})
	case errors.Is(err, repository.ErrRelationExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Friendship already exists with this user"})
	case errors.Is(err, repository.ErrBestieLimitReached):
		c.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("You can have a maximum of %d besties. Remove someone first to add a new bestie.", maxBesties())})
	case errors.Is(err, repository.ErrRequesterAtLimit):
		c.JSON(http.StatusForbidden, gin.H{"error": "This user already has the maximum number of besties"})
	case errors.Is(err, repository.ErrBestieNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Relation not found"})
	default:
		logging.Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// actorFor describes userID for notification templates.
func actorFor(ctx context.Context, userID uint) notify.Actor {
	var user models.User
	if err := database.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return notify.Actor{ID: userID}
	}
	return notify.Actor{ID: userID, Username: user.DisplayName()}
}

// dispatchAction hands the action to the dispatcher. Failures are logged and never
// reach the client since the write already succeeded.
func dispatchAction(ctx context.Context, a notify.Action) {
	if err := dispatcher.Dispatch(ctx, a); err != nil {
		logging.Error("Failed to dispatch notification",
			zap.String("action", string(a.ActionType)),
			zap.Uint("actor_id", a.Actor.ID),
			zap.Error(err))
	}
}

// endregion
