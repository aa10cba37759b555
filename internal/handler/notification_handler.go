package handler

import (
	"net/http"
	"peek/backend/internal/database"
	"peek/backend/internal/logging"
	"peek/backend/internal/notify"
	"peek/backend/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TriggerNotification godoc
// @Summary      Trigger a bestie push
// @Description  Resolves the recipients of an action and pushes to their devices. The actor is always the caller,
// @Description  and owners, previews and bestie edges are read from the database rather than the request.
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body notify.Action true "Action descriptor"
// @Success      200  {object}  notify.Result
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /notifications/trigger [post]
func TriggerNotification(c *gin.Context) {
	var action notify.Action
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Notifications are not configured"})
		return
	}

	ctx := c.Request.Context()
	viewerID := currentUserID(c)
	action, err := notify.Authorize(ctx, repository.NewDirectory(database.DB), viewerID, action)
	if err != nil {
		status := notify.StatusCode(err)
		if status == http.StatusInternalServerError {
			logging.Error("Failed to authorize action", zap.Uint("user_id", viewerID), zap.Error(err))
			c.JSON(status, gin.H{"error": "Failed to send notifications"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	result, err := notifier.Fanout(ctx, action)
	if err != nil {
		logging.Error("Fan-out failed", zap.String("action", string(action.ActionType)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notifications"})
		return
	}

	c.JSON(http.StatusOK, result)
}
