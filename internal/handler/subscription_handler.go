package handler

import (
	"errors"
	"io"
	"net/http"
	"peek/backend/internal/config"
	"peek/backend/internal/logging"
	"peek/backend/internal/models"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// region --- DTOs ---

// SubscriptionKeys are the browser's encryption keys for a push endpoint.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh" example:"BNc..."`
	Auth   string `json:"auth" example:"tBH..."`
}

// SubscriptionInput mirrors the browser PushSubscription JSON.
type SubscriptionInput struct {
	Endpoint string           `json:"endpoint" example:"https://fcm.googleapis.com/fcm/send/abc"`
	Keys     SubscriptionKeys `json:"keys"`
}

// UnsubscribeInput names the endpoint to disable. An empty endpoint disables all of them.
type UnsubscribeInput struct {
	Endpoint string `json:"endpoint"`
}

// endregion

// SaveSubscription godoc
// @Summary      Save a push subscription
// @Description  Stores the browser push subscription for the caller. An existing endpoint is rebound and re-enabled.
// @Tags         push
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body SubscriptionInput true "Push subscription"
// @Success      201  {object}  map[string]string "{"message": "Subscription saved"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /push/subscribe [post]
func SaveSubscription(c *gin.Context) {
	viewerID := currentUserID(c)
	var input SubscriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(input.Endpoint) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing subscription endpoint"})
		return
	}

	sub := models.PushSubscription{
		UserID:   viewerID,
		Endpoint: strings.TrimSpace(input.Endpoint),
		P256dh:   input.Keys.P256dh,
		Auth:     input.Keys.Auth,
	}
	if err := subscriptions().Upsert(c.Request.Context(), &sub); err != nil {
		logging.Error("Failed to save subscription", zap.Uint("user_id", viewerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscription saved"})
}

// Unsubscribe godoc
// @Summary      Disable push notifications
// @Description  Disables one endpoint of the caller, or all of them when no endpoint is given.
// @Tags         push
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UnsubscribeInput false "Endpoint"
// @Success      200  {object}  map[string]interface{} "{"message": "Unsubscribed", "disabled": 1}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /push/unsubscribe [post]
func Unsubscribe(c *gin.Context) {
	viewerID := currentUserID(c)
	var input UnsubscribeInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := subscriptions().Disable(c.Request.Context(), viewerID, strings.TrimSpace(input.Endpoint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unsubscribe"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed", "disabled": n})
}

// SubscriptionStatus godoc
// @Summary      Push notification status
// @Description  Reports whether the caller has any enabled push subscription.
// @Tags         push
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]bool "{"enabled": true}"
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /push/status [get]
func SubscriptionStatus(c *gin.Context) {
	enabled, err := subscriptions().HasEnabled(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read subscription status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

// GetVAPIDPublicKey godoc
// @Summary      VAPID public key
// @Description  Returns the application server key browsers subscribe with.
// @Tags         push
// @Produce      json
// @Success      200  {object}  map[string]string "{"publicKey": "..."}"
// @Failure      503  {object}  ErrorResponse
// @Router       /push/vapid-public-key [get]
func GetVAPIDPublicKey(c *gin.Context) {
	if config.AppConfig == nil || config.AppConfig.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": config.AppConfig.VAPIDPublicKey})
}
