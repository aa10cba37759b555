package apigw

import (
	"context"
	"encoding/json"
	"net/http"
	"peek/backend/internal/logging"
	"peek/backend/internal/models"
	"peek/backend/internal/notify"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// Handler is the signature lambda.Start expects for API Gateway proxy events.
type Handler func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Fanouter runs a trusted action. *notify.Notifier satisfies it.
type Fanouter interface {
	Fanout(ctx context.Context, a notify.Action) (*notify.Result, error)
}

// SubscriptionSaver stores a browser push subscription.
type SubscriptionSaver interface {
	Upsert(ctx context.Context, sub *models.PushSubscription) error
}

type subscriptionBody struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// TriggerHandler authorizes the caller's action against dir and fans it out.
func TriggerHandler(secret string, dir notify.Directory, fanout Fanouter) Handler {
	return func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if event.HTTPMethod == http.MethodOptions {
			return Preflight()
		}

		userID, err := UserID(event, secret)
		if err != nil {
			return Error(http.StatusUnauthorized, "Unauthorized")
		}

		var action notify.Action
		if err := json.Unmarshal([]byte(event.Body), &action); err != nil {
			return Error(http.StatusBadRequest, "Invalid request body")
		}

		action, err = notify.Authorize(ctx, dir, userID, action)
		if err != nil {
			status := notify.StatusCode(err)
			if status == http.StatusInternalServerError {
				logging.Error("Failed to authorize action", zap.Uint("user_id", userID), zap.Error(err))
				return Error(status, "Failed to send notifications")
			}
			return Error(status, err.Error())
		}

		result, err := fanout.Fanout(ctx, action)
		if err != nil {
			logging.Error("Fan-out failed", zap.String("action", string(action.ActionType)), zap.Error(err))
			return Error(http.StatusInternalServerError, "Failed to send notifications")
		}
		return Respond(http.StatusOK, result)
	}
}

// SaveSubscriptionHandler stores the caller's push subscription.
func SaveSubscriptionHandler(secret string, subs SubscriptionSaver) Handler {
	return func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if event.HTTPMethod == http.MethodOptions {
			return Preflight()
		}

		userID, err := UserID(event, secret)
		if err != nil {
			return Error(http.StatusUnauthorized, "Unauthorized")
		}

		var body subscriptionBody
		if err := json.Unmarshal([]byte(event.Body), &body); err != nil {
			return Error(http.StatusBadRequest, "Invalid request body")
		}
		endpoint := strings.TrimSpace(body.Endpoint)
		if endpoint == "" {
			return Error(http.StatusBadRequest, "Missing subscription endpoint")
		}

		err = subs.Upsert(ctx, &models.PushSubscription{
			UserID:   userID,
			Endpoint: endpoint,
			P256dh:   body.Keys.P256dh,
			Auth:     body.Keys.Auth,
		})
		if err != nil {
			logging.Error("Failed to save subscription", zap.Uint("user_id", userID), zap.Error(err))
			return Error(http.StatusInternalServerError, "Failed to save subscription")
		}

		return Respond(http.StatusCreated, map[string]string{"message": "Subscription saved"})
	}
}
