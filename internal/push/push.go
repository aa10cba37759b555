// Package push delivers notification payloads to stored subscriptions.
package push

import (
	"context"
	"errors"
	"fmt"
	"peek/backend/internal/config"
	"peek/backend/internal/models"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// ErrSubscriptionGone reports that the push service no longer accepts the subscription.
// Callers delete the stored record when they see it.
var ErrSubscriptionGone = errors.New("push subscription expired")

// DeliveryError is a non-success response from the push service.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push service responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("push service responded with status %d: %s", e.StatusCode, e.Body)
}

// Pusher delivers one payload to one subscription.
type Pusher interface {
	Push(ctx context.Context, sub models.PushSubscription, payload []byte) error
}

// NewFromConfig builds the provider selected by PUSH_PROVIDER.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Pusher, error) {
	switch cfg.PushProvider {
	case config.PushProviderSNS:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return NewSNS(sns.NewFromConfig(awsCfg)), nil
	case config.PushProviderWebPush, "":
		return NewWebPush(WebPushConfig{
			Subject:         cfg.VAPIDSubject,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             cfg.PushTTL,
		}), nil
	}
	return nil, fmt.Errorf("unknown push provider %q", cfg.PushProvider)
}
