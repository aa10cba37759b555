package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"peek/backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher is the part of the SNS client used for delivery.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNS delivers to platform application endpoints. The subscription endpoint holds the
// endpoint ARN.
type SNS struct {
	client SNSPublisher
}

func NewSNS(client SNSPublisher) *SNS {
	return &SNS{client: client}
}

func (s *SNS) Push(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	message, err := snsMessage(payload)
	if err != nil {
		return err
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		Message:          aws.String(message),
		MessageStructure: aws.String("json"),
		TargetArn:        aws.String(sub.Endpoint),
	})
	if err != nil {
		var disabled *types.EndpointDisabledException
		var notFound *types.NotFoundException
		if errors.As(err, &disabled) || errors.As(err, &notFound) {
			return fmt.Errorf("%w: %w", ErrSubscriptionGone, err)
		}
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// snsMessage wraps payload in the per-platform envelope SNS expects when
// MessageStructure is json.
func snsMessage(payload []byte) (string, error) {
	gcm, err := json.Marshal(map[string]json.RawMessage{"data": payload})
	if err != nil {
		return "", fmt.Errorf("failed to marshal gcm message: %w", err)
	}
	apns, err := json.Marshal(map[string]json.RawMessage{"aps": json.RawMessage(`{"content-available":1}`), "payload": payload})
	if err != nil {
		return "", fmt.Errorf("failed to marshal apns message: %w", err)
	}
	message, err := json.Marshal(map[string]string{
		"default": string(payload),
		"GCM":     string(gcm),
		"APNS":    string(apns),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal sns message: %w", err)
	}
	return string(message), nil
}
