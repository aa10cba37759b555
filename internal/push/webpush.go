package push

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"peek/backend/internal/models"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const maxErrorBody = 512

// WebPushConfig carries the VAPID identity used to sign requests. Subject is either a
// mailto: address or an https URL.
type WebPushConfig struct {
	Subject         string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	TTL             int
	HTTPClient      webpush.HTTPClient
}

// WebPush sends encrypted payloads to browser push services.
type WebPush struct {
	cfg WebPushConfig
}

func NewWebPush(cfg WebPushConfig) *WebPush {
	return &WebPush{cfg: cfg}
}

// Push delivers payload to sub. A 404 or 410 response yields ErrSubscriptionGone.
func (w *WebPush) Push(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	if w.cfg.VAPIDPublicKey == "" || w.cfg.VAPIDPrivateKey == "" {
		return fmt.Errorf("vapid keys are not configured")
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      w.cfg.HTTPClient,
		Subscriber:      strings.TrimPrefix(w.cfg.Subject, "mailto:"),
		VAPIDPublicKey:  w.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: w.cfg.VAPIDPrivateKey,
		TTL:             w.cfg.TTL,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("failed to send web push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone, resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrSubscriptionGone, &DeliveryError{StatusCode: resp.StatusCode})
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}
