package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"peek/backend/internal/models"
	"strings"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubscription(t *testing.T, endpoint string) models.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)

	return models.PushSubscription{
		UserID:   1,
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(secret),
		Enabled:  true,
	}
}

func testWebPush(t *testing.T) *WebPush {
	t.Helper()
	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return NewWebPush(WebPushConfig{
		Subject:         "mailto:test@example.com",
		VAPIDPublicKey:  public,
		VAPIDPrivateKey: private,
		TTL:             30,
	})
}

func TestWebPush_StatusHandling(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		gone    bool
		wantErr bool
	}{
		{name: "created", status: http.StatusCreated},
		{name: "gone", status: http.StatusGone, gone: true, wantErr: true},
		{name: "not found", status: http.StatusNotFound, gone: true, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTTL, gotEncoding string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotTTL = r.Header.Get("TTL")
				gotEncoding = r.Header.Get("Content-Encoding")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("push service says no"))
			}))
			defer srv.Close()

			err := testWebPush(t).Push(context.Background(), testSubscription(t, srv.URL), []byte(`{"title":"hi"}`))
			assert.Equal(t, "30", gotTTL)
			assert.Equal(t, "aes128gcm", gotEncoding)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.gone, errors.Is(err, ErrSubscriptionGone))

			var delivery *DeliveryError
			require.ErrorAs(t, err, &delivery)
			assert.Equal(t, tt.status, delivery.StatusCode)
		})
	}
}

func TestWebPush_RequiresKeys(t *testing.T) {
	err := NewWebPush(WebPushConfig{}).Push(context.Background(), models.PushSubscription{Endpoint: "http://x"}, nil)
	assert.Error(t, err)
}

func TestWebPush_VAPIDSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{subject: "mailto:ops@example.com", want: "mailto:ops@example.com"},
		{subject: "ops@example.com", want: "mailto:ops@example.com"},
		{subject: "https://peek.example.com", want: "https://peek.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			var auth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				w.WriteHeader(http.StatusCreated)
			}))
			defer srv.Close()

			wp := testWebPush(t)
			wp.cfg.Subject = tt.subject
			require.NoError(t, wp.Push(context.Background(), testSubscription(t, srv.URL), []byte(`{}`)))

			token, _, ok := strings.Cut(strings.TrimPrefix(auth, "vapid t="), ", k=")
			require.True(t, ok, auth)
			claims := gojwt.MapClaims{}
			_, _, err := gojwt.NewParser().ParseUnverified(token, claims)
			require.NoError(t, err)
			assert.Equal(t, tt.want, claims["sub"])
		})
	}
}
