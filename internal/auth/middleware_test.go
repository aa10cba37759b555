package auth

import (
	"net/http"
	"net/http/httptest"
	"peek/backend/internal/config"
	"peek/backend/pkg/jwt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, mw gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}

	r := gin.New()
	r.GET("/whoami", mw, func(c *gin.Context) {
		id, ok := c.Get("userID")
		if !ok {
			c.JSON(http.StatusOK, gin.H{"user_id": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": id.(uint)})
	})
	return r
}

func request(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := setupRouter(t, AuthMiddleware())
	token, err := jwt.GenerateToken(7)
	require.NoError(t, err)

	w := request(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, request(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, "garbage").Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	r := setupRouter(t, OptionalAuthMiddleware())
	token, err := jwt.GenerateToken(7)
	require.NoError(t, err)

	assert.JSONEq(t, `{"user_id":7}`, request(r, token).Body.String())
	assert.JSONEq(t, `{"user_id":0}`, request(r, "garbage").Body.String())
	assert.JSONEq(t, `{"user_id":0}`, request(r, "").Body.String())
}
