package apigw

import (
	"net/http"
	"peek/backend/pkg/jwt"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespond(t *testing.T) {
	resp, err := Respond(http.StatusCreated, map[string]int{"sent_to_count": 2})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"sent_to_count":2}`, resp.Body)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

	resp, err = Preflight()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserID_FromAuthorizerClaims(t *testing.T) {
	event := events.APIGatewayProxyRequest{
		RequestContext: events.APIGatewayProxyRequestContext{
			Authorizer: map[string]interface{}{
				"jwt": map[string]interface{}{
					"claims": map[string]interface{}{"sub": "12"},
				},
			},
		},
	}
	id, err := UserID(event, "unused")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)
}

func TestUserID_FromBearerToken(t *testing.T) {
	token, err := jwt.GenerateTokenWithSecret(5, "secret")
	require.NoError(t, err)

	event := events.APIGatewayProxyRequest{Headers: map[string]string{"authorization": "Bearer " + token}}
	id, err := UserID(event, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(5), id)

	_, err = UserID(events.APIGatewayProxyRequest{}, "secret")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = UserID(event, "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
