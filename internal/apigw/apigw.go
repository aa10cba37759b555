// Package apigw holds the API Gateway plumbing shared by the Lambda entry points.
package apigw

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"peek/backend/pkg/jwt"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

var ErrUnauthorized = errors.New("unauthorized")

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
	"Content-Type":                 "application/json",
}

// Respond encodes body as JSON with the CORS headers every response carries.
func Respond(status int, body any) (events.APIGatewayProxyResponse, error) {
	headers := make(map[string]string, len(corsHeaders))
	for k, v := range corsHeaders {
		headers[k] = v
	}

	var payload string
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Headers: headers},
				fmt.Errorf("failed to marshal response: %w", err)
		}
		payload = string(b)
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: payload}, nil
}

// Error responds with {"error": msg}.
func Error(status int, msg string) (events.APIGatewayProxyResponse, error) {
	return Respond(status, map[string]string{"error": msg})
}

// Preflight answers an OPTIONS request.
func Preflight() (events.APIGatewayProxyResponse, error) {
	return Respond(http.StatusOK, map[string]string{"message": "ok"})
}

// UserID identifies the caller. JWT authorizer claims win; otherwise the bearer token
// is verified with secret.
func UserID(event events.APIGatewayProxyRequest, secret string) (uint, error) {
	if sub, ok := authorizerSubject(event.RequestContext.Authorizer); ok {
		id, err := strconv.ParseUint(sub, 10, 32)
		if err != nil || id == 0 {
			return 0, fmt.Errorf("%w: invalid sub %q", ErrUnauthorized, sub)
		}
		return uint(id), nil
	}

	header := event.Headers["Authorization"]
	if header == "" {
		header = event.Headers["authorization"]
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return 0, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	id, err := jwt.ParseToken(token, secret)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return id, nil
}

func authorizerSubject(authorizer map[string]interface{}) (string, bool) {
	j, ok := authorizer["jwt"].(map[string]interface{})
	if !ok {
		return "", false
	}
	claims, ok := j["claims"].(map[string]interface{})
	if !ok {
		return "", false
	}
	sub, ok := claims["sub"].(string)
	return sub, ok && sub != ""
}
