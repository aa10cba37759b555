package handler

import (
	"fmt"
	"net/http"
	"peek/backend/internal/models"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	setupTest(t, 5)
	r := newTestRouter()

	w := doJSON(r, http.MethodPost, "/auth/register", "", gin.H{"user_name": "ann", "email": "Ann@Example.com", "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, decode[map[string]string](t, w)["token"])

	w = doJSON(r, http.MethodPost, "/auth/register", "", gin.H{"user_name": "ann2", "email": "ann@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/register", "", gin.H{"user_name": "bob", "email": "bob@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", "", gin.H{"email": "ann@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", "", gin.H{"email": " ANN@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[map[string]string](t, w)["token"]

	me := decode[PrivateUserResponse](t, doJSON(r, http.MethodGet, "/users/me", token, nil))
	assert.Equal(t, "ann", me.UserName)
	assert.Equal(t, "ann@example.com", me.Email)
	assert.Equal(t, 5, me.MaxBesties)
	assert.Zero(t, me.BestiesCount)
}

func TestUpdateMe(t *testing.T) {
	setupTest(t, 5)
	r := newTestRouter()
	ann := createUser(t, "ann")

	w := doJSON(r, http.MethodPut, "/users/me", tokenFor(t, ann), gin.H{"user_name": "  annie ", "avatar_url": "https://cdn.example.com/a.png"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode[PrivateUserResponse](t, w)
	assert.Equal(t, "annie", me.UserName)
	assert.Equal(t, "https://cdn.example.com/a.png", me.AvatarURL)

	w = doJSON(r, http.MethodPut, "/users/me", tokenFor(t, ann), gin.H{"user_name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchAndGetUser(t *testing.T) {
	setupTest(t, 5)
	r := newTestRouter()
	ann, bob, cat := createUser(t, "ann"), createUser(t, "bob"), createUser(t, "cat")
	makeBesties(t, ann, bob)

	all := decode[PaginatedResponse[PublicUserResponse]](t, doJSON(r, http.MethodGet, "/users", tokenFor(t, ann), nil))
	assert.EqualValues(t, 2, all.Meta.TotalItems, "the caller is left out")

	found := decode[PaginatedResponse[PublicUserResponse]](t, doJSON(r, http.MethodGet, "/users?q=BO", tokenFor(t, ann), nil))
	require.Len(t, found.Data, 1)
	assert.Equal(t, bob.ID, found.Data[0].ID)
	assert.EqualValues(t, 1, found.Data[0].BestiesCount)
	require.NotNil(t, found.Data[0].RelationToMe)
	assert.Equal(t, models.StatusAccepted, *found.Data[0].RelationToMe)

	w := doJSON(r, http.MethodGet, fmt.Sprintf("/users/%d", cat.ID), tokenFor(t, ann), nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[PublicUserResponse](t, w)
	assert.Equal(t, "cat", profile.UserName)
	assert.Nil(t, profile.RelationToMe)
	assert.Nil(t, profile.MeToRelation)

	w = doJSON(r, http.MethodGet, "/users/999", tokenFor(t, ann), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
