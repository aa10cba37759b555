package handler

import (
	"fmt"
	"net/http"
	"peek/backend/internal/database"
	"peek/backend/internal/models"
	"peek/backend/internal/notify"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePeek(t *testing.T) {
	rec := setupTest(t, 5)
	r := newTestRouter()
	ann := createUser(t, "ann")
	token := tokenFor(t, ann)

	// Without an image store uploads are refused outright.
	w := doMultipart(r, "/peeks", token, map[string]string{"title": "Sunset"}, "sunset.png", "image/png")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	store := &fakeImageStore{}
	SetImageStore(store)

	w = doMultipart(r, "/peeks", token, map[string]string{"content": "no title"}, "sunset.png", "image/png")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doMultipart(r, "/peeks", token, map[string]string{"title": "Sunset"}, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doMultipart(r, "/peeks", token, map[string]string{"title": "Sunset"}, "notes.txt", "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.uploaded)

	caption := strings.Repeat("a", 80)
	w = doMultipart(r, "/peeks", token, map[string]string{"title": "Sunset", "content": caption}, "sunset.png", "image/png")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	peek := decode[PeekResponse](t, w)
	assert.Equal(t, "Sunset", peek.Title)
	assert.Equal(t, "http://images.test/peeks/sunset.png", peek.ImageURL)
	assert.Equal(t, ann.ID, peek.Author.ID)
	assert.Equal(t, "ann", peek.Author.UserName)
	assert.Equal(t, []string{"sunset.png"}, store.uploaded)

	actions := rec.all()
	require.Len(t, actions, 1)
	assert.Equal(t, notify.ActionNewPost, actions[0].ActionType)
	assert.Equal(t, ann.ID, actions[0].Actor.ID)
	assert.Equal(t, peek.ID, actions[0].Post.ID)
	assert.Equal(t, ann.ID, actions[0].Post.OwnerID)
	assert.Equal(t, notify.Preview(caption, previewLength), actions[0].Post.Preview)
}

func TestCreatePeekPreviewFallsBackToTitle(t *testing.T) {
	rec := setupTest(t, 5)
	r := newTestRouter()
	SetImageStore(&fakeImageStore{})
	ann := createUser(t, "ann")

	w := doMultipart(r, "/peeks", tokenFor(t, ann), map[string]string{"title": "Coffee"}, "c.jpg", "image/jpeg")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	actions := rec.all()
	require.Len(t, actions, 1)
	assert.Equal(t, "Coffee", actions[0].Post.Preview)
}

func TestListPeeks(t *testing.T) {
	setupTest(t, 5)
	r := newTestRouter()
	ann, bob := createUser(t, "ann"), createUser(t, "bob")

	base := time.Now().Add(-time.Hour)
	for i, owner := range []models.User{ann, bob, ann} {
		p := models.Peek{UserID: owner.ID, Title: fmt.Sprintf("p%d", i), ImageURL: "x"}
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, database.DB.Create(&p).Error)
	}

	page := decode[PaginatedResponse[PeekResponse]](t, doJSON(r, http.MethodGet, "/peeks?limit=2", tokenFor(t, bob), nil))
	assert.EqualValues(t, 3, page.Meta.TotalItems)
	assert.Equal(t, 2, page.Meta.TotalPages)
	assert.True(t, page.Meta.HasNext)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "p2", page.Data[0].Title)
	assert.Equal(t, "p1", page.Data[1].Title)
	assert.Equal(t, "bob", page.Data[1].Author.UserName)

	second := decode[PaginatedResponse[PeekResponse]](t, doJSON(r, http.MethodGet, "/peeks?limit=2&page=2", tokenFor(t, bob), nil))
	require.Len(t, second.Data, 1)
	assert.False(t, second.Meta.HasNext)
	assert.Equal(t, "p0", second.Data[0].Title)

	mine := decode[PaginatedResponse[PeekResponse]](t, doJSON(r, http.MethodGet, fmt.Sprintf("/peeks?user_id=%d", ann.ID), tokenFor(t, bob), nil))
	assert.EqualValues(t, 2, mine.Meta.TotalItems)
	for _, p := range mine.Data {
		assert.Equal(t, ann.ID, p.Author.ID)
	}

	w := doJSON(r, http.MethodGet, "/peeks?user_id=ann", tokenFor(t, bob), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAndDeletePeek(t *testing.T) {
	setupTest(t, 5)
	r := newTestRouter()
	ann, bob := createUser(t, "ann"), createUser(t, "bob")
	peek := createPeek(t, ann, "mine")
	require.NoError(t, database.DB.Create(&models.Love{PeekID: peek.ID, UserID: bob.ID}).Error)
	require.NoError(t, database.DB.Create(&models.Comment{PeekID: peek.ID, UserID: bob.ID, Author: "bob", Content: "hi"}).Error)

	w := doJSON(r, http.MethodGet, fmt.Sprintf("/peeks/%d", peek.ID), tokenFor(t, bob), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ann", decode[PeekResponse](t, w).Author.UserName)

	w = doJSON(r, http.MethodGet, "/peeks/999", tokenFor(t, bob), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodDelete, fmt.Sprintf("/peeks/%d", peek.ID), tokenFor(t, bob), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodDelete, fmt.Sprintf("/peeks/%d", peek.ID), tokenFor(t, ann), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var loves, comments int64
	database.DB.Model(&models.Love{}).Where("peek_id = ?", peek.ID).Count(&loves)
	database.DB.Model(&models.Comment{}).Where("peek_id = ?", peek.ID).Count(&comments)
	assert.Zero(t, loves)
	assert.Zero(t, comments)

	w = doJSON(r, http.MethodGet, fmt.Sprintf("/peeks/%d", peek.ID), tokenFor(t, ann), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
