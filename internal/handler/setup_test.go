package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"peek/backend/internal/auth"
	"peek/backend/internal/config"
	"peek/backend/internal/database"
	"peek/backend/internal/models"
	"peek/backend/internal/notify"
	"peek/backend/pkg/jwt"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

// recordingDispatcher keeps every dispatched action.
type recordingDispatcher struct {
	mu      sync.Mutex
	actions []notify.Action
}

func (d *recordingDispatcher) Dispatch(_ context.Context, a notify.Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = append(d.actions, a)
	return nil
}

func (d *recordingDispatcher) all() []notify.Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Action(nil), d.actions...)
}

type fakeImageStore struct {
	uploaded []string
}

func (f *fakeImageStore) UploadImage(_ context.Context, file *multipart.FileHeader) (string, error) {
	f.uploaded = append(f.uploaded, file.Filename)
	return "http://images.test/peeks/" + file.Filename, nil
}

// setupTest points the package at a fresh in-memory database and returns the recorder
// that receives dispatched actions.
func setupTest(t *testing.T, maxBesties int) *recordingDispatcher {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every statement must see the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	database.DB = db
	config.AppConfig = &config.Config{JWTSecret: testSecret, MaxBesties: maxBesties}

	rec := &recordingDispatcher{}
	SetDispatcher(rec)
	SetImageStore(nil)
	SetNotifier(nil)

	t.Cleanup(func() {
		SetDispatcher(nil)
		SetImageStore(nil)
		SetNotifier(nil)
		_ = sqlDB.Close()
	})
	return rec
}

func newTestRouter() *gin.Engine {
	r := gin.New()
	r.POST("/auth/register", RegisterUser)
	r.POST("/auth/login", LoginUser)
	r.GET("/push/vapid-public-key", GetVAPIDPublicKey)

	a := r.Group("/", auth.AuthMiddleware())
	a.GET("/users", SearchUsers)
	a.GET("/users/me", GetMe)
	a.PUT("/users/me", UpdateMe)
	a.GET("/users/:id", GetUserByID)
	a.POST("/users/:id/request", SendRequest)
	a.POST("/users/:id/accept", AcceptRequest)
	a.POST("/users/:id/decline", DeclineRequest)
	a.POST("/users/:id/remove", RemoveRelation)
	a.GET("/besties", ListBesties)
	a.POST("/besties/request", RequestBestieByEmail)
	a.POST("/peeks", CreatePeek)
	a.GET("/peeks", ListPeeks)
	a.GET("/peeks/:id", GetPeekByID)
	a.DELETE("/peeks/:id", DeletePeek)
	a.GET("/peeks/:id/comments", ListComments)
	a.POST("/peeks/:id/comments", CreateComment)
	a.POST("/peeks/:id/love", ToggleLove)
	a.GET("/peeks/:id/loves", GetLoves)
	a.POST("/push/subscribe", SaveSubscription)
	a.POST("/push/unsubscribe", Unsubscribe)
	a.GET("/push/status", SubscriptionStatus)
	a.POST("/notifications/trigger", TriggerNotification)
	return r
}

func createUser(t *testing.T, name string) models.User {
	t.Helper()
	user := models.User{
		UserName:     name,
		Email:        name + "@example.com",
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, database.DB.Create(&user).Error)
	return user
}

func makeBesties(t *testing.T, a, b models.User) {
	t.Helper()
	require.NoError(t, database.DB.Create(&[]models.Bestie{
		{UserID: a.ID, BestieID: b.ID, Status: models.StatusAccepted},
		{UserID: b.ID, BestieID: a.ID, Status: models.StatusAccepted},
	}).Error)
}

func createPeek(t *testing.T, owner models.User, title string) models.Peek {
	t.Helper()
	peek := models.Peek{UserID: owner.ID, Title: title, ImageURL: "http://images.test/" + title}
	require.NoError(t, database.DB.Create(&peek).Error)
	return peek
}

func tokenFor(t *testing.T, u models.User) string {
	t.Helper()
	token, err := jwt.GenerateToken(u.ID)
	require.NoError(t, err)
	return token
}

func doJSON(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// doMultipart posts fields and, when filename is set, one image part with the given content type.
func doMultipart(r *gin.Engine, path, token string, fields map[string]string, filename, contentType string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, _ := mw.CreatePart(h)
		_, _ = part.Write([]byte("fake image bytes"))
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
