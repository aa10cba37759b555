package handler

import (
	"context"
	"errors"
	"net/http"
	"peek/backend/internal/database"
	"peek/backend/internal/logging"
	"peek/backend/internal/models"
	"peek/backend/internal/notify"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const previewLength = notify.PreviewLength

// region --- DTOs ---

// PeekAuthor is the public part of the peek's author.
type PeekAuthor struct {
	ID        uint   `json:"id" example:"1"`
	UserName  string `json:"user_name" example:"ann"`
	Email     string `json:"email" example:"ann@example.com"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// PeekResponse is a peek as returned by the API.
type PeekResponse struct {
	ID           uint       `json:"id" example:"1"`
	Title        string     `json:"title" example:"Sunset"`
	Content      string     `json:"content" example:"Look at this"`
	ImageURL     string     `json:"image_url" example:"http://localhost:9000/peeks/images/x.jpg"`
	LikeCount    int64      `json:"like_count"`
	CommentCount int64      `json:"comment_count"`
	CreatedAt    time.Time  `json:"created_at"`
	Author       PeekAuthor `json:"author"`
}

// endregion

// CreatePeek godoc
// @Summary      Share a peek
// @Description  Uploads the image and creates a peek. Besties of the author are notified.
// @Tags         peeks
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        title   formData  string  true   "Title"
// @Param        content formData  string  false  "Caption"
// @Param        image   formData  file    true   "Image"
// @Success      201  {object}  PeekResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /peeks [post]
func CreatePeek(c *gin.Context) {
	viewerID := currentUserID(c)
	title := strings.TrimSpace(c.PostForm("title"))
	content := strings.TrimSpace(c.PostForm("content"))
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image is required"})
		return
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image uploads are allowed"})
		return
	}
	if images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image storage is not configured"})
		return
	}

	ctx := c.Request.Context()
	imageURL, err := images.UploadImage(ctx, file)
	if err != nil {
		logging.Error("Failed to upload peek image", zap.Uint("user_id", viewerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image"})
		return
	}

	peek := models.Peek{
		UserID:   viewerID,
		Title:    title,
		Content:  content,
		ImageURL: imageURL,
	}
	if err := database.DB.WithContext(ctx).Create(&peek).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create peek"})
		return
	}
	database.DB.WithContext(ctx).First(&peek.User, viewerID)

	preview := content
	if preview == "" {
		preview = title
	}
	dispatchAction(ctx, notify.Action{
		ActionType: notify.ActionNewPost,
		Actor:      notify.Actor{ID: viewerID, Username: peek.User.DisplayName()},
		Post:       &notify.PostRef{ID: peek.ID, OwnerID: viewerID, Preview: notify.Preview(preview, previewLength)},
	})

	c.JSON(http.StatusCreated, buildPeekResponse(peek))
}

// ListPeeks godoc
// @Summary      List peeks
// @Description  Lists peeks newest first with pagination, optionally only those of one user.
// @Tags         peeks
// @Produce      json
// @Security     BearerAuth
// @Param        user_id query     int  false  "Author filter"
// @Param        page    query     int  false  "Page number" default(1)
// @Param        limit   query     int  false  "Items per page" default(10)
// @Success      200     {object}  PaginatedResponse[PeekResponse]
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /peeks [get]
func ListPeeks(c *gin.Context) {
	page := pageFromQuery(c)

	ctx := c.Request.Context()
	query := database.DB.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		query = query.Where("user_id = ?", userID)
	}

	result, err := paginate[models.Peek](query, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve peeks"})
		return
	}

	if err := loadAuthors(ctx, result.Data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve peek authors"})
		return
	}

	peeks := make([]PeekResponse, 0, len(result.Data))
	for _, p := range result.Data {
		peeks = append(peeks, buildPeekResponse(p))
	}
	c.JSON(http.StatusOK, newPage(peeks, result.Meta.TotalItems, page))
}

// GetPeekByID godoc
// @Summary      Get peek by ID
// @Tags         peeks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Peek ID"
// @Success      200  {object}  PeekResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /peeks/{id} [get]
func GetPeekByID(c *gin.Context) {
	peekID, ok := parseIDParam(c, "id", "Invalid peek ID")
	if !ok {
		return
	}

	var peek models.Peek
	if err := database.DB.WithContext(c.Request.Context()).Preload("User").First(&peek, peekID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Peek not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve peek"})
		return
	}

	c.JSON(http.StatusOK, buildPeekResponse(peek))
}

// DeletePeek godoc
// @Summary      Delete a peek
// @Description  Deletes one of the caller's peeks together with its comments and loves.
// @Tags         peeks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Peek ID"
// @Success      200  {object}  map[string]string "{"message": "Peek deleted"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /peeks/{id} [delete]
func DeletePeek(c *gin.Context) {
	viewerID := currentUserID(c)
	peekID, ok := parseIDParam(c, "id", "Invalid peek ID")
	if !ok {
		return
	}

	var peek models.Peek
	if err := database.DB.First(&peek, peekID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Peek not found"})
		return
	}
	if peek.UserID != viewerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own peeks"})
		return
	}

	err := database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("peek_id = ?", peek.ID).Delete(&models.Love{}).Error; err != nil {
			return err
		}
		if err := tx.Where("peek_id = ?", peek.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&peek).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete peek"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Peek deleted"})
}

// loadAuthors fills the User of every peek with a single query.
func loadAuthors(ctx context.Context, peeks []models.Peek) error {
	if len(peeks) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(peeks))
	for _, p := range peeks {
		ids = append(ids, p.UserID)
	}

	var users []models.User
	if err := database.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return err
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range peeks {
		peeks[i].User = byID[peeks[i].UserID]
	}
	return nil
}

func buildPeekResponse(p models.Peek) PeekResponse {
	return PeekResponse{
		ID:           p.ID,
		Title:        p.Title,
		Content:      p.Content,
		ImageURL:     p.ImageURL,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt,
		Author: PeekAuthor{
			ID:        p.User.ID,
			UserName:  p.User.DisplayName(),
			Email:     p.User.Email,
			AvatarURL: p.User.AvatarURL,
		},
	}
}
