package handler

import (
	"context"
	"net/http"
	"peek/backend/internal/database"
	"peek/backend/internal/logging"
	"peek/backend/internal/models"
	"peek/backend/pkg/jwt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	UserName string `json:"user_name" binding:"required" example:"ann"`
	Email    string `json:"email" binding:"required,email" example:"ann@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"password123"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Email    string `json:"email" binding:"required" example:"ann@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// UpdateProfileInput holds the editable profile fields.
type UpdateProfileInput struct {
	UserName  *string `json:"user_name" example:"ann"`
	AvatarURL *string `json:"avatar_url" example:"https://cdn.example.com/a.png"`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID           uint                 `json:"id" example:"1"`
	UserName     string               `json:"user_name" example:"ann"`
	AvatarURL    string               `json:"avatar_url,omitempty"`
	BestiesCount int64                `json:"besties_count"`
	RelationToMe *models.BestieStatus `json:"relation_to_me,omitempty"`
	MeToRelation *models.BestieStatus `json:"me_to_relation,omitempty"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	ID           uint   `json:"id" example:"1"`
	UserName     string `json:"user_name" example:"ann"`
	Email        string `json:"email" example:"ann@example.com"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	BestiesCount int64  `json:"besties_count"`
	MaxBesties   int    `json:"max_besties"`
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// endregion

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := normalizeEmail(input.Email)

	var existingUser models.User
	if err := database.DB.Where("email = ?", email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		UserName:     strings.TrimSpace(input.UserName),
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := database.DB.Create(&user).Error; err != nil {
		logging.Error("Failed to create user", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := database.DB.Where("email = ?", normalizeEmail(input.Email)).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// endregion

// region --- User Handlers ---

// SearchUsers godoc
// @Summary      Search for users
// @Description  Searches for users by user name with pagination. The caller is left out.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q     query     string  false  "Search query for user name"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedResponse[PublicUserResponse]
// @Failure      401   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /users [get]
func SearchUsers(c *gin.Context) {
	viewerID := currentUserID(c)
	page := pageFromQuery(c)

	query := database.DB.Where("id <> ?", viewerID).Order("id")
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		query = query.Where("LOWER(user_name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	result, err := paginate[models.User](query, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	users := make([]PublicUserResponse, 0, len(result.Data))
	for _, user := range result.Data {
		users = append(users, buildPublicUserResponse(c.Request.Context(), user, viewerID))
	}
	c.JSON(http.StatusOK, newPage(users, result.Meta.TotalItems, page))
}

// GetUserByID godoc
// @Summary      Get user by ID
// @Description  Retrieves the public profile for a specific user by their ID, including bestie status.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func GetUserByID(c *gin.Context) {
	viewerID := currentUserID(c)
	targetUserID, ok := parseIDParam(c, "id", "Invalid user ID")
	if !ok {
		return
	}

	if viewerID == targetUserID {
		GetMe(c)
		return
	}

	var targetUser models.User
	if err := database.DB.First(&targetUser, targetUserID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, buildPublicUserResponse(c.Request.Context(), targetUser, viewerID))
}

// GetMe godoc
// @Summary      Get current user's info
// @Description  Retrieves the private profile for the currently authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func GetMe(c *gin.Context) {
	var user models.User
	if err := database.DB.First(&user, currentUserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, buildPrivateUserResponse(c.Request.Context(), user))
}

// UpdateMe godoc
// @Summary      Update current user's profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UpdateProfileInput true "Profile fields"
// @Success      200  {object}  PrivateUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [put]
func UpdateMe(c *gin.Context) {
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := database.DB.First(&user, currentUserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	updates := map[string]interface{}{}
	if input.UserName != nil {
		name := strings.TrimSpace(*input.UserName)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User name cannot be empty"})
			return
		}
		updates["user_name"] = name
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*input.AvatarURL)
	}
	if len(updates) > 0 {
		if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
		database.DB.First(&user, user.ID)
	}

	c.JSON(http.StatusOK, buildPrivateUserResponse(c.Request.Context(), user))
}

// endregion

// region --- Helpers ---

func buildPublicUserResponse(ctx context.Context, targetUser models.User, viewerID uint) PublicUserResponse {
	count, _ := besties().AcceptedCount(ctx, targetUser.ID)

	var relationToMe, meToRelation models.Bestie
	var relationToMeStatus, meToRelationStatus *models.BestieStatus

	err := database.DB.WithContext(ctx).Where("user_id = ? AND bestie_id = ?", targetUser.ID, viewerID).First(&relationToMe).Error
	if err == nil {
		relationToMeStatus = &relationToMe.Status
	}

	err = database.DB.WithContext(ctx).Where("user_id = ? AND bestie_id = ?", viewerID, targetUser.ID).First(&meToRelation).Error
	if err == nil {
		meToRelationStatus = &meToRelation.Status
	}

	return PublicUserResponse{
		ID:           targetUser.ID,
		UserName:     targetUser.DisplayName(),
		AvatarURL:    targetUser.AvatarURL,
		BestiesCount: count,
		RelationToMe: relationToMeStatus,
		MeToRelation: meToRelationStatus,
	}
}

func buildPrivateUserResponse(ctx context.Context, user models.User) PrivateUserResponse {
	count, _ := besties().AcceptedCount(ctx, user.ID)

	return PrivateUserResponse{
		ID:           user.ID,
		UserName:     user.DisplayName(),
		Email:        user.Email,
		AvatarURL:    user.AvatarURL,
		BestiesCount: count,
		MaxBesties:   maxBesties(),
	}
}

// endregion
