package handler

import (
	"errors"
	"net/http"
	"peek/backend/internal/database"
	"peek/backend/internal/hub"
	"peek/backend/internal/models"
	"peek/backend/internal/notify"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	errPeekNotFound   = errors.New("peek not found")
	errParentNotFound = errors.New("parent comment not found on this peek")
)

// region --- DTOs ---

// CommentInput is the body of a new comment or reply.
type CommentInput struct {
	Content         string `json:"content" binding:"required" example:"So cute!"`
	ParentCommentID *uint  `json:"parent_comment_id" example:"3"`
}

// CommentResponse is a comment with its nested replies.
type CommentResponse struct {
	ID              uint               `json:"id" example:"4"`
	PeekID          uint               `json:"peek_id" example:"1"`
	UserID          uint               `json:"user_id" example:"2"`
	ParentCommentID *uint              `json:"parent_comment_id,omitempty" example:"3"`
	Author          string             `json:"author" example:"bob"`
	Content         string             `json:"content" example:"So cute!"`
	CreatedAt       time.Time          `json:"created_at"`
	Replies         []*CommentResponse `json:"replies"`
}

// endregion

// ListComments godoc
// @Summary      List comments of a peek
// @Description  Returns the comments as a tree. Roots and replies are ordered oldest first.
// @Tags         comments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Peek ID"
// @Success      200  {array}   CommentResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /peeks/{id}/comments [get]
func ListComments(c *gin.Context) {
	peekID, ok := parseIDParam(c, "id", "Invalid peek ID")
	if !ok {
		return
	}

	var comments []models.Comment
	err := database.DB.WithContext(c.Request.Context()).
		Where("peek_id = ?", peekID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comments"})
		return
	}

	c.JSON(http.StatusOK, buildCommentTree(comments))
}

// CreateComment godoc
// @Summary      Comment on a peek
// @Description  Adds a top-level comment or a reply. A reply's parent must belong to the same peek.
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int           true  "Peek ID"
// @Param        input body      CommentInput  true  "Comment"
// @Success      201   {object}  CommentResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /peeks/{id}/comments [post]
func CreateComment(c *gin.Context) {
	viewerID := currentUserID(c)
	peekID, ok := parseIDParam(c, "id", "Invalid peek ID")
	if !ok {
		return
	}

	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment cannot be empty"})
		return
	}

	ctx := c.Request.Context()
	actor := actorFor(ctx, viewerID)

	var peek models.Peek
	var parent models.Comment
	comment := models.Comment{
		PeekID:          peekID,
		UserID:          viewerID,
		ParentCommentID: input.ParentCommentID,
		Author:          actor.Username,
		Content:         content,
	}

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&peek, peekID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errPeekNotFound
			}
			return err
		}

		if input.ParentCommentID != nil {
			err := tx.Where("id = ? AND peek_id = ?", *input.ParentCommentID, peekID).First(&parent).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errParentNotFound
			}
			if err != nil {
				return err
			}
		}

		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Peek{}).
			Where("id = ?", peekID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error
	})
	switch {
	case errors.Is(err, errPeekNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Peek not found"})
		return
	case errors.Is(err, errParentNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parent comment does not exist on this peek"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	action := notify.Action{
		ActionType: notify.ActionComment,
		Actor:      actor,
		Post:       &notify.PostRef{ID: peek.ID, OwnerID: peek.UserID},
		Comment:    &notify.CommentRef{ID: comment.ID, OwnerID: viewerID, Preview: notify.Preview(content, previewLength)},
	}
	if input.ParentCommentID != nil {
		action.ParentComment = &notify.CommentRef{ID: parent.ID, OwnerID: parent.UserID}
	}
	dispatchAction(ctx, action)

	response := buildCommentResponse(comment)
	events.Broadcast(peek.ID, hub.Event{Type: hub.EventCommentCreated, Payload: response})

	c.JSON(http.StatusCreated, response)
}

func buildCommentResponse(cm models.Comment) *CommentResponse {
	return &CommentResponse{
		ID:              cm.ID,
		PeekID:          cm.PeekID,
		UserID:          cm.UserID,
		ParentCommentID: cm.ParentCommentID,
		Author:          cm.Author,
		Content:         cm.Content,
		CreatedAt:       cm.CreatedAt,
		Replies:         []*CommentResponse{},
	}
}

// buildCommentTree nests replies under their parents, keeping the input order.
// Replies whose parent is missing are shown as roots.
func buildCommentTree(comments []models.Comment) []*CommentResponse {
	nodes := make(map[uint]*CommentResponse, len(comments))
	for _, cm := range comments {
		nodes[cm.ID] = buildCommentResponse(cm)
	}

	roots := []*CommentResponse{}
	for _, cm := range comments {
		node := nodes[cm.ID]
		if cm.ParentCommentID != nil {
			if parent, ok := nodes[*cm.ParentCommentID]; ok && parent != node {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
