package handler

import (
	"io"
	"net/http"
	"peek/backend/internal/database"
	"peek/backend/internal/hub"
	"peek/backend/internal/models"
	"time"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 25 * time.Second

// StreamPeekEvents godoc
// @Summary      Live events of a peek
// @Description  Server-sent events stream of new comments and love counts for one peek.
// @Tags         peeks
// @Produce      text/event-stream
// @Param        id   path  int  true  "Peek ID"
// @Success      200
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /peeks/{id}/events [get]
func StreamPeekEvents(c *gin.Context) {
	peekID, ok := parseIDParam(c, "id", "Invalid peek ID")
	if !ok {
		return
	}
	var peek models.Peek
	if err := database.DB.WithContext(c.Request.Context()).First(&peek, peekID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Peek not found"})
		return
	}

	client := make(hub.Client, 16)
	events.Subscribe(peekID, client)
	defer events.Unsubscribe(peekID, client)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, open := <-client:
			if !open {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
