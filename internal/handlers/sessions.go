package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartinprabhu/newgpt/internal/session"
	"github.com/smartinprabhu/newgpt/internal/storage"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// SessionReader captures the session operations required by the session
// handlers.
type SessionReader interface {
	Get(ctx context.Context, sessionID string) (*types.SessionContext, error)
	Delete(ctx context.Context, sessionID string) bool
}

var _ SessionReader = (*session.Manager)(nil)

// GetSessionHandler handles GET /api/session/:session_id.
func GetSessionHandler(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")

		sess, err := sessions.Get(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Session %s not found or expired", sessionID)})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to load session: %v", err)})
			return
		}

		c.JSON(http.StatusOK, sess)
	}
}

// DeleteSessionHandler handles DELETE /api/session/:session_id. Deleting an
// absent session succeeds; the outcome is the same either way.
func DeleteSessionHandler(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")
		sessions.Delete(c.Request.Context(), sessionID)
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"session_id": sessionID,
		})
	}
}
