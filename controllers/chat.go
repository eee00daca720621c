package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"FitCoachAI/models"
	"FitCoachAI/pkg/logger"
	svc "FitCoachAI/pkg/services"
	"FitCoachAI/pkg/store"
)

// ChatService is what the handlers need from services.ChatService.
type ChatService interface {
	Send(ctx context.Context, input string, id *uint) (*svc.ChatResult, error)
	SendStream(ctx context.Context, input string, id *uint, onDelta func(string)) (*svc.ChatResult, error)
	List(ctx context.Context) ([]models.Conversation, error)
	Get(ctx context.Context, id uint) (*models.Conversation, error)
	Delete(ctx context.Context, id uint) error
}

const (
	msgNoInput  = "No input provided"
	msgNotFound = "Chat not found"
	msgDeleted  = "Chat deleted successfully"
)

type chatRequest struct {
	Input string `json:"input"`
	ID    *uint  `json:"id"`
}

// Chat handles POST /chat: one exchange with the coach.
func Chat(chats ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body chatRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgNoInput})
			return
		}

		res, err := chats.Send(c.Request.Context(), body.Input, body.ID)
		if err != nil {
			renderTurnError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"response": res.Response, "id": res.ID})
	}
}

// ChatStream handles POST /chat/stream, the server-sent events flavour of
// Chat. Clients receive "delta" events with partial text and one final
// "done" event carrying {response, id}.
func ChatStream(chats ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body chatRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgNoInput})
			return
		}

		started := false
		res, err := chats.SendStream(c.Request.Context(), body.Input, body.ID, func(delta string) {
			if !started {
				started = true
				c.Writer.Header().Set("Cache-Control", "no-cache")
				c.Writer.Header().Set("X-Accel-Buffering", "no")
			}
			c.SSEvent("delta", delta)
			c.Writer.Flush()
		})
		if err != nil {
			if !started {
				renderTurnError(c, err)
				return
			}
			logger.WithContext(c.Request.Context()).Error("chat stream failed", zap.Error(err))
			c.SSEvent("error", gin.H{"error": "Internal server error"})
			c.Writer.Flush()
			return
		}
		c.SSEvent("done", gin.H{"response": res.Response, "id": res.ID})
		c.Writer.Flush()
	}
}

// renderTurnError maps a chat turn failure to its response. Completion and
// persistence faults go to the error middleware.
func renderTurnError(c *gin.Context, err error) {
	var te *svc.TurnError
	switch {
	case errors.Is(err, svc.ErrMissingInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoInput})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	case errors.As(err, &te) && te.Stage == svc.StageLookup:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load chat", "details": te.Err.Error()})
	default:
		_ = c.Error(err)
		c.Abort()
	}
}

// ListChats handles GET /chats.
func ListChats(chats ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		convs, err := chats.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list chats", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, convs)
	}
}

// GetChat handles GET /chat/:id.
func GetChat(chats ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := chatID(c)
		if !ok {
			return
		}
		conv, err := chats.Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load chat", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, conv)
	}
}

// DeleteChat handles DELETE /chat/:id.
func DeleteChat(chats ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := chatID(c)
		if !ok {
			return
		}
		if err := chats.Delete(c.Request.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete chat", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msgDeleted})
	}
}

// chatID parses the :id path parameter. Ids that are not positive integers
// cannot name a chat, so they answer 404.
func chatID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return 0, false
	}
	return uint(id), true
}

// Health handles GET /health.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
