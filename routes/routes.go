package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"FitCoachAI/controllers"
	"FitCoachAI/middleware"
	"FitCoachAI/pkg/limiter"

	chatRoutes "FitCoachAI/routes/chat"
	websocketRoutes "FitCoachAI/routes/websocket"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Chats     controllers.ChatService
	Limiter   limiter.Limiter
	JWTSecret string
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "FitCoach AI backend running"})
	})
	r.GET("/health", controllers.Health())

	websocketRoutes.Register(r, deps.Chats, deps.Limiter, deps.JWTSecret)

	protected := r.Group("/")
	protected.Use(middleware.BearerAuth(deps.JWTSecret))
	chatRoutes.Register(protected, deps.Chats, deps.Limiter)
}
