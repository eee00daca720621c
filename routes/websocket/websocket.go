package websocket

import (
	"github.com/gin-gonic/gin"

	"FitCoachAI/controllers"
	"FitCoachAI/middleware"
	"FitCoachAI/pkg/limiter"
)

func Register(r *gin.Engine, chats controllers.ChatService, l limiter.Limiter, jwtSecret string) {
	r.GET("/ws/chat", middleware.QueryTokenAuth(jwtSecret), middleware.RateLimit(l), controllers.ChatWS(chats))
}
