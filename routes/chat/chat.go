package chat

import (
	"github.com/gin-gonic/gin"

	"FitCoachAI/controllers"
	"FitCoachAI/middleware"
	"FitCoachAI/pkg/limiter"
)

func Register(rg *gin.RouterGroup, chats controllers.ChatService, l limiter.Limiter) {
	limited := rg.Group("/")
	limited.Use(middleware.RateLimit(l))
	limited.POST("/chat", controllers.Chat(chats))
	limited.POST("/chat/stream", controllers.ChatStream(chats))

	rg.GET("/chats", controllers.ListChats(chats))
	rg.GET("/chat/:id", controllers.GetChat(chats))
	rg.DELETE("/chat/:id", controllers.DeleteChat(chats))
}
