package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/annovation/chatbot-backend/internal/handlers"
	"github.com/annovation/chatbot-backend/internal/logger"
	"github.com/annovation/chatbot-backend/internal/middleware"
)

type RouterConfig struct {
	Log          *logger.Logger
	AllowOrigins []string
	ChatHandler  *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	ai := router.Group("/ai/chat")
	{
		ai.GET("/generate", cfg.ChatHandler.Generate)
		ai.GET("/generate-stream", cfg.ChatHandler.GenerateStream)
		ai.POST("/rooms", cfg.ChatHandler.CreateRoom)
		ai.GET("/rooms/:roomId", cfg.ChatHandler.GetRoom)
		ai.GET("/rooms/:roomId/messages", cfg.ChatHandler.ListMessages)
		ai.GET("/rooms/:roomId/generate-stream", cfg.ChatHandler.RunTurnStream)
	}

	return router
}
