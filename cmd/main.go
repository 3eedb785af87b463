package main

import (
	"fmt"
	"os"

	"github.com/annovation/chatbot-backend/internal/chat"
	"github.com/annovation/chatbot-backend/internal/config"
	"github.com/annovation/chatbot-backend/internal/db"
	"github.com/annovation/chatbot-backend/internal/handlers"
	"github.com/annovation/chatbot-backend/internal/logger"
	"github.com/annovation/chatbot-backend/internal/repos"
	"github.com/annovation/chatbot-backend/internal/server"
	"github.com/annovation/chatbot-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"), log)
	if err != nil {
		log.Error("Could not load configuration", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	chatRoomRepo := repos.NewChatRoomRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := services.NewOpenAIClient(cfg.OpenAI, log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	chatService := services.NewChatService(log, chat.Config{
		SystemDirective: cfg.Chat.SystemDirective,
		RecentTurns:     cfg.Chat.RecentTurns,
	}, chatRoomRepo, openaiClient)

	// Handlers
	log.Info("Setting up handlers from main...")
	chatHandler := handlers.NewChatHandler(log, chatService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:          log,
		AllowOrigins: cfg.AllowOrigins,
		ChatHandler:  chatHandler,
	})

	fmt.Printf("Server listening on :%s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
