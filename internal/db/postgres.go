package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/annovation/chatbot-backend/internal/logger"
	"github.com/annovation/chatbot-backend/internal/types"
	"github.com/annovation/chatbot-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	log.Info("Loading environment variables...")
	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "chatbot", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.ChatRoom{},
		&types.ChatTurn{},
		&types.ChatSummary{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	if err := s.db.Exec(`ALTER TABLE "chat_turn" DROP CONSTRAINT IF EXISTS "fk_chat_turn_room_id"`).Error; err != nil {
		return fmt.Errorf("failed to reset fk_chat_turn_room_id: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "chat_turn"
		ADD CONSTRAINT "fk_chat_turn_room_id"
		FOREIGN KEY ("room_id")
		REFERENCES "chat_room"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("failed to add fk_chat_turn_room_id: %w", err)
	}
	if err := s.db.Exec(`ALTER TABLE "chat_summary" DROP CONSTRAINT IF EXISTS "fk_chat_summary_room_id"`).Error; err != nil {
		return fmt.Errorf("failed to reset fk_chat_summary_room_id: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "chat_summary"
		ADD CONSTRAINT "fk_chat_summary_room_id"
		FOREIGN KEY ("room_id")
		REFERENCES "chat_room"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("failed to add fk_chat_summary_room_id: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
