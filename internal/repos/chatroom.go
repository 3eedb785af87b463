package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/annovation/chatbot-backend/internal/logger"
	"github.com/annovation/chatbot-backend/internal/types"
)

type ChatRoomRepo interface {
	Create(ctx context.Context, tx *gorm.DB) (*types.ChatRoom, error)
	GetByID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID) (*types.ChatRoom, error)
	CommitRoom(ctx context.Context, tx *gorm.DB, room *types.ChatRoom) error
}

type chatRoomRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRoomRepo(db *gorm.DB, baseLog *logger.Logger) ChatRoomRepo {
	repoLog := baseLog.With("repo", "ChatRoomRepo")
	return &chatRoomRepo{db: db, log: repoLog}
}

func (cr *chatRoomRepo) Create(ctx context.Context, tx *gorm.DB) (*types.ChatRoom, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	room := &types.ChatRoom{ID: uuid.New()}
	if err := transaction.WithContext(ctx).Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

// GetByID loads the room with its turns and summaries in their recorded
// order. Returns gorm.ErrRecordNotFound if the room does not exist.
func (cr *chatRoomRepo) GetByID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID) (*types.ChatRoom, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var room types.ChatRoom
	if err := transaction.WithContext(ctx).
		Preload("Turns", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq_index ASC")
		}).
		Preload("Summaries", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_index ASC")
		}).
		First(&room, "id = ?", roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// CommitRoom persists a turn and the summary segment it may have triggered
// as one transaction. Entities with a zero ID are treated as unsaved; a turn
// and its summary never land separately.
func (cr *chatRoomRepo) CommitRoom(ctx context.Context, tx *gorm.DB, room *types.ChatRoom) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	return transaction.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		for _, turn := range room.Turns {
			if turn.ID != uuid.Nil {
				continue
			}
			turn.ID = uuid.New()
			turn.RoomID = room.ID
			if err := txn.Omit("Room").Create(turn).Error; err != nil {
				turn.ID = uuid.Nil
				return err
			}
		}
		for _, summary := range room.Summaries {
			if summary.ID != uuid.Nil {
				continue
			}
			summary.ID = uuid.New()
			summary.RoomID = room.ID
			if err := txn.Omit("Room").Create(summary).Error; err != nil {
				summary.ID = uuid.Nil
				return err
			}
		}
		return txn.Model(&types.ChatRoom{}).
			Where("id = ?", room.ID).
			Update("updated_at", time.Now()).Error
	})
}
