package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/annovation/chatbot-backend/internal/chat"
	"github.com/annovation/chatbot-backend/internal/logger"
	"github.com/annovation/chatbot-backend/internal/repos"
	"github.com/annovation/chatbot-backend/internal/types"
)

var (
	ErrRoomNotFound = errors.New("chat room not found")
	ErrUpstream     = errors.New("model stream failed")
	ErrCommit       = errors.New("room commit failed")
)

type ChatService interface {
	CreateRoom(ctx context.Context) (*types.ChatRoom, error)
	GetRoom(ctx context.Context, roomID uuid.UUID) (*types.ChatRoom, error)
	ListTurns(ctx context.Context, roomID uuid.UUID) ([]*types.ChatTurn, error)
	RunTurn(ctx context.Context, roomID uuid.UUID, userMessage string, onDelta func(delta string)) (*types.ChatTurn, error)
	Ask(ctx context.Context, message string) (string, error)
	AskStream(ctx context.Context, message string, onDelta func(delta string)) (string, error)
}

type chatService struct {
	log   *logger.Logger
	cfg   chat.Config
	rooms repos.ChatRoomRepo
	ai    AIClient

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewChatService(log *logger.Logger, cfg chat.Config, rooms repos.ChatRoomRepo, ai AIClient) ChatService {
	return &chatService{
		log:   log.With("service", "ChatService"),
		cfg:   cfg,
		rooms: rooms,
		ai:    ai,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// roomLock returns the mutex serializing turns of one room. Turns on
// different rooms proceed in parallel.
func (s *chatService) roomLock(roomID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[roomID] = l
	}
	return l
}

func (s *chatService) CreateRoom(ctx context.Context) (*types.ChatRoom, error) {
	room, err := s.rooms.Create(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommit, err)
	}
	s.log.Info("Chat room created", "room_id", room.ID)
	return room, nil
}

func (s *chatService) GetRoom(ctx context.Context, roomID uuid.UUID) (*types.ChatRoom, error) {
	room, err := s.rooms.GetByID(ctx, nil, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (s *chatService) ListTurns(ctx context.Context, roomID uuid.UUID) ([]*types.ChatTurn, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return room.Turns, nil
}

// RunTurn handles one turn end-to-end: assemble the prompt, stream the model
// response while forwarding every fragment to onDelta, append the completed
// turn, run the summarization policy, commit. The whole sequence holds the
// room lock so concurrent turns on one room cannot interleave appends.
//
// If the stream fails before its completion event nothing is persisted; a
// partial response never reaches the turn sequence.
func (s *chatService) RunTurn(ctx context.Context, roomID uuid.UUID, userMessage string, onDelta func(delta string)) (*types.ChatTurn, error) {
	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	messages := chat.AssembleContext(s.cfg, room, userMessage)

	full, err := s.ai.Stream(ctx, messages, onDelta)
	if err != nil {
		s.log.Warn("Model stream failed, discarding turn", "room_id", roomID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	turn := room.AddTurn(userMessage, full)
	if seg := chat.MaybeSummarize(s.cfg, room); seg != nil {
		room.AddSummary(seg)
		s.log.Info("Summary segment cut",
			"room_id", roomID,
			"start_index", seg.StartIndex,
			"end_index", seg.EndIndex,
		)
	}

	if err := s.rooms.CommitRoom(ctx, nil, room); err != nil {
		s.log.Error("Room commit failed", "room_id", roomID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCommit, err)
	}
	return turn, nil
}

// Ask is a stateless one-off completion: no room, no context, nothing
// persisted.
func (s *chatService) Ask(ctx context.Context, message string) (string, error) {
	text, err := s.ai.Complete(ctx, []chat.Message{{Role: chat.RoleUser, Content: message}})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return text, nil
}

// AskStream is the streaming variant of Ask: fragments go to onDelta live,
// nothing is persisted.
func (s *chatService) AskStream(ctx context.Context, message string, onDelta func(delta string)) (string, error) {
	text, err := s.ai.Stream(ctx, []chat.Message{{Role: chat.RoleUser, Content: message}}, onDelta)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return text, nil
}
