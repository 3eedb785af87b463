package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/annovation/chatbot-backend/internal/logger"
	"github.com/annovation/chatbot-backend/internal/services"
	"github.com/annovation/chatbot-backend/internal/types"
)

const defaultAskMessage = "Tell me a joke"

type ChatHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewChatHandler(log *logger.Logger, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		log:         log.With("handler", "ChatHandler"),
		chatService: chatService,
	}
}

type RoomResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TurnResponse struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"room_id"`
	SeqIndex    int       `json:"seq_index"`
	UserMessage string    `json:"user_message"`
	BotMessage  string    `json:"bot_message"`
	CreatedAt   time.Time `json:"created_at"`
}

func roomResponseFrom(room *types.ChatRoom) RoomResponse {
	return RoomResponse{
		ID:        room.ID,
		Title:     room.Title,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func turnResponsesFrom(turns []*types.ChatTurn) []TurnResponse {
	out := make([]TurnResponse, 0, len(turns))
	for _, turn := range turns {
		out = append(out, TurnResponse{
			ID:          turn.ID,
			RoomID:      turn.RoomID,
			SeqIndex:    turn.SeqIndex,
			UserMessage: turn.UserMessage,
			BotMessage:  turn.BotMessage,
			CreatedAt:   turn.CreatedAt,
		})
	}
	return out
}

func statusFromErr(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrRoomNotFound):
		return http.StatusNotFound, "room_not_found"
	case errors.Is(err, services.ErrUpstream):
		return http.StatusBadGateway, "model_upstream_failed"
	case errors.Is(err, services.ErrCommit):
		return http.StatusInternalServerError, "room_commit_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *ChatHandler) CreateRoom(c *gin.Context) {
	room, err := h.chatService.CreateRoom(c.Request.Context())
	if err != nil {
		h.log.Error("CreateRoom failed", "error", err)
		status, code := statusFromErr(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, roomResponseFrom(room))
}

func (h *ChatHandler) GetRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_room_id", err)
		return
	}
	room, err := h.chatService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status, code := statusFromErr(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, gin.H{
		"room":     roomResponseFrom(room),
		"messages": turnResponsesFrom(room.Turns),
	})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_room_id", err)
		return
	}
	turns, err := h.chatService.ListTurns(c.Request.Context(), roomID)
	if err != nil {
		status, code := statusFromErr(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, gin.H{"messages": turnResponsesFrom(turns)})
}

// Generate is the stateless one-off completion endpoint; nothing is
// persisted and no room context is involved.
func (h *ChatHandler) Generate(c *gin.Context) {
	message := c.DefaultQuery("message", defaultAskMessage)
	text, err := h.chatService.Ask(c.Request.Context(), message)
	if err != nil {
		h.log.Error("Generate failed", "error", err)
		status, code := statusFromErr(err)
		RespondError(c, status, code, err)
		return
	}
	c.String(http.StatusOK, text)
}

// GenerateStream streams a stateless completion over SSE.
func (h *ChatHandler) GenerateStream(c *gin.Context) {
	message := c.DefaultQuery("message", defaultAskMessage)
	h.streamSSE(c, func(ctx context.Context, onDelta func(delta string)) error {
		_, err := h.chatService.AskStream(ctx, message, onDelta)
		return err
	})
}

// RunTurnStream runs one room turn, streaming fragments to the client as the
// model emits them. The room is validated before the SSE response starts so
// a missing room still gets a JSON 404.
func (h *ChatHandler) RunTurnStream(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_room_id", err)
		return
	}
	message := c.Query("message")
	if message == "" {
		RespondError(c, http.StatusBadRequest, "missing_message", fmt.Errorf("message query parameter required"))
		return
	}
	if _, err := h.chatService.GetRoom(c.Request.Context(), roomID); err != nil {
		status, code := statusFromErr(err)
		RespondError(c, status, code, err)
		return
	}

	h.streamSSE(c, func(ctx context.Context, onDelta func(delta string)) error {
		_, err := h.chatService.RunTurn(ctx, roomID, message, onDelta)
		return err
	})
}

// streamSSE writes model fragments as SSE data frames in arrival order and
// terminates the stream with a [DONE] sentinel, or an error event if the
// upstream failed mid-stream.
func (h *ChatHandler) streamSSE(c *gin.Context, run func(ctx context.Context, onDelta func(delta string)) error) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		RespondError(c, http.StatusInternalServerError, "streaming_unsupported", fmt.Errorf("response writer does not support flushing"))
		return
	}

	fragments := make(chan string, 16)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		defer close(fragments)
		return run(ctx, func(delta string) {
			select {
			case fragments <- delta:
			case <-ctx.Done():
			}
		})
	})

	for frag := range fragments {
		// JSON-quote each fragment so newlines survive the SSE framing.
		data, err := json.Marshal(frag)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		flusher.Flush()
	}

	if err := g.Wait(); err != nil {
		h.log.Warn("Stream aborted", "error", err)
		fmt.Fprintf(c.Writer, "event: error\ndata: %q\n\n", err.Error())
		flusher.Flush()
		return
	}
	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	flusher.Flush()
}
