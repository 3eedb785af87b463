package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/annovation/chatbot-backend/internal/logger"
	"github.com/annovation/chatbot-backend/internal/services"
	"github.com/annovation/chatbot-backend/internal/types"
)

type stubChatService struct {
	room    *types.ChatRoom
	askText string
	runTurn func(ctx context.Context, roomID uuid.UUID, msg string, onDelta func(string)) (*types.ChatTurn, error)
	lastAsk string
}

func (s *stubChatService) CreateRoom(ctx context.Context) (*types.ChatRoom, error) {
	return s.room, nil
}

func (s *stubChatService) GetRoom(ctx context.Context, roomID uuid.UUID) (*types.ChatRoom, error) {
	if s.room == nil || s.room.ID != roomID {
		return nil, services.ErrRoomNotFound
	}
	return s.room, nil
}

func (s *stubChatService) ListTurns(ctx context.Context, roomID uuid.UUID) ([]*types.ChatTurn, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return room.Turns, nil
}

func (s *stubChatService) RunTurn(ctx context.Context, roomID uuid.UUID, msg string, onDelta func(delta string)) (*types.ChatTurn, error) {
	return s.runTurn(ctx, roomID, msg, onDelta)
}

func (s *stubChatService) Ask(ctx context.Context, message string) (string, error) {
	s.lastAsk = message
	return s.askText, nil
}

func (s *stubChatService) AskStream(ctx context.Context, message string, onDelta func(delta string)) (string, error) {
	s.lastAsk = message
	if onDelta != nil {
		onDelta(s.askText)
	}
	return s.askText, nil
}

func newTestRouter(t *testing.T, svc services.ChatService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("prod")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewChatHandler(log, svc)

	r := gin.New()
	r.GET("/healthcheck", HealthCheck)
	ai := r.Group("/ai/chat")
	ai.GET("/generate", h.Generate)
	ai.GET("/generate-stream", h.GenerateStream)
	ai.POST("/rooms", h.CreateRoom)
	ai.GET("/rooms/:roomId", h.GetRoom)
	ai.GET("/rooms/:roomId/messages", h.ListMessages)
	ai.GET("/rooms/:roomId/generate-stream", h.RunTurnStream)
	return r
}

func TestCreateRoomEndpoint(t *testing.T) {
	room := &types.ChatRoom{ID: uuid.New()}
	r := newTestRouter(t, &stubChatService{room: room})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/ai/chat/rooms", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	var resp RoomResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != room.ID {
		t.Fatalf("response id %s, want %s", resp.ID, room.ID)
	}
}

func TestGetRoomErrors(t *testing.T) {
	r := newTestRouter(t, &stubChatService{})

	cases := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{name: "bad_uuid", path: "/ai/chat/rooms/not-a-uuid", wantStatus: http.StatusBadRequest, wantCode: "invalid_room_id"},
		{name: "missing_room", path: "/ai/chat/rooms/" + uuid.NewString(), wantStatus: http.StatusNotFound, wantCode: "room_not_found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", tc.path, nil))
			if w.Code != tc.wantStatus {
				t.Fatalf("status %d, want %d", w.Code, tc.wantStatus)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode error envelope: %v", err)
			}
			if env.Error.Code != tc.wantCode {
				t.Fatalf("error code %q, want %q", env.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestListMessagesEndpoint(t *testing.T) {
	room := &types.ChatRoom{ID: uuid.New()}
	room.AddTurn("hi", "hello")
	room.AddTurn("how are you", "fine")
	r := newTestRouter(t, &stubChatService{room: room})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ai/chat/rooms/"+room.ID.String()+"/messages", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	var resp struct {
		Messages []TurnResponse `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("%d messages, want 2", len(resp.Messages))
	}
	if resp.Messages[0].SeqIndex != 0 || resp.Messages[1].SeqIndex != 1 {
		t.Fatalf("messages out of order: %+v", resp.Messages)
	}
}

func TestGenerateDefaultsMessage(t *testing.T) {
	svc := &stubChatService{askText: "a joke"}
	r := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ai/chat/generate", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if w.Body.String() != "a joke" {
		t.Fatalf("body %q", w.Body.String())
	}
	if svc.lastAsk != "Tell me a joke" {
		t.Fatalf("default message %q", svc.lastAsk)
	}
}

func TestRunTurnStreamFraming(t *testing.T) {
	room := &types.ChatRoom{ID: uuid.New()}
	svc := &stubChatService{room: room}
	svc.runTurn = func(ctx context.Context, roomID uuid.UUID, msg string, onDelta func(string)) (*types.ChatTurn, error) {
		onDelta("Hello")
		onDelta(" world\n!")
		return room.AddTurn(msg, "Hello world\n!"), nil
	}
	r := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ai/chat/rooms/"+room.ID.String()+"/generate-stream?message=hi", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type %q", ct)
	}
	body := w.Body.String()
	wantFrames := []string{
		"data: \"Hello\"\n\n",
		"data: \" world\\n!\"\n\n",
		"data: [DONE]\n\n",
	}
	pos := 0
	for _, frame := range wantFrames {
		idx := strings.Index(body[pos:], frame)
		if idx < 0 {
			t.Fatalf("frame %q missing or out of order in body:\n%s", frame, body)
		}
		pos += idx + len(frame)
	}
}

func TestRunTurnStreamUpstreamFailure(t *testing.T) {
	room := &types.ChatRoom{ID: uuid.New()}
	svc := &stubChatService{room: room}
	svc.runTurn = func(ctx context.Context, roomID uuid.UUID, msg string, onDelta func(string)) (*types.ChatTurn, error) {
		onDelta("partial")
		return nil, services.ErrUpstream
	}
	r := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ai/chat/rooms/"+room.ID.String()+"/generate-stream?message=hi", nil))

	body := w.Body.String()
	if !strings.Contains(body, "event: error") {
		t.Fatalf("missing error event in body:\n%s", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Fatalf("failed stream must not emit the [DONE] sentinel:\n%s", body)
	}
}

func TestRunTurnStreamMissingRoomIsJSON404(t *testing.T) {
	r := newTestRouter(t, &stubChatService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ai/chat/rooms/"+uuid.NewString()+"/generate-stream?message=hi", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}
