package chat

import (
	"github.com/annovation/chatbot-backend/internal/types"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one ordered prompt message for the model capability.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config carries the injected knobs of the core: the fixed system directive
// and the recency window K. The same K also sizes summary segments.
type Config struct {
	SystemDirective string
	RecentTurns     int
}

// AssembleContext builds the ordered prompt for the next turn of a room.
// Order is fixed: system directive, latest summary (if any), the last K
// turns expanded user/assistant, then the new user message.
//
// Only the latest summary segment is included; each segment already embeds
// its predecessor's text, so sending more would duplicate content. The
// recency window is position-based on the full turn sequence and overlaps
// summarized turns on purpose, trading tokens for recency fidelity.
func AssembleContext(cfg Config, room *types.ChatRoom, userMessage string) []Message {
	msgs := make([]Message, 0, 2+2*cfg.RecentTurns+1)
	msgs = append(msgs, Message{Role: RoleSystem, Content: cfg.SystemDirective})

	if last := room.LastSummary(); last != nil {
		msgs = append(msgs, Message{Role: RoleSystem, Content: last.Text})
	}

	start := len(room.Turns) - cfg.RecentTurns
	if start < 0 {
		start = 0
	}
	for _, turn := range room.Turns[start:] {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: turn.UserMessage},
			Message{Role: RoleAssistant, Content: turn.BotMessage},
		)
	}

	msgs = append(msgs, Message{Role: RoleUser, Content: userMessage})
	return msgs
}
