package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatRoom is one conversation thread. Turns and Summaries are ordered on
// read (seq_index / start_index) and only ever grow; the two slices are
// committed together in one transaction.
type ChatRoom struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string         `gorm:"column:title" json:"title"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	Turns     []*ChatTurn    `gorm:"foreignKey:RoomID;references:ID" json:"turns,omitempty"`
	Summaries []*ChatSummary `gorm:"foreignKey:RoomID;references:ID" json:"summaries,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (ChatRoom) TableName() string {
	return "chat_room"
}

// ChatTurn is one (user message, bot response) pair. Immutable once appended.
// The room back-reference exists for lookup only and is never serialized.
type ChatTurn struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	RoomID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_chat_turn_room_seq,priority:1" json:"-"`
	Room        *ChatRoom `gorm:"constraint:OnDelete:CASCADE;foreignKey:RoomID;references:ID" json:"-"`
	SeqIndex    int       `gorm:"column:seq_index;not null;uniqueIndex:uq_chat_turn_room_seq,priority:2" json:"seq_index"`
	UserMessage string    `gorm:"column:user_message;type:text;not null" json:"user_message"`
	BotMessage  string    `gorm:"column:bot_message;type:text;not null" json:"bot_message"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (ChatTurn) TableName() string {
	return "chat_turn"
}

// ChatSummary compresses turns [StartIndex, EndIndex) of its room. Text
// embeds the previous segment's text, so the latest segment alone carries
// the whole summarized history.
type ChatSummary struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	RoomID     uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Room       *ChatRoom `gorm:"constraint:OnDelete:CASCADE;foreignKey:RoomID;references:ID" json:"-"`
	StartIndex int       `gorm:"column:start_index;not null" json:"start_index"`
	EndIndex   int       `gorm:"column:end_index;not null" json:"end_index"`
	Text       string    `gorm:"column:text;type:text;not null" json:"text"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (ChatSummary) TableName() string {
	return "chat_summary"
}

// AddTurn appends a turn at the next sequence index and returns it. The
// zero ID marks the turn as unsaved until CommitRoom assigns one.
func (r *ChatRoom) AddTurn(userMessage, botMessage string) *ChatTurn {
	turn := &ChatTurn{
		RoomID:      r.ID,
		Room:        r,
		SeqIndex:    len(r.Turns),
		UserMessage: userMessage,
		BotMessage:  botMessage,
	}
	r.Turns = append(r.Turns, turn)
	return turn
}

// AddSummary appends a summary segment to the room's chain.
func (r *ChatRoom) AddSummary(s *ChatSummary) {
	s.RoomID = r.ID
	s.Room = r
	r.Summaries = append(r.Summaries, s)
}

// LastSummary returns the latest segment, or nil if none exists.
func (r *ChatRoom) LastSummary() *ChatSummary {
	if len(r.Summaries) == 0 {
		return nil
	}
	return r.Summaries[len(r.Summaries)-1]
}
