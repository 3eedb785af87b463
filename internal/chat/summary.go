package chat

import (
	"fmt"
	"strings"

	"github.com/annovation/chatbot-backend/internal/types"
)

// MaybeSummarize decides, after a completed turn, whether a new summary
// segment must be cut, and returns it without mutating the room. At most one
// segment is cut per call; if appends outpaced summarization the policy does
// not backfill, it catches up one segment per subsequent turn.
//
// Segments advance by exactly K turns. With lastEnd the inclusive index of
// the last summarized turn (-1 with no segment yet):
//   - no segment and T <= K: too short, skip
//   - T-K <= lastEnd+1: the unsummarized tail has not outgrown the recency
//     window, skip
//   - otherwise cut [lastEnd+1, lastEnd+1+K)
func MaybeSummarize(cfg Config, room *types.ChatRoom) *types.ChatSummary {
	k := cfg.RecentTurns
	total := len(room.Turns)
	last := room.LastSummary()

	lastEnd := -1
	if last != nil {
		lastEnd = last.EndIndex - 1
	}

	if last == nil && total <= k {
		return nil
	}
	nextStart := lastEnd + 1
	if total-k <= nextStart {
		return nil
	}

	start := nextStart
	end := start + k
	return &types.ChatSummary{
		RoomID:     room.ID,
		StartIndex: start,
		EndIndex:   end,
		Text:       renderSummaryText(last, room.Turns, start, end),
	}
}

// renderSummaryText chains the previous segment's text with a Q/A block for
// turns [start, end).
func renderSummaryText(prev *types.ChatSummary, turns []*types.ChatTurn, start, end int) string {
	var b strings.Builder
	if prev != nil {
		b.WriteString(prev.Text)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "== %d ~ %d summary ==\n", start, end)
	for i := start; i < end; i++ {
		if i > start {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", turns[i].UserMessage, turns[i].BotMessage)
	}
	return b.String()
}
