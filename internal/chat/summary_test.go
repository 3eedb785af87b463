package chat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/annovation/chatbot-backend/internal/types"
)

func testConfig(k int) Config {
	return Config{SystemDirective: "be nice", RecentTurns: k}
}

func roomWithTurns(n int) *types.ChatRoom {
	room := &types.ChatRoom{}
	for i := 0; i < n; i++ {
		room.AddTurn(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}
	return room
}

func TestMaybeSummarizeGuards(t *testing.T) {
	cases := []struct {
		name      string
		turns     int
		k         int
		wantStart int
		wantEnd   int
		wantNil   bool
	}{
		{name: "empty_room", turns: 0, k: 3, wantNil: true},
		{name: "single_turn", turns: 1, k: 3, wantNil: true},
		{name: "exactly_window", turns: 3, k: 3, wantNil: true},
		{name: "one_past_window", turns: 4, k: 3, wantStart: 0, wantEnd: 3},
		{name: "small_window", turns: 2, k: 1, wantStart: 0, wantEnd: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			room := roomWithTurns(tc.turns)
			got := MaybeSummarize(testConfig(tc.k), room)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("MaybeSummarize returned segment [%d,%d), want nil", got.StartIndex, got.EndIndex)
				}
				return
			}
			if got == nil {
				t.Fatal("MaybeSummarize returned nil, want a segment")
			}
			if got.StartIndex != tc.wantStart || got.EndIndex != tc.wantEnd {
				t.Fatalf("segment range [%d,%d), want [%d,%d)", got.StartIndex, got.EndIndex, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestMaybeSummarizeFirstSegmentText(t *testing.T) {
	room := roomWithTurns(4)
	seg := MaybeSummarize(testConfig(3), room)
	if seg == nil {
		t.Fatal("expected a segment for T=4, K=3")
	}

	want := "== 0 ~ 3 summary ==\n" +
		"Q: question 0\nA: answer 0\n\n" +
		"Q: question 1\nA: answer 1\n\n" +
		"Q: question 2\nA: answer 2"
	if seg.Text != want {
		t.Fatalf("segment text mismatch:\ngot:\n%s\nwant:\n%s", seg.Text, want)
	}
}

func TestMaybeSummarizeChainsPreviousText(t *testing.T) {
	cfg := testConfig(3)

	room := roomWithTurns(4)
	first := MaybeSummarize(cfg, room)
	if first == nil {
		t.Fatal("expected first segment at T=4")
	}
	room.AddSummary(first)

	// No new segment until the tail outgrows the window again.
	for _, n := range []int{5, 6} {
		room.AddTurn(fmt.Sprintf("question %d", n-1), fmt.Sprintf("answer %d", n-1))
		if seg := MaybeSummarize(cfg, room); seg != nil {
			t.Fatalf("unexpected segment [%d,%d) at T=%d", seg.StartIndex, seg.EndIndex, n)
		}
	}

	room.AddTurn("question 6", "answer 6")
	second := MaybeSummarize(cfg, room)
	if second == nil {
		t.Fatal("expected second segment at T=7")
	}
	if second.StartIndex != 3 || second.EndIndex != 6 {
		t.Fatalf("second segment range [%d,%d), want [3,6)", second.StartIndex, second.EndIndex)
	}
	if !strings.HasPrefix(second.Text, first.Text+"\n\n") {
		t.Fatalf("second segment text does not begin with the first segment's text:\n%s", second.Text)
	}
	if !strings.Contains(second.Text, "== 3 ~ 6 summary ==") {
		t.Fatalf("second segment text missing its header:\n%s", second.Text)
	}
	for i := 3; i < 6; i++ {
		if !strings.Contains(second.Text, fmt.Sprintf("Q: question %d", i)) {
			t.Fatalf("second segment text missing turn %d:\n%s", i, second.Text)
		}
	}
}

func TestMaybeSummarizeIdempotentWithoutNewTurns(t *testing.T) {
	cfg := testConfig(3)
	room := roomWithTurns(4)

	first := MaybeSummarize(cfg, room)
	if first == nil {
		t.Fatal("expected a segment on the first call")
	}
	room.AddSummary(first)

	if seg := MaybeSummarize(cfg, room); seg != nil {
		t.Fatalf("second call without an intervening turn produced [%d,%d), want nil", seg.StartIndex, seg.EndIndex)
	}
}

func TestMaybeSummarizeCutsOneSegmentPerCall(t *testing.T) {
	// Grow far past several thresholds without invoking the policy; a single
	// call still cuts exactly one K-sized segment.
	cfg := testConfig(3)
	room := roomWithTurns(20)

	seg := MaybeSummarize(cfg, room)
	if seg == nil {
		t.Fatal("expected a segment at T=20")
	}
	if seg.StartIndex != 0 || seg.EndIndex != 3 {
		t.Fatalf("segment range [%d,%d), want [0,3)", seg.StartIndex, seg.EndIndex)
	}
	room.AddSummary(seg)
	if next := MaybeSummarize(cfg, room); next == nil || next.StartIndex != 3 || next.EndIndex != 6 {
		t.Fatalf("catch-up advances one segment per call, got %+v", next)
	}
}

func TestSummaryChainInvariants(t *testing.T) {
	cfg := testConfig(3)
	room := &types.ChatRoom{}

	for i := 0; i < 40; i++ {
		room.AddTurn(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
		if seg := MaybeSummarize(cfg, room); seg != nil {
			room.AddSummary(seg)
		}
	}

	if len(room.Summaries) == 0 {
		t.Fatal("expected summary segments after 40 turns")
	}
	if room.Summaries[0].StartIndex != 0 {
		t.Fatalf("first segment starts at %d, want 0", room.Summaries[0].StartIndex)
	}
	for i, seg := range room.Summaries {
		if seg.EndIndex <= seg.StartIndex {
			t.Fatalf("segment %d has empty range [%d,%d)", i, seg.StartIndex, seg.EndIndex)
		}
		if i > 0 && seg.StartIndex != room.Summaries[i-1].EndIndex {
			t.Fatalf("segment %d starts at %d, previous ends at %d", i, seg.StartIndex, room.Summaries[i-1].EndIndex)
		}
	}
	last := room.LastSummary()
	if last.EndIndex > len(room.Turns) {
		t.Fatalf("last segment end %d exceeds turn count %d", last.EndIndex, len(room.Turns))
	}
}
