package enrich

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

func TestParseResponseFormats(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Fields
	}{
		{
			name: "labeled",
			text: "SUMMARY: Good post.\nREACTION: Celebrate\nREPOST_COMMENT: Worth it.\nREPLY_COMMENT: Nice work.",
			want: Fields{Summary: "Good post.", Reaction: feed.ReactionCelebrate, HasReaction: true, Repost: "Worth it.", Reply: "Nice work."},
		},
		{
			name: "labeled lowercase with markdown",
			text: "**summary:** Good post.\n**reaction:** support\n**repost comment:** Worth it.\n**reply-comment:** Nice work.",
			want: Fields{Summary: "Good post.", Reaction: feed.ReactionSupport, HasReaction: true, Repost: "Worth it.", Reply: "Nice work."},
		},
		{
			name: "labeled multiline values",
			text: "Here you go:\nSUMMARY:\nFirst half\nsecond half.\nREACTION: Love\nREPLY_COMMENT: Thanks\nfor the detail.",
			want: Fields{Summary: "First half second half.", Reaction: feed.ReactionLove, HasReaction: true, Reply: "Thanks for the detail."},
		},
		{
			name: "line based",
			text: "Strong hiring thread.\nInsightful\nGreat hiring checklist.\nWhich step was hardest?",
			want: Fields{Summary: "Strong hiring thread.", Reaction: feed.ReactionInsightful, HasReaction: true, Repost: "Great hiring checklist.", Reply: "Which step was hardest?"},
		},
		{
			name: "line based with prefixes and blank lines",
			text: "Line 1: Strong hiring thread.\n\nLine 2: funny\n\nLine 3: Great checklist.\nLine 4: Which step?",
			want: Fields{Summary: "Strong hiring thread.", Reaction: feed.ReactionFunny, HasReaction: true, Repost: "Great checklist.", Reply: "Which step?"},
		},
		{
			name: "numbered lines",
			text: "1. Summary here.\n2. Love\n3) Repost here.",
			want: Fields{Summary: "Summary here.", Reaction: feed.ReactionLove, HasReaction: true, Repost: "Repost here."},
		},
		{
			name: "missing trailing fields",
			text: "Only a summary.",
			want: Fields{Summary: "Only a summary.", Reaction: feed.ReactionLike},
		},
		{
			name: "fenced line based",
			text: "```\nGreat post on AI tooling.\nSupport\nRepost text here.\nReply text here.\n```",
			want: Fields{Summary: "Great post on AI tooling.", Reaction: feed.ReactionSupport, HasReaction: true, Repost: "Repost text here.", Reply: "Reply text here."},
		},
		{
			name: "fenced labeled with language tag",
			text: "```text\nSUMMARY: Good post.\nREACTION: Love\nREPOST_COMMENT: Worth it.\nREPLY_COMMENT: Reply text.\n```",
			want: Fields{Summary: "Good post.", Reaction: feed.ReactionLove, HasReaction: true, Repost: "Worth it.", Reply: "Reply text."},
		},
		{
			name: "json",
			text: `{"summary": "JSON summary", "suggestedReaction": "insightful", "commentForRepost": "r", "commentForReply": "q"}`,
			want: Fields{Summary: "JSON summary", Reaction: feed.ReactionInsightful, HasReaction: true, Repost: "r", Reply: "q"},
		},
		{
			name: "fenced json with snake keys",
			text: "```json\n{\"summary\": \"s\", \"reaction\": \"Love\", \"repost_comment\": \"r\", \"reply_comment\": \"q\"}\n```",
			want: Fields{Summary: "s", Reaction: feed.ReactionLove, HasReaction: true, Repost: "r", Reply: "q"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseResponse(tt.text)
			if !ok {
				t.Fatal("expected ok")
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseResponseReactionWord(t *testing.T) {
	tests := []struct {
		text    string
		want    feed.Reaction
		matched bool
	}{
		{"SUMMARY: x\nREACTION: support", feed.ReactionSupport, true},
		{"SUMMARY: x\nREACTION: SUPPORT", feed.ReactionSupport, true},
		{"SUMMARY: x\nREACTION: Insightful.", feed.ReactionInsightful, true},
		{"SUMMARY: x\nREACTION: respect", feed.ReactionSupport, true},
		{"SUMMARY: x\nREACTION: thumbs up", feed.ReactionLike, false},
		{"SUMMARY: x", feed.ReactionLike, false},
	}
	for _, tt := range tests {
		got, _ := ParseResponse(tt.text)
		if got.Reaction != tt.want || got.HasReaction != tt.matched {
			t.Errorf("%q: expected %s (matched=%v), got %s (matched=%v)", tt.text, tt.want, tt.matched, got.Reaction, got.HasReaction)
		}
	}
}

func TestParseResponseUnusable(t *testing.T) {
	for _, text := range []string{"", "  \n\t ", `{"unrelated": true}`, "```json\n{}\n```"} {
		got, ok := ParseResponse(text)
		if ok {
			t.Errorf("%q: expected not ok, got %+v", text, got)
		}
		if got.Reaction != feed.ReactionLike {
			t.Errorf("%q: expected default reaction, got %s", text, got.Reaction)
		}
	}
}

func TestParseResponseCapsComments(t *testing.T) {
	long := strings.Repeat("é", 600)
	got, _ := ParseResponse("SUMMARY: s\nREACTION: Like\nREPOST_COMMENT: " + long + "\nREPLY_COMMENT: " + long)
	if n := len([]rune(got.Repost)); n != maxCommentLength {
		t.Errorf("expected repost capped at %d runes, got %d", maxCommentLength, n)
	}
	if n := len([]rune(got.Reply)); n != maxCommentLength {
		t.Errorf("expected reply capped at %d runes, got %d", maxCommentLength, n)
	}
}
