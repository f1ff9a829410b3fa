package enrich

import (
	"fmt"
	"strings"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

const (
	maxSnippets      = 5
	maxSnippetLength = 400
	truncationMarker = "…"
)

const enrichPrompt = `You are an expert at LinkedIn engagement. Write UNIQUE suggestions for THIS post only. Do NOT use generic phrases like "Thanks for sharing", "Worth a read", or "Great perspective". Reference specific ideas, topics, or a concrete detail from the post so each suggestion feels tailored.%s

Respond with exactly these four labeled lines, no other text:
SUMMARY: One sentence on why this post was shortlisted (criteria: %s) and what stands out.
REACTION: Exactly one word, the best reaction: %s.
REPOST_COMMENT: A short comment for REPOSTING (1-2 sentences). Add value; mention something specific from the post (a point, stat, or idea) so it's clearly about this post.
REPLY_COMMENT: A short comment to REPLY to the original post (1-2 sentences). Be specific to the author's message; avoid generic praise.%s

Post author: %s
Post content:
%s%s`

// BuildPrompt renders the generation prompt for one shortlisted post.
// Content longer than contentLimit runes is cut and marked with "…".
func BuildPrompt(m feed.Match, contentLimit int) string {
	content := truncate(strings.TrimSpace(m.Content), contentLimit, truncationMarker)

	snippets := sampleSnippets(m.CommentSnippets)
	var commentsBlock, contextNote, replyNote string
	if len(snippets) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\nExisting comments (for context; write a reply that adds a new angle, don't repeat these):\n")
		for i, s := range snippets {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
		}
		commentsBlock = strings.TrimRight(sb.String(), "\n")
		contextNote = " Use the existing comments only as context; your reply should add a distinct perspective."
		replyNote = " Do not simply echo the existing comments."
	}

	author := m.AuthorName
	if author == "" {
		author = "Unknown"
	}

	return fmt.Sprintf(enrichPrompt,
		contextNote,
		m.ReasonList(),
		vocabulary(),
		replyNote,
		author,
		content,
		commentsBlock,
	)
}

func sampleSnippets(snippets []string) []string {
	var out []string
	for _, s := range snippets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, truncate(s, maxSnippetLength, ""))
		if len(out) == maxSnippets {
			break
		}
	}
	return out
}

func vocabulary() string {
	words := make([]string, len(feed.Reactions))
	for i, r := range feed.Reactions {
		words[i] = string(r)
	}
	return strings.Join(words[:len(words)-1], ", ") + " or " + words[len(words)-1]
}

// truncate cuts s to limit runes, appending marker when anything was removed.
func truncate(s string, limit int, marker string) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + marker
}
