package enrich

import (
	"regexp"
	"strings"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/llm"
)

// maxCommentLength caps the repost and reply comments, in runes.
const maxCommentLength = 500

// Fields are the values recovered from a model response. Empty strings mean
// the response did not supply the field; HasReaction reports whether a word
// from the reaction vocabulary was recognised.
type Fields struct {
	Summary     string
	Reaction    feed.Reaction
	HasReaction bool
	Repost      string
	Reply       string
}

// empty reports whether nothing usable was recovered.
func (f Fields) empty() bool {
	return f.Summary == "" && !f.HasReaction && f.Repost == "" && f.Reply == ""
}

// ParseResponse extracts the four suggestion fields from free text.
// Supported formats, tried in order:
//
//   - a JSON object (optionally fenced) with summary, suggestedReaction,
//     commentForRepost and commentForReply keys
//   - labeled lines: SUMMARY:, REACTION:, REPOST_COMMENT:, REPLY_COMMENT:
//     (case-insensitive, values may continue on following lines)
//   - four plain lines in that order, "Line N:" or "N." prefixes stripped
//
// Missing trailing fields are left empty. The reaction defaults to the first
// vocabulary entry when absent or unrecognised. ok is false when nothing
// usable was found.
func ParseResponse(text string) (Fields, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Fields{Reaction: feed.Reactions[0]}, false
	}

	var f Fields
	isJSON := false
	if looksLikeJSON(text) {
		f, isJSON = parseJSON(text)
	}
	if !isJSON {
		f = parseText(stripFences(text))
	}

	if !f.HasReaction {
		f.Reaction = feed.Reactions[0]
	}
	f.Repost = truncate(f.Repost, maxCommentLength, "")
	f.Reply = truncate(f.Reply, maxCommentLength, "")
	return f, !f.empty()
}

func parseText(text string) Fields {
	if f, ok := parseLabeled(text); ok {
		return f
	}
	return parseLines(text)
}

// isFence reports whether line is a bare code fence, with or without a
// language tag.
func isFence(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "```") {
		return false
	}
	return !strings.ContainsAny(line[3:], "` \t")
}

// stripFences drops fence lines from text.
func stripFences(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !isFence(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func looksLikeJSON(text string) bool {
	return strings.HasPrefix(text, "{") || strings.Contains(text, "```")
}

// parseJSON reports false when text is not a JSON object at all.
func parseJSON(text string) (Fields, bool) {
	data := llm.ParseJSONResponse(text)
	if data == nil {
		return Fields{}, false
	}

	var f Fields
	f.Summary = firstString(data, "summary")
	f.Repost = firstString(data, "commentForRepost", "repost_comment", "repostComment", "repost")
	f.Reply = firstString(data, "commentForReply", "reply_comment", "replyComment", "reply")
	if word := firstString(data, "suggestedReaction", "reaction", "suggested_reaction"); word != "" {
		f.Reaction, f.HasReaction = feed.ParseReaction(word)
	}
	return f, true
}

func firstString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := data[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

type label int

const (
	labelNone label = iota
	labelSummary
	labelReaction
	labelRepost
	labelReply
)

// labelPattern matches a label at the start of a line, tolerating markdown
// emphasis and spaces or hyphens in place of the underscore.
var labelPattern = regexp.MustCompile(`(?i)^[*_#\s]*(summary|reaction|suggested[ _-]?reaction|repost[ _-]?comment|reply[ _-]?comment)[*_\s]*:[*_\s]*(.*)$`)

func labelFor(name string) label {
	name = strings.ToLower(name)
	switch {
	case name == "summary":
		return labelSummary
	case strings.HasSuffix(name, "reaction"):
		return labelReaction
	case strings.HasPrefix(name, "repost"):
		return labelRepost
	case strings.HasPrefix(name, "reply"):
		return labelReply
	}
	return labelNone
}

func parseLabeled(text string) (Fields, bool) {
	values := make(map[label][]string)
	current := labelNone
	found := false

	for _, line := range strings.Split(text, "\n") {
		if isFence(line) {
			continue
		}
		if m := labelPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			current = labelFor(m[1])
			found = true
			if v := strings.TrimSpace(m[2]); v != "" {
				values[current] = append(values[current], v)
			}
			continue
		}
		if current != labelNone {
			if v := strings.TrimSpace(line); v != "" {
				values[current] = append(values[current], v)
			}
		}
	}
	if !found {
		return Fields{}, false
	}

	var f Fields
	f.Summary = strings.Join(values[labelSummary], " ")
	f.Repost = strings.Join(values[labelRepost], " ")
	f.Reply = strings.Join(values[labelReply], " ")
	if words := values[labelReaction]; len(words) > 0 {
		f.Reaction, f.HasReaction = feed.ParseReaction(words[0])
	}
	return f, true
}

var linePrefix = regexp.MustCompile(`(?i)^(line\s*\d+\s*[:.)-]|\d+[.)])\s*`)

func parseLines(text string) Fields {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if isFence(line) {
			continue
		}
		line = strings.TrimSpace(linePrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			lines = append(lines, line)
		}
	}

	var f Fields
	if len(lines) > 0 {
		f.Summary = lines[0]
	}
	if len(lines) > 1 {
		f.Reaction, f.HasReaction = feed.ParseReaction(strings.Trim(lines[1], "*_\"'"))
	}
	if len(lines) > 2 {
		f.Repost = lines[2]
	}
	if len(lines) > 3 {
		f.Reply = lines[3]
	}
	return f
}
