package report

import (
	"fmt"
	"strings"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

// excerptLength is how much post content each entry quotes, in runes.
const excerptLength = 280

// Compose renders an analysis result as markdown. model labels the
// generation backend used for suggestions; empty omits the line.
func Compose(result feed.AnalysisResult, model string) string {
	var sb strings.Builder

	sb.WriteString("# Feed analysis\n\n")
	fmt.Fprintf(&sb, "**%d shortlisted** out of %d posts analyzed.", len(result.Shortlisted), result.TotalAnalyzed)
	if model != "" {
		fmt.Fprintf(&sb, " Suggestions: %s.", model)
	}
	sb.WriteString("\n\n")
	sb.WriteString(rulesLine(result.Config))
	sb.WriteString("\n")

	if len(result.Shortlisted) == 0 {
		if result.ExclusionSummary != nil {
			sb.WriteString("\n")
			sb.WriteString(exclusionSection(*result.ExclusionSummary))
		}
		return sb.String()
	}

	enrichments := make(map[string]feed.Enrichment, len(result.Enrichments))
	for _, en := range result.Enrichments {
		enrichments[en.PostID] = en
	}

	var sections []string
	for i, m := range result.Shortlisted {
		en, ok := enrichments[m.ID]
		sections = append(sections, postSection(i+1, m, en, ok))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Join(sections, "\n\n---\n\n"))
	sb.WriteString("\n")
	return sb.String()
}

func rulesLine(cfg feed.RuleConfig) string {
	parts := []string{
		fmt.Sprintf("engagement ≥ %d reactions, %d comments, %d reposts", cfg.MinReactions, cfg.MinComments, cfg.MinReposts),
	}
	if cfg.RequireFollowers {
		parts = append(parts, fmt.Sprintf("%d followers", cfg.MinFollowers))
	}
	if cfg.MentionKeyword != "" {
		parts = append(parts, fmt.Sprintf("mentions %q", cfg.MentionKeyword))
	}
	if len(cfg.Watchlist) > 0 {
		parts = append(parts, "watchlist: "+strings.Join(cfg.Watchlist, ", "))
	}
	if len(cfg.Hashtags) > 0 {
		tags := make([]string, len(cfg.Hashtags))
		for i, h := range cfg.Hashtags {
			tags[i] = "#" + h
		}
		parts = append(parts, "hashtags: "+strings.Join(tags, " "))
	}
	return "_Rules: " + strings.Join(parts, "; ") + "._\n"
}

func postSection(n int, m feed.Match, en feed.Enrichment, enriched bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %d. %s\n\n", n, escape(authorOf(m.Post)))
	if quote := excerpt(m.Content); quote != "" {
		sb.WriteString("> ")
		sb.WriteString(strings.ReplaceAll(htmlEscaper.Replace(quote), "\n", "\n> "))
		sb.WriteString("\n\n")
	}

	if len(m.MatchedCriteria) > 0 {
		fmt.Fprintf(&sb, "- **Matched:** %s\n", escape(strings.Join(m.MatchedCriteria, "; ")))
	} else {
		fmt.Fprintf(&sb, "- **Matched:** %s\n", m.ReasonList())
	}
	fmt.Fprintf(&sb, "- **Engagement:** %d reactions · %d comments · %d reposts\n",
		m.ReactionCount(), m.CommentCount(), m.RepostCount())

	if enriched {
		fmt.Fprintf(&sb, "- **Summary:** %s\n", escape(en.Summary))
		fmt.Fprintf(&sb, "- **Suggested reaction:** %s\n", en.SuggestedReaction)
		fmt.Fprintf(&sb, "- **Repost comment:** %s\n", escape(en.CommentForRepost))
		fmt.Fprintf(&sb, "- **Reply comment:** %s\n", escape(en.CommentForReply))
	}

	if m.URL != "" {
		fmt.Fprintf(&sb, "\n[Open post](%s)", m.URL)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func exclusionSection(s feed.ExclusionSummary) string {
	var sb strings.Builder
	sb.WriteString("## Why nothing was shortlisted\n\n")
	for _, reason := range s.WhyNoShortlists {
		fmt.Fprintf(&sb, "- %s\n", escape(reason))
	}

	sb.WriteString("\n| Feed statistic | Posts |\n|---|---|\n")
	rows := []struct {
		label string
		n     int
	}{
		{"Scanned", s.TotalPosts},
		{"With content", s.FeedPostsWithContent},
		{"With hashtags", s.FeedPostsWithHashtags},
		{"With reaction or comment counts", s.FeedPostsWithReactionsOrComments},
		{"With repost counts", s.FeedPostsWithReposts},
	}
	for _, r := range rows {
		fmt.Fprintf(&sb, "| %s | %d |\n", r.label, r.n)
	}
	return sb.String()
}

func authorOf(p feed.Post) string {
	if p.AuthorName == "" {
		return "Unknown"
	}
	return p.AuthorName
}

func excerpt(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= excerptLength {
		return content
	}
	return strings.TrimSpace(string(runes[:excerptLength])) + "…"
}

var (
	htmlEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")
	lineEscaper = strings.NewReplacer("\n", " ", "|", `\|`, "<", "&lt;", ">", "&gt;")
)

// escape keeps s on one line and stops it from opening HTML or table cells.
func escape(s string) string {
	return lineEscaper.Replace(s)
}
