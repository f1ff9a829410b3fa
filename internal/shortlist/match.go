package shortlist

import (
	"fmt"
	"slices"
	"strings"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

// Reasons returns the rules post satisfies under cfg, in evaluation order:
// high engagement, mentions me, watchlist, hashtag.
func Reasons(post feed.Post, cfg feed.RuleConfig) []feed.Reason {
	reasons, _ := Evaluate(post, cfg)
	return reasons
}

// Evaluate is Reasons plus a human-readable description for each matched rule.
func Evaluate(post feed.Post, cfg feed.RuleConfig) ([]feed.Reason, []string) {
	var reasons []feed.Reason
	var criteria []string

	if matchesHighEngagement(post, cfg) {
		reasons = append(reasons, feed.ReasonHighEngagement)
		desc := fmt.Sprintf("High engagement (%d reactions, %d comments, %d reposts)",
			post.ReactionCount(), post.CommentCount(), post.RepostCount())
		if cfg.RequireFollowers {
			desc = fmt.Sprintf("High engagement (%d followers, %d reactions, %d comments, %d reposts)",
				post.FollowerCount(), post.ReactionCount(), post.CommentCount(), post.RepostCount())
		}
		criteria = append(criteria, desc)
	}

	if matchesMentionsMe(post, cfg) {
		reasons = append(reasons, feed.ReasonMentionsMe)
		criteria = append(criteria, fmt.Sprintf("Mentions %q", strings.TrimSpace(cfg.MentionKeyword)))
	}

	if entry, ok := matchWatchlist(post, cfg); ok {
		reasons = append(reasons, feed.ReasonWatchlist)
		criteria = append(criteria, fmt.Sprintf("Author in watchlist (%s)", entry))
	}

	if tags := matchHashtags(post, cfg); len(tags) > 0 {
		reasons = append(reasons, feed.ReasonHashtag)
		criteria = append(criteria, "Hashtags: "+strings.Join(tags, ", "))
	}

	return reasons, criteria
}

// All three engagement thresholds must hold; missing counters count as 0.
func matchesHighEngagement(post feed.Post, cfg feed.RuleConfig) bool {
	if cfg.RequireFollowers && post.FollowerCount() < cfg.MinFollowers {
		return false
	}
	return post.ReactionCount() >= cfg.MinReactions &&
		post.CommentCount() >= cfg.MinComments &&
		post.RepostCount() >= cfg.MinReposts
}

func matchesMentionsMe(post feed.Post, cfg feed.RuleConfig) bool {
	keyword := strings.ToLower(strings.TrimSpace(cfg.MentionKeyword))
	if keyword == "" {
		return false
	}
	if strings.Contains(strings.ToLower(post.Content), keyword) {
		return true
	}
	return slices.ContainsFunc(post.CommentSnippets, func(s string) bool {
		return strings.Contains(strings.ToLower(s), keyword)
	})
}

// matchWatchlist tests each entry against the author name and profile URL in
// both directions, so "Jane" matches "Jane Doe" and "Jan" matches "Jane Doe Inc".
// Empty author fields never match; an empty string is a substring of everything.
func matchWatchlist(post feed.Post, cfg feed.RuleConfig) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(post.AuthorName))
	profile := strings.ToLower(strings.TrimSpace(post.AuthorProfileURL))

	for _, w := range cfg.Watchlist {
		entry := strings.ToLower(strings.TrimSpace(w))
		if entry == "" {
			continue
		}
		if overlaps(entry, name) || overlaps(entry, profile) {
			return strings.TrimSpace(w), true
		}
	}
	return "", false
}

func overlaps(entry, field string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(field, entry) || strings.Contains(entry, field)
}

// matchHashtags returns the configured tags (without '#') found either in the
// post's extracted hashtags or as a literal "#tag" in its content.
func matchHashtags(post feed.Post, cfg feed.RuleConfig) []string {
	if len(cfg.Hashtags) == 0 {
		return nil
	}

	postTags := make(map[string]bool, len(post.Hashtags))
	for _, h := range post.Hashtags {
		postTags[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "#"))] = true
	}
	content := strings.ToLower(post.Content)

	var matched []string
	for _, t := range cfg.Hashtags {
		tag := strings.TrimPrefix(strings.TrimSpace(t), "#")
		if tag == "" {
			continue
		}
		lower := strings.ToLower(tag)
		if postTags[lower] || strings.Contains(content, "#"+lower) {
			matched = append(matched, tag)
		}
	}
	return matched
}
