package shortlist

import (
	"fmt"
	"strings"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

// Diagnose explains an empty shortlist. Reasons are ordered: hashtag rule,
// watchlist, mention keyword, engagement thresholds, missing content. The
// engagement entry is always present, so the list is never empty.
func Diagnose(posts []feed.Post, cfg feed.RuleConfig) feed.ExclusionSummary {
	cfg = cfg.Normalize()
	scanned := Scanned(posts, cfg)

	s := feed.ExclusionSummary{
		TotalPosts:        len(scanned),
		ConfigHashtags:    len(cfg.Hashtags),
		ConfigWatchlist:   len(cfg.Watchlist),
		HasMentionKeyword: cfg.MentionKeyword != "",
		HighEngagementThresholds: feed.Thresholds{
			MinReactions: cfg.MinReactions,
			MinComments:  cfg.MinComments,
			MinReposts:   cfg.MinReposts,
		},
	}
	for _, p := range scanned {
		if strings.TrimSpace(p.Content) != "" {
			s.FeedPostsWithContent++
		}
		if len(p.Hashtags) > 0 {
			s.FeedPostsWithHashtags++
		}
		if p.ReactionCount() > 0 || p.CommentCount() > 0 {
			s.FeedPostsWithReactionsOrComments++
		}
		if p.RepostCount() > 0 {
			s.FeedPostsWithReposts++
		}
	}

	var why []string
	if s.ConfigHashtags == 0 {
		if s.FeedPostsWithHashtags > 0 {
			why = append(why, fmt.Sprintf("Hashtag rule is off (no hashtags in config). %d post(s) in the feed have hashtags; add some in Config (e.g. Leadership, AI) to shortlist them.", s.FeedPostsWithHashtags))
		} else {
			why = append(why, "Hashtag rule is off (no hashtags in config). Add hashtags in Config to shortlist posts that contain them.")
		}
	}
	if s.ConfigWatchlist == 0 {
		why = append(why, "Watchlist is empty. Add author names or profile URLs in Config to shortlist their posts.")
	}
	if !s.HasMentionKeyword {
		why = append(why, "Mentions-me rule is off (no LinkedIn username in config). Set it in Config to shortlist posts or comments that mention you.")
	}

	t := s.HighEngagementThresholds
	switch {
	case s.FeedPostsWithReactionsOrComments == 0:
		why = append(why, fmt.Sprintf("High-engagement rule: no posts have reaction or comment counts in the feed, so none can meet min %d reactions and %d comments.", t.MinReactions, t.MinComments))
	case s.FeedPostsWithReposts == 0:
		why = append(why, fmt.Sprintf("High-engagement rule: no posts have repost counts in the feed. Rule requires ≥%d reactions, ≥%d comments, ≥%d reposts; re-capture with the extension to get repost data.", t.MinReactions, t.MinComments, t.MinReposts))
	default:
		why = append(why, fmt.Sprintf("High-engagement rule requires all of: ≥%d reactions, ≥%d comments, ≥%d reposts. %d post(s) have repost data; adjust thresholds in Config if needed.", t.MinReactions, t.MinComments, t.MinReposts, s.FeedPostsWithReposts))
	}

	if s.FeedPostsWithContent == 0 && s.ConfigHashtags > 0 {
		why = append(why, `No posts in the feed have captured content (many show empty). Hashtag match needs content or hashtag metadata; try re-capturing with the extension after expanding "See more" on posts.`)
	}

	s.WhyNoShortlists = why
	return s
}
