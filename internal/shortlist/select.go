package shortlist

import (
	"sort"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

// Scanned returns the posts the rules are applied to: the first
// MaxPostsToAnalyze in caller order.
func Scanned(posts []feed.Post, cfg feed.RuleConfig) []feed.Post {
	cfg = cfg.Normalize()
	if len(posts) > cfg.MaxPostsToAnalyze {
		return posts[:cfg.MaxPostsToAnalyze]
	}
	return posts
}

// Select runs the rules over the scanned posts and returns at most
// ShortlistSize matches. With OrderInsertion matches keep feed order; with
// OrderRanked they are sorted by reason count, then engagement score, and
// remaining ties keep feed order.
func Select(posts []feed.Post, cfg feed.RuleConfig) []feed.Match {
	cfg = cfg.Normalize()

	matches := make([]feed.Match, 0)
	for _, post := range Scanned(posts, cfg) {
		reasons, criteria := Evaluate(post, cfg)
		if len(reasons) == 0 {
			continue
		}
		matches = append(matches, feed.Match{Post: post, Reasons: reasons, MatchedCriteria: criteria})
	}

	if cfg.Ordering == feed.OrderRanked {
		sort.SliceStable(matches, func(i, j int) bool {
			if len(matches[i].Reasons) != len(matches[j].Reasons) {
				return len(matches[i].Reasons) > len(matches[j].Reasons)
			}
			return EngagementScore(matches[i].Post) > EngagementScore(matches[j].Post)
		})
	}

	if len(matches) > cfg.ShortlistSize {
		matches = matches[:cfg.ShortlistSize]
	}
	return matches
}

// EngagementScore weighs comments above reactions and adds a small follower term.
func EngagementScore(p feed.Post) float64 {
	return float64(p.ReactionCount())*2 + float64(p.CommentCount())*5 + float64(p.FollowerCount())/1000
}

// Analyze selects the shortlist and, when it is empty, attaches the
// exclusion summary explaining why.
func Analyze(posts []feed.Post, cfg feed.RuleConfig) feed.AnalysisResult {
	cfg = cfg.Normalize()
	r := feed.AnalysisResult{
		Config:        cfg,
		TotalAnalyzed: len(Scanned(posts, cfg)),
		Shortlisted:   Select(posts, cfg),
	}
	if len(r.Shortlisted) == 0 {
		summary := Diagnose(posts, cfg)
		r.ExclusionSummary = &summary
	}
	return r
}
