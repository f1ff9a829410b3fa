package feed

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Post is a single feed post as captured by the browser extension or imported from a file.
type Post struct {
	ID               string   `json:"id"`
	URL              string   `json:"url"`
	AuthorName       string   `json:"authorName"`
	AuthorProfileURL string   `json:"authorProfileUrl,omitempty"`
	AuthorFollowers  *int     `json:"authorFollowers,omitempty"`
	Content          string   `json:"content"`
	Reactions        *int     `json:"reactions,omitempty"`
	Comments         *int     `json:"comments,omitempty"`
	Reposts          *int     `json:"reposts,omitempty"`
	Hashtags         []string `json:"hashtags"`
	CommentSnippets  []string `json:"commentSnippets,omitempty"`
	PostedAt         string   `json:"postedAt,omitempty"`
}

// ReactionCount returns the reaction count, 0 when it was not captured.
func (p Post) ReactionCount() int { return deref(p.Reactions) }

// CommentCount returns the comment count, 0 when it was not captured.
func (p Post) CommentCount() int { return deref(p.Comments) }

// RepostCount returns the repost count, 0 when it was not captured.
func (p Post) RepostCount() int { return deref(p.Reposts) }

// FollowerCount returns the author's follower count, 0 when it was not captured.
func (p Post) FollowerCount() int { return deref(p.AuthorFollowers) }

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// Ordering selects how matched posts are ordered before the shortlist is cut.
type Ordering string

const (
	// OrderInsertion keeps matches in feed order.
	OrderInsertion Ordering = "insertion"
	// OrderRanked sorts by reason count, then by weighted engagement.
	OrderRanked Ordering = "ranked"
)

// RuleConfig holds the shortlisting criteria. A rule is disabled by leaving
// its data empty; there are no separate enable flags.
type RuleConfig struct {
	MaxPostsToAnalyze int      `json:"maxPostsToAnalyze" yaml:"max_posts_to_analyze"`
	ShortlistSize     int      `json:"shortlistSize" yaml:"shortlist_size"`
	MinReactions      int      `json:"minReactions" yaml:"min_reactions"`
	MinComments       int      `json:"minComments" yaml:"min_comments"`
	MinReposts        int      `json:"minReposts" yaml:"min_reposts"`
	MinFollowers      int      `json:"minFollowers" yaml:"min_followers"`
	RequireFollowers  bool     `json:"requireFollowers" yaml:"require_followers"`
	MentionKeyword    string   `json:"mentionKeyword" yaml:"mention_keyword"`
	Watchlist         []string `json:"watchlist" yaml:"watchlist"`
	Hashtags          []string `json:"hashtags" yaml:"hashtags"`
	Ordering          Ordering `json:"ordering,omitempty" yaml:"ordering"`
}

// Normalize clamps bounds to at least 1, negative thresholds to 0, and drops
// blank list entries. A blank watchlist entry would otherwise match every author.
func (c RuleConfig) Normalize() RuleConfig {
	if c.MaxPostsToAnalyze < 1 {
		c.MaxPostsToAnalyze = 1
	}
	if c.ShortlistSize < 1 {
		c.ShortlistSize = 1
	}
	c.MinReactions = max(c.MinReactions, 0)
	c.MinComments = max(c.MinComments, 0)
	c.MinReposts = max(c.MinReposts, 0)
	c.MinFollowers = max(c.MinFollowers, 0)
	c.MentionKeyword = strings.TrimSpace(c.MentionKeyword)
	c.Watchlist = compact(c.Watchlist)
	c.Hashtags = compact(c.Hashtags)
	if c.Ordering != OrderRanked {
		c.Ordering = OrderInsertion
	}
	return c
}

func compact(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Reason tags why a post was shortlisted.
type Reason string

const (
	ReasonHighEngagement Reason = "high_engagement"
	ReasonMentionsMe     Reason = "mentions_me"
	ReasonWatchlist      Reason = "watchlist_author"
	ReasonHashtag        Reason = "hashtag_match"
)

// Match is a shortlisted post with the reasons it qualified.
type Match struct {
	Post
	Reasons         []Reason `json:"shortlistReasons"`
	MatchedCriteria []string `json:"matchedCriteria"`
}

// ReasonList joins the reason tags with ", ".
func (m Match) ReasonList() string {
	parts := make([]string, len(m.Reasons))
	for i, r := range m.Reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

// Reaction is one of LinkedIn's reaction types.
type Reaction string

const (
	ReactionLike       Reaction = "Like"
	ReactionCelebrate  Reaction = "Celebrate"
	ReactionSupport    Reaction = "Support"
	ReactionLove       Reaction = "Love"
	ReactionInsightful Reaction = "Insightful"
	ReactionFunny      Reaction = "Funny"
)

// Reactions is the closed vocabulary; the first entry is the default.
var Reactions = []Reaction{
	ReactionLike, ReactionCelebrate, ReactionSupport,
	ReactionLove, ReactionInsightful, ReactionFunny,
}

// reactionAliases maps words older prompts produced onto the current set.
var reactionAliases = map[string]Reaction{
	"respect": ReactionSupport,
}

// ParseReaction matches a word case-insensitively against the vocabulary.
// Text that starts with a whole reaction word ("insightful." or "love it")
// also counts; "likely" does not.
func ParseReaction(s string) (Reaction, bool) {
	word := strings.ToLower(strings.TrimSpace(s))
	if word == "" {
		return Reactions[0], false
	}
	for _, r := range Reactions {
		if hasWordPrefix(word, strings.ToLower(string(r))) {
			return r, true
		}
	}
	for alias, r := range reactionAliases {
		if hasWordPrefix(word, alias) {
			return r, true
		}
	}
	return Reactions[0], false
}

// hasWordPrefix reports whether s starts with prefix followed by the end of
// s or a non-letter.
func hasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(s[len(prefix):])
	return next == utf8.RuneError || !unicode.IsLetter(next)
}

// Enrichment holds engagement suggestions for one shortlisted post.
type Enrichment struct {
	PostID            string   `json:"postId"`
	Summary           string   `json:"summary"`
	SuggestedReaction Reaction `json:"suggestedReaction"`
	CommentForRepost  string   `json:"commentForRepost"`
	CommentForReply   string   `json:"commentForReply"`
}

// Thresholds are the active high-engagement minimums.
type Thresholds struct {
	MinReactions int `json:"minReactions"`
	MinComments  int `json:"minComments"`
	MinReposts   int `json:"minReposts"`
}

// ExclusionSummary explains why nothing was shortlisted.
type ExclusionSummary struct {
	TotalPosts                       int        `json:"totalPosts"`
	ConfigHashtags                   int        `json:"configHashtags"`
	ConfigWatchlist                  int        `json:"configWatchlist"`
	HasMentionKeyword                bool       `json:"hasMentionKeyword"`
	FeedPostsWithContent             int        `json:"feedPostsWithContent"`
	FeedPostsWithHashtags            int        `json:"feedPostsWithHashtags"`
	FeedPostsWithReactionsOrComments int        `json:"feedPostsWithReactionsOrComments"`
	FeedPostsWithReposts             int        `json:"feedPostsWithReposts"`
	HighEngagementThresholds         Thresholds `json:"highEngagementThresholds"`
	WhyNoShortlists                  []string   `json:"whyNoShortlists"`
}

// AnalysisResult is the outcome of one shortlisting run.
// ExclusionSummary is set exactly when Shortlisted is empty.
type AnalysisResult struct {
	Config           RuleConfig        `json:"config"`
	TotalAnalyzed    int               `json:"totalAnalyzed"`
	Shortlisted      []Match           `json:"shortlisted"`
	Enrichments      []Enrichment      `json:"enrichments,omitempty"`
	ExclusionSummary *ExclusionSummary `json:"exclusionSummary,omitempty"`
}
