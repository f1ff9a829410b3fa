package shortlist

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

// samplePosts returns 10 low-engagement posts; posts 2, 5 and 8 carry #AI.
func samplePosts() []feed.Post {
	posts := make([]feed.Post, 10)
	for i := range posts {
		posts[i] = feed.Post{
			ID:         fmt.Sprintf("p%d", i),
			AuthorName: fmt.Sprintf("Author %d", i),
			Content:    fmt.Sprintf("Post number %d", i),
			Reactions:  intp(5 + i),
			Comments:   intp(1),
			Hashtags:   []string{"general"},
		}
	}
	for _, i := range []int{2, 5, 8} {
		posts[i].Hashtags = []string{"AI"}
	}
	return posts
}

func ids(matches []feed.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.ID
	}
	return out
}

func TestSelectHashtagScenario(t *testing.T) {
	cfg := feed.RuleConfig{
		MaxPostsToAnalyze: 10,
		ShortlistSize:     5,
		MinReactions:      100,
		MinComments:       10,
		MinReposts:        1,
		Hashtags:          []string{"AI"},
	}

	got := Select(samplePosts(), cfg)

	if diff := cmp.Diff([]string{"p2", "p5", "p8"}, ids(got)); diff != "" {
		t.Errorf("shortlist mismatch (-want +got):\n%s", diff)
	}
	for _, m := range got {
		if diff := cmp.Diff([]feed.Reason{feed.ReasonHashtag}, m.Reasons); diff != "" {
			t.Errorf("post %s reasons mismatch (-want +got):\n%s", m.ID, diff)
		}
	}
}

func TestSelectRespectsMaxPostsToAnalyze(t *testing.T) {
	cfg := feed.RuleConfig{MaxPostsToAnalyze: 5, ShortlistSize: 10, MinReactions: 1_000_000, Hashtags: []string{"AI"}}
	got := Select(samplePosts(), cfg)
	if diff := cmp.Diff([]string{"p2"}, ids(got)); diff != "" {
		t.Errorf("expected only matches in the first 5 posts (-want +got):\n%s", diff)
	}
}

func TestSelectTruncatesToShortlistSize(t *testing.T) {
	cfg := feed.RuleConfig{MaxPostsToAnalyze: 10, ShortlistSize: 2, MinReactions: 1_000_000, Hashtags: []string{"AI"}}
	got := Select(samplePosts(), cfg)
	if diff := cmp.Diff([]string{"p2", "p5"}, ids(got)); diff != "" {
		t.Errorf("expected first two matches (-want +got):\n%s", diff)
	}
}

func TestSelectClampsNonPositiveBounds(t *testing.T) {
	cfg := feed.RuleConfig{MaxPostsToAnalyze: 0, ShortlistSize: -1}
	got := Select(samplePosts(), cfg)
	// Zero thresholds make every post high-engagement; only the first is scanned.
	if diff := cmp.Diff([]string{"p0"}, ids(got)); diff != "" {
		t.Errorf("shortlist mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectEmptyInput(t *testing.T) {
	got := Select(nil, engagementConfig())
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil shortlist, got %#v", got)
	}
}

func TestSelectIsIdempotent(t *testing.T) {
	cfg := feed.RuleConfig{MaxPostsToAnalyze: 10, ShortlistSize: 5, MinReactions: 10, Hashtags: []string{"AI"}, Ordering: feed.OrderRanked}
	posts := samplePosts()
	first := Select(posts, cfg)
	second := Select(posts, cfg)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("expected identical results (-first +second):\n%s", diff)
	}
}

func TestSelectRankedOrdering(t *testing.T) {
	posts := []feed.Post{
		{ID: "a", AuthorName: "A", Hashtags: []string{"AI"}, Reactions: intp(10), Comments: intp(1)},
		{ID: "b", AuthorName: "Watched", Hashtags: []string{"AI"}, Reactions: intp(1)},
		{ID: "c", AuthorName: "C", Hashtags: []string{"AI"}, Reactions: intp(10), Comments: intp(4)},
		{ID: "d", AuthorName: "D", Hashtags: []string{"AI"}, Reactions: intp(10), Comments: intp(1)},
	}
	cfg := feed.RuleConfig{
		MaxPostsToAnalyze: 10,
		ShortlistSize:     3,
		MinReactions:      1_000,
		Watchlist:         []string{"watched"},
		Hashtags:          []string{"AI"},
		Ordering:          feed.OrderRanked,
	}

	got := Select(posts, cfg)

	// b has two reasons; c outscores a and d; a and d tie and keep feed order.
	if diff := cmp.Diff([]string{"b", "c", "a"}, ids(got)); diff != "" {
		t.Errorf("ranked order mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectInsertionOrderIgnoresEngagement(t *testing.T) {
	posts := []feed.Post{
		{ID: "low", Hashtags: []string{"AI"}, Reactions: intp(1)},
		{ID: "high", Hashtags: []string{"AI"}, Reactions: intp(900)},
	}
	cfg := feed.RuleConfig{MaxPostsToAnalyze: 10, ShortlistSize: 1, MinReactions: 1_000, Hashtags: []string{"AI"}}
	got := Select(posts, cfg)
	if diff := cmp.Diff([]string{"low"}, ids(got)); diff != "" {
		t.Errorf("insertion order mismatch (-want +got):\n%s", diff)
	}
}

func TestEngagementScore(t *testing.T) {
	p := feed.Post{Reactions: intp(10), Comments: intp(3), AuthorFollowers: intp(2500)}
	if got := EngagementScore(p); got != 37.5 {
		t.Errorf("expected 37.5, got %v", got)
	}
}

func TestAnalyzeSetsExclusionSummaryOnlyWhenEmpty(t *testing.T) {
	posts := samplePosts()

	hit := Analyze(posts, feed.RuleConfig{MaxPostsToAnalyze: 10, ShortlistSize: 5, MinReactions: 1_000_000, Hashtags: []string{"AI"}})
	if len(hit.Shortlisted) != 3 {
		t.Fatalf("expected 3 shortlisted, got %d", len(hit.Shortlisted))
	}
	if hit.ExclusionSummary != nil {
		t.Error("expected no exclusion summary when posts are shortlisted")
	}
	if hit.TotalAnalyzed != 10 {
		t.Errorf("expected 10 analyzed, got %d", hit.TotalAnalyzed)
	}

	miss := Analyze(posts, feed.RuleConfig{MaxPostsToAnalyze: 4, ShortlistSize: 5, MinReactions: 1_000_000})
	if len(miss.Shortlisted) != 0 {
		t.Fatalf("expected empty shortlist, got %d", len(miss.Shortlisted))
	}
	if miss.ExclusionSummary == nil {
		t.Fatal("expected exclusion summary for empty shortlist")
	}
	if miss.TotalAnalyzed != 4 {
		t.Errorf("expected 4 analyzed, got %d", miss.TotalAnalyzed)
	}
}
