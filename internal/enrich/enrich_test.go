package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
	prompts  []string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

// scriptedProvider returns one response per call, in order.
type scriptedProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedProvider) Generate(_ context.Context, _ string, _ int) (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.responses[i], err
}

func (s *scriptedProvider) IsConfigured() bool { return true }

// slowProvider blocks until the call context is done.
type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ string, _ int) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (slowProvider) IsConfigured() bool { return true }

func intp(n int) *int { return &n }

func sampleShortlist(n int) []feed.Match {
	out := make([]feed.Match, n)
	for i := range out {
		out[i] = feed.Match{
			Post: feed.Post{
				ID:         fmt.Sprintf("p%d", i),
				AuthorName: fmt.Sprintf("Author %d", i),
				Content:    fmt.Sprintf("Thoughts on agents, part %d", i),
				Reactions:  intp(10 * i),
				Comments:   intp(i),
			},
			Reasons: []feed.Reason{feed.ReasonHashtag},
		}
	}
	return out
}

func assertComplete(t *testing.T, shortlist []feed.Match, got []feed.Enrichment) {
	t.Helper()
	if len(got) != len(shortlist) {
		t.Fatalf("expected %d enrichments, got %d", len(shortlist), len(got))
	}
	for i, en := range got {
		if en.PostID != shortlist[i].ID {
			t.Errorf("enrichment %d: expected post %s, got %s", i, shortlist[i].ID, en.PostID)
		}
		if en.Summary == "" || en.SuggestedReaction == "" || en.CommentForRepost == "" || en.CommentForReply == "" {
			t.Errorf("enrichment %d has empty fields: %+v", i, en)
		}
	}
}

func TestEnrichWithLabeledResponse(t *testing.T) {
	p := &mockProvider{response: "SUMMARY: Sharp take on agent evals.\nREACTION: support\nREPOST_COMMENT: The eval harness point is key.\nREPLY_COMMENT: How do you version the prompts?"}
	shortlist := sampleShortlist(2)

	got := NewEnricher(p, Options{}).Enrich(context.Background(), shortlist, nil)

	assertComplete(t, shortlist, got)
	want := feed.Enrichment{
		PostID:            "p0",
		Summary:           "Sharp take on agent evals.",
		SuggestedReaction: feed.ReactionSupport,
		CommentForRepost:  "The eval harness point is key.",
		CommentForReply:   "How do you version the prompts?",
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("enrichment mismatch (-want +got):\n%s", diff)
	}
	if len(p.prompts) != 2 {
		t.Errorf("expected one call per post, got %d", len(p.prompts))
	}
}

func TestEnrichWithoutProviderUsesDefaults(t *testing.T) {
	shortlist := sampleShortlist(3)
	got := NewEnricher(nil, Options{}).Enrich(context.Background(), shortlist, nil)

	assertComplete(t, shortlist, got)
	for i, en := range got {
		if diff := cmp.Diff(Fallback(shortlist[i]), en); diff != "" {
			t.Errorf("post %d: expected fallback (-want +got):\n%s", i, diff)
		}
	}
}

func TestEnrichAbsorbsFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider *mockProvider
	}{
		{"error", &mockProvider{err: errors.New("connection refused")}},
		{"empty", &mockProvider{response: "   \n  "}},
		{"garbage json", &mockProvider{response: "{\"nope\": 1}"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shortlist := sampleShortlist(3)
			got := NewEnricher(tt.provider, Options{}).Enrich(context.Background(), shortlist, nil)
			assertComplete(t, shortlist, got)
			for i, en := range got {
				if en != Fallback(shortlist[i]) {
					t.Errorf("post %d: expected fallback, got %+v", i, en)
				}
			}
		})
	}
}

func TestEnrichGarbageTextStillComplete(t *testing.T) {
	p := &mockProvider{response: "I'm sorry, I can't help with that."}
	shortlist := sampleShortlist(2)

	got := NewEnricher(p, Options{}).Enrich(context.Background(), shortlist, nil)

	assertComplete(t, shortlist, got)
	if got[0].SuggestedReaction != feed.ReactionLike {
		t.Errorf("expected default reaction Like, got %s", got[0].SuggestedReaction)
	}
	if got[0].CommentForReply != Fallback(shortlist[0]).CommentForReply {
		t.Errorf("expected default reply, got %q", got[0].CommentForReply)
	}
}

func TestEnrichMixedOutcomesKeepOrder(t *testing.T) {
	p := &scriptedProvider{
		responses: []string{
			"SUMMARY: first",
			"",
			"Line 1: third\nLine 2: Insightful\nLine 3: repost three\nLine 4: reply three",
		},
		errs: []error{nil, errors.New("timeout"), nil},
	}
	shortlist := sampleShortlist(3)

	var events []Progress
	got := NewEnricher(p, Options{}).Enrich(context.Background(), shortlist, func(pr Progress) {
		events = append(events, pr)
	})

	assertComplete(t, shortlist, got)
	if got[0].Summary != "first" || got[0].CommentForRepost != Fallback(shortlist[0]).CommentForRepost {
		t.Errorf("expected partial fill for first post, got %+v", got[0])
	}
	if got[1] != Fallback(shortlist[1]) {
		t.Errorf("expected fallback for second post, got %+v", got[1])
	}
	if got[2].SuggestedReaction != feed.ReactionInsightful || got[2].CommentForReply != "reply three" {
		t.Errorf("unexpected third enrichment: %+v", got[2])
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 progress events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Index != i+1 || ev.Total != 3 || ev.PostID != shortlist[i].ID {
			t.Errorf("event %d: unexpected %+v", i, ev)
		}
	}
	if events[0].Fallback || !events[1].Fallback || events[2].Fallback {
		t.Errorf("unexpected fallback flags: %v %v %v", events[0].Fallback, events[1].Fallback, events[2].Fallback)
	}
}

func TestEnrichEmptyShortlist(t *testing.T) {
	called := false
	got := NewEnricher(&mockProvider{}, Options{}).Enrich(context.Background(), nil, func(Progress) { called = true })
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
	if called {
		t.Error("expected no progress events")
	}
}

func TestEnrichTimeoutFallsBack(t *testing.T) {
	shortlist := sampleShortlist(2)
	start := time.Now()
	got := NewEnricher(slowProvider{}, Options{Timeout: 20 * time.Millisecond}).Enrich(context.Background(), shortlist, nil)

	assertComplete(t, shortlist, got)
	if got[0] != Fallback(shortlist[0]) {
		t.Errorf("expected fallback after timeout, got %+v", got[0])
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expected per-post timeout to apply, took %v", elapsed)
	}
}

func TestNewEnricherDefaults(t *testing.T) {
	e := NewEnricher(nil, Options{MaxTokens: 200})
	want := Options{ContentLimit: 3000, MaxTokens: 200, Timeout: 60 * time.Second}
	if diff := cmp.Diff(want, e.opts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestFallback(t *testing.T) {
	m := feed.Match{
		Post:    feed.Post{ID: "x", AuthorName: "Jane Doe", Reactions: intp(42), Comments: intp(7)},
		Reasons: []feed.Reason{feed.ReasonHighEngagement, feed.ReasonWatchlist},
	}
	want := feed.Enrichment{
		PostID:            "x",
		Summary:           "Shortlisted because: high_engagement, watchlist_author. Author: Jane Doe; engagement: 42 reactions, 7 comments.",
		SuggestedReaction: feed.ReactionLike,
		CommentForRepost:  "Noted, Jane Doe's post stood out. Add your own take when reposting.",
		CommentForReply:   "Add a short reply that references something specific from Jane Doe's post above.",
	}
	if diff := cmp.Diff(want, Fallback(m)); diff != "" {
		t.Errorf("fallback mismatch (-want +got):\n%s", diff)
	}
}

func TestFallbackUnknownAuthor(t *testing.T) {
	for _, name := range []string{"Unknown", ""} {
		en := Fallback(feed.Match{Post: feed.Post{ID: "x", AuthorName: name}})
		if !strings.Contains(en.CommentForRepost, "the author's post") {
			t.Errorf("author %q: expected generic author, got %q", name, en.CommentForRepost)
		}
		if !strings.Contains(en.Summary, "Author: Unknown;") {
			t.Errorf("author %q: expected Unknown in summary, got %q", name, en.Summary)
		}
		if !strings.Contains(en.Summary, "0 reactions, 0 comments") {
			t.Errorf("expected zero counts, got %q", en.Summary)
		}
	}
}

func TestProgressString(t *testing.T) {
	p := Progress{Index: 2, Total: 5, PostID: "p1", Author: "Jane", Elapsed: 1500 * time.Millisecond}
	if got := p.String(); got != "Enriched 2/5 (Jane) in 1500ms" {
		t.Errorf("unexpected progress line %q", got)
	}
	p.Author = ""
	p.Fallback = true
	if got := p.String(); got != "Enriched 2/5 (p1) in 1500ms, using defaults" {
		t.Errorf("unexpected progress line %q", got)
	}
}
