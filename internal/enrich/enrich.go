package enrich

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/llm"
)

// Options tune prompt construction and the per-post generation call.
type Options struct {
	ContentLimit int           // runes of post content included in the prompt
	MaxTokens    int           // generation budget per post
	Timeout      time.Duration // deadline for a single generation call
}

// DefaultOptions returns the settings used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		ContentLimit: 3000,
		MaxTokens:    500,
		Timeout:      60 * time.Second,
	}
}

// Progress describes one completed post.
type Progress struct {
	Index    int // 1-based
	Total    int
	PostID   string
	Author   string
	Elapsed  time.Duration
	Fallback bool // true when the default suggestions were used
}

// String renders the progress line shown to users.
func (p Progress) String() string {
	who := p.Author
	if who == "" {
		who = p.PostID
	}
	line := fmt.Sprintf("Enriched %d/%d (%s) in %dms", p.Index, p.Total, who, p.Elapsed.Milliseconds())
	if p.Fallback {
		line += ", using defaults"
	}
	return line
}

// ProgressFunc observes enrichment progress. It is called once per post, in order.
type ProgressFunc func(Progress)

// Enricher produces engagement suggestions for shortlisted posts.
type Enricher struct {
	provider llm.Provider
	opts     Options
}

// NewEnricher creates an enricher. A nil provider is valid: every post then
// gets the default suggestions.
func NewEnricher(provider llm.Provider, opts Options) *Enricher {
	def := DefaultOptions()
	if opts.ContentLimit <= 0 {
		opts.ContentLimit = def.ContentLimit
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = def.MaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	return &Enricher{provider: provider, opts: opts}
}

// Enrich returns one enrichment per shortlisted post, in the same order.
// Posts are processed one at a time with a single generation attempt each;
// any failure falls back to the defaults for that post and is never returned.
func (e *Enricher) Enrich(ctx context.Context, shortlist []feed.Match, progress ProgressFunc) []feed.Enrichment {
	out := make([]feed.Enrichment, 0, len(shortlist))
	for i, m := range shortlist {
		start := time.Now()
		en, generated := e.enrichPost(ctx, m)
		out = append(out, en)

		if progress != nil {
			progress(Progress{
				Index:    i + 1,
				Total:    len(shortlist),
				PostID:   m.ID,
				Author:   m.AuthorName,
				Elapsed:  time.Since(start),
				Fallback: !generated,
			})
		}
	}
	return out
}

// enrichPost reports whether any field came from the model.
func (e *Enricher) enrichPost(ctx context.Context, m feed.Match) (feed.Enrichment, bool) {
	def := Fallback(m)
	if e.provider == nil {
		return def, false
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	text, err := e.provider.Generate(callCtx, BuildPrompt(m, e.opts.ContentLimit), e.opts.MaxTokens)
	if err != nil {
		log.Printf("Enrich failed for post %s: %v", m.ID, err)
		return def, false
	}

	f, ok := ParseResponse(text)
	if !ok {
		log.Printf("Enrich response for post %s could not be parsed, using defaults", m.ID)
		return def, false
	}
	return merge(def, f), true
}

// merge fills the fields f lacks from def.
func merge(def feed.Enrichment, f Fields) feed.Enrichment {
	out := def
	if f.Summary != "" {
		out.Summary = f.Summary
	}
	if f.HasReaction {
		out.SuggestedReaction = f.Reaction
	}
	if f.Repost != "" {
		out.CommentForRepost = f.Repost
	}
	if f.Reply != "" {
		out.CommentForReply = f.Reply
	}
	return out
}

// Fallback builds deterministic suggestions from the post's own data.
func Fallback(m feed.Match) feed.Enrichment {
	reasons := m.ReasonList()
	if reasons == "" {
		reasons = "manual selection"
	}
	name := m.AuthorName
	if name == "" {
		name = "Unknown"
	}
	author := name
	if author == "Unknown" {
		author = "the author"
	}

	return feed.Enrichment{
		PostID: m.ID,
		Summary: fmt.Sprintf("Shortlisted because: %s. Author: %s; engagement: %d reactions, %d comments.",
			reasons, name, m.ReactionCount(), m.CommentCount()),
		SuggestedReaction: feed.Reactions[0],
		CommentForRepost:  fmt.Sprintf("Noted, %s's post stood out. Add your own take when reposting.", author),
		CommentForReply:   fmt.Sprintf("Add a short reply that references something specific from %s's post above.", author),
	}
}
