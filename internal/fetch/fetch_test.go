package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Post</title></head>
<body>
<nav>Home | Jobs | Messaging</nav>
<article>
<h1>Shipping our first agent</h1>
<p>We spent three months building an internal agent that triages support tickets.
The biggest lesson was that evaluation harnesses matter more than prompt tweaks. #AI</p>
<p>Happy to share the checklist we used with anyone who is starting a similar project.</p>
</article>
</body></html>`

func TestFillMissingContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	posts := []feed.Post{
		{ID: "has", URL: srv.URL + "/has", Content: "already here"},
		{ID: "empty", URL: srv.URL + "/empty"},
		{ID: "nourl"},
	}

	got, result := NewContentFetcher(5*time.Second).FillMissingContent(context.Background(), posts)

	if result.AlreadyHadContent != 1 || result.Fetched != 1 || result.Failed != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if got[0].Content != "already here" {
		t.Errorf("expected existing content kept, got %q", got[0].Content)
	}
	if got[1].Content == "" {
		t.Fatal("expected fetched content")
	}
	if len(got[1].Hashtags) != 1 || got[1].Hashtags[0] != "AI" {
		t.Errorf("expected hashtags extracted from fetched content, got %v", got[1].Hashtags)
	}
	if posts[1].Content != "" {
		t.Error("expected input posts to be left untouched")
	}
}

func TestFillMissingContentSkipsFailedHost(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	posts := []feed.Post{
		{ID: "a", URL: srv.URL + "/a"},
		{ID: "b", URL: srv.URL + "/b"},
		{ID: "c", URL: srv.URL + "/c"},
	}

	got, result := NewContentFetcher(5*time.Second).FillMissingContent(context.Background(), posts)

	if result.Failed != 3 || result.Fetched != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected one request before skipping host, got %d", n)
	}
	for _, p := range got {
		if p.Content != "" {
			t.Errorf("expected empty content for %s, got %q", p.ID, p.Content)
		}
	}
}

func TestFillMissingContentTooShort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>Sign in</p></body></html>")
	}))
	defer srv.Close()

	got, result := NewContentFetcher(0).FillMissingContent(context.Background(), []feed.Post{{ID: "x", URL: srv.URL}})
	if result.Failed != 1 || got[0].Content != "" {
		t.Errorf("expected login wall to count as failure, got %+v / %q", result, got[0].Content)
	}
}
