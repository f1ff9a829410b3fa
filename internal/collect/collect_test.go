package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/config"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/database"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Jane Doe on LinkedIn</title>
  <link>https://www.linkedin.com/in/janedoe</link>
  <item>
    <title>Shipping agents</title>
    <link>https://www.linkedin.com/feed/update/urn:li:activity:1</link>
    <guid>urn:li:activity:1</guid>
    <dc:creator>Jane Doe</dc:creator>
    <category>#Golang</category>
    <description>&lt;p&gt;We shipped our first agent &amp;amp; learned a lot. #AI #golang&lt;/p&gt;</description>
    <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Title only</title>
    <link>https://www.linkedin.com/feed/update/urn:li:activity:2</link>
  </item>
  <item>
    <title>No link at all</title>
  </item>
</channel>
</rss>`

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestParseStringRSS(t *testing.T) {
	posts, err := NewFeedParser(nil).ParseString(sampleRSS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts (item without link skipped), got %d", len(posts))
	}

	first := posts[0]
	if first.ID != "urn:li:activity:1" {
		t.Errorf("expected guid as id, got %q", first.ID)
	}
	if first.AuthorName != "Jane Doe" {
		t.Errorf("expected author from dc:creator, got %q", first.AuthorName)
	}
	if first.Content != "We shipped our first agent & learned a lot. #AI #golang" {
		t.Errorf("unexpected content %q", first.Content)
	}
	if diff := cmp.Diff([]string{"Golang", "AI"}, first.Hashtags); diff != "" {
		t.Errorf("hashtags mismatch (-want +got):\n%s", diff)
	}
	if first.PostedAt != "2026-03-02T10:00:00Z" {
		t.Errorf("unexpected postedAt %q", first.PostedAt)
	}

	second := posts[1]
	if second.ID != second.URL {
		t.Errorf("expected link as id, got %q", second.ID)
	}
	if second.AuthorName != "Unknown" {
		t.Errorf("expected Unknown author, got %q", second.AuthorName)
	}
	if second.Content != "Title only" {
		t.Errorf("expected title as content, got %q", second.Content)
	}
	if second.Hashtags == nil {
		t.Error("expected non-nil hashtags")
	}
}

func TestImportRSSStoresCapture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	db := openTestDB(t)
	c := NewCollector(&config.Config{}, db)

	result, err := c.ImportRSS(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Posts != 2 || result.Source != "rss" {
		t.Errorf("unexpected result %+v", result)
	}

	latest, _ := db.LatestCapture()
	if latest == nil || latest.ID != result.CaptureID || len(latest.Posts) != 2 {
		t.Errorf("expected capture %s with 2 posts, got %+v", result.CaptureID, latest)
	}
}

func TestImportRSSWithoutFeeds(t *testing.T) {
	c := NewCollector(&config.Config{}, openTestDB(t))
	if _, err := c.ImportRSS(context.Background()); err == nil {
		t.Error("expected error without feeds")
	}
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")
	data := `{"posts": [{"id": "a", "authorName": "A", "content": "hi", "reactions": "1,200"}, {"content": "no author"}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	db := openTestDB(t)
	result, err := NewCollector(&config.Config{}, db).ImportFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Posts != 2 || result.Source != "file" {
		t.Errorf("unexpected result %+v", result)
	}

	latest, _ := db.LatestCapture()
	if latest == nil {
		t.Fatal("expected capture")
	}
	if got := latest.Posts[0].ReactionCount(); got != 1200 {
		t.Errorf("expected 1200 reactions, got %d", got)
	}
	if latest.Posts[1].AuthorName != "Unknown" {
		t.Errorf("expected Unknown author, got %q", latest.Posts[1].AuthorName)
	}
}

func TestImportFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`"nope"`), 0o644)

	if _, err := NewCollector(&config.Config{}, openTestDB(t)).ImportFile(path); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestExtractSourceName(t *testing.T) {
	tests := map[string]string{
		"https://feeds.example.com/janedoe.xml": "Example",
		"https://www.linkedin.com/in/janedoe":   "Linkedin",
		"not a url":                             "not a url",
	}
	for in, want := range tests {
		if got := extractSourceName(in); got != want {
			t.Errorf("extractSourceName(%q): expected %q, got %q", in, want, got)
		}
	}
}
