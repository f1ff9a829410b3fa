package collect

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/config"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/database"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

// Result holds the results of an import.
type Result struct {
	CaptureID string
	Posts     int
	Source    string
}

// Collector imports posts from files or RSS feeds and stores them as captures.
type Collector struct {
	store      database.CaptureStore
	feedParser *FeedParser
}

// NewCollector creates a collector using the feeds configured in cfg.
func NewCollector(cfg *config.Config, store database.CaptureStore) *Collector {
	feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
	for i, f := range cfg.Sources.Feeds {
		feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
	}
	return &Collector{store: store, feedParser: NewFeedParser(feeds)}
}

// ImportFile reads a JSON export (array or {"posts": [...]}) and stores it.
func (c *Collector) ImportFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	posts, err := feed.DecodePosts(data)
	if err != nil {
		return nil, err
	}
	return c.save("file", posts)
}

// ImportRSS parses the given feed URLs, or the configured feeds when urls
// is empty, and stores the posts as one capture.
func (c *Collector) ImportRSS(ctx context.Context, urls ...string) (*Result, error) {
	fp := c.feedParser
	if len(urls) > 0 {
		feeds := make([]FeedConfig, len(urls))
		for i, u := range urls {
			feeds[i] = FeedConfig{URL: u}
		}
		fp = NewFeedParser(feeds)
	}
	if len(fp.feeds) == 0 {
		return nil, fmt.Errorf("no RSS feeds configured; pass --rss or add sources.feeds to the config")
	}

	posts := fp.ParseAll(ctx)
	if len(posts) == 0 {
		return nil, fmt.Errorf("no posts found in %d feed(s)", len(fp.feeds))
	}
	return c.save("rss", posts)
}

func (c *Collector) save(source string, posts []feed.Post) (*Result, error) {
	id, err := c.store.SaveCapture(source, posts)
	if err != nil {
		return nil, fmt.Errorf("saving capture: %w", err)
	}
	log.Printf("Import complete: %d posts from %s saved as capture %s", len(posts), source, id)
	return &Result{CaptureID: id, Posts: len(posts), Source: source}, nil
}
