package collect

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

const maxPerFeed = 100

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser turns RSS/Atom feeds (typically bridge feeds of a profile or
// hashtag) into posts.
type FeedParser struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig) *FeedParser {
	return &FeedParser{feeds: feeds, parser: gofeed.NewParser()}
}

// ParseAll parses all configured feeds. A feed that fails is logged and skipped.
func (fp *FeedParser) ParseAll(ctx context.Context) []feed.Post {
	var all []feed.Post
	for _, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		parsed, err := fp.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		posts := postsFromFeed(parsed)
		all = append(all, posts...)
		log.Printf("Parsed %d posts from %s", len(posts), name)
	}
	return all
}

// ParseString parses feed XML or JSON already in memory.
func (fp *FeedParser) ParseString(data string) ([]feed.Post, error) {
	parsed, err := fp.parser.ParseString(data)
	if err != nil {
		return nil, err
	}
	return postsFromFeed(parsed), nil
}

func postsFromFeed(f *gofeed.Feed) []feed.Post {
	var posts []feed.Post
	for _, item := range f.Items {
		if len(posts) >= maxPerFeed {
			break
		}
		if p, ok := parseItem(item); ok {
			posts = append(posts, p)
		}
	}
	return posts
}

func parseItem(item *gofeed.Item) (feed.Post, bool) {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return feed.Post{}, false
	}

	id := item.GUID
	if id == "" {
		id = itemURL
	}

	var content string
	if item.Content != "" {
		content = stripHTML(item.Content)
	} else if item.Description != "" {
		content = stripHTML(item.Description)
	}
	if content == "" {
		content = strings.TrimSpace(item.Title)
	}

	author := "Unknown"
	switch {
	case item.Author != nil && item.Author.Name != "":
		author = item.Author.Name
	case len(item.Authors) > 0 && item.Authors[0] != nil && item.Authors[0].Name != "":
		author = item.Authors[0].Name
	}

	var postedAt string
	if item.PublishedParsed != nil {
		postedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		postedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	return feed.Post{
		ID:         id,
		URL:        itemURL,
		AuthorName: author,
		Content:    content,
		Hashtags:   mergeTags(item.Categories, feed.ExtractHashtags(content)),
		PostedAt:   postedAt,
	}, true
}

// mergeTags joins category and inline tags, dropping '#' and case-insensitive duplicates.
func mergeTags(lists ...[]string) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, list := range lists {
		for _, t := range list {
			t = strings.TrimPrefix(strings.TrimSpace(t), "#")
			key := strings.ToLower(t)
			if t == "" || seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, t)
		}
	}
	return tags
}

func stripHTML(text string) string {
	// Simple HTML tag removal
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	// Decode common entities
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	// Normalize whitespace
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
