package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

const (
	// minContentLength is the shortest extracted text, in runes, accepted as post content.
	minContentLength = 40
	maxPageBytes     = 4 << 20
	userAgent        = "feedanalyzer/1.0 (+content fill)"
)

// Result holds the results of a content fetch run.
type Result struct {
	Fetched           int
	AlreadyHadContent int
	Failed            int
}

// ContentFetcher fills missing post content via HTTP + readability extraction.
type ContentFetcher struct {
	client *http.Client
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FillMissingContent returns a copy of posts where empty content has been
// fetched from the post URL. Posts that cannot be fetched keep their empty
// content. After an HTTP error the remaining posts from that host are skipped.
func (f *ContentFetcher) FillMissingContent(ctx context.Context, posts []feed.Post) ([]feed.Post, *Result) {
	out := make([]feed.Post, len(posts))
	copy(out, posts)

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for i := range out {
		p := &out[i]
		if strings.TrimSpace(p.Content) != "" {
			result.AlreadyHadContent++
			continue
		}
		if p.URL == "" {
			result.Failed++
			continue
		}

		u, _ := url.Parse(p.URL)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		content, httpErr := f.fetchPostContent(ctx, p.URL)
		if httpErr != nil {
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("%v for %s, skipping remaining posts from %s", httpErr, p.URL, domain)
			continue
		}

		if content != "" {
			p.Content = content
			if len(p.Hashtags) == 0 {
				p.Hashtags = feed.ExtractHashtags(content)
			}
			result.Fetched++
			log.Printf("Fetched content for post %s", p.ID)
		} else {
			result.Failed++
			log.Printf("No extractable content from: %s", p.URL)
		}
	}

	if result.Fetched > 0 || result.Failed > 0 {
		log.Printf("Content fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	}
	return out, result
}

// fetchPostContent returns the readable text of a post page. Only HTTP
// status errors are returned; unreachable hosts and pages without enough
// text yield "" so the post keeps its empty content.
func (f *ContentFetcher) fetchPostContent(ctx context.Context, postURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, postURL, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("Fetch failed for %s: %v", postURL, err)
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), resp.Request.URL)
	if err != nil {
		return "", nil
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if utf8.RuneCountInString(text) < minContentLength {
		return "", nil
	}
	return text, nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.code, http.StatusText(e.code))
}
