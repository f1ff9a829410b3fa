package database

import "github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"

// Capture is a stored snapshot of feed posts.
// Posts is nil when the capture was loaded by ListCaptures.
type Capture struct {
	ID        string
	Source    string // "extension", "file" or "rss"
	PostCount int
	CreatedAt *string
	Posts     []feed.Post
}

// Analysis is a stored shortlisting run.
type Analysis struct {
	ID               int64
	CaptureID        *string
	Provider         *string
	TotalAnalyzed    int
	ShortlistedCount int
	Result           feed.AnalysisResult
	ReportMarkdown   string
	CreatedAt        *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Captures         int
	CapturedPosts    int
	Analyses         int
	ShortlistedPosts int
	LatestCaptureAt  *string
	LatestAnalysisAt *string
}

// CaptureStore keeps the most recent feed captures.
type CaptureStore interface {
	SaveCapture(source string, posts []feed.Post) (string, error)
	LatestCapture() (*Capture, error)
	ListCaptures(limit int) ([]Capture, error)
}

var _ CaptureStore = (*DB)(nil)
