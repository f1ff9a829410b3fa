package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/config"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/database"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/enrich"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/fetch"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/llm"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/report"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/shortlist"
)

// ErrNoCapture is returned when there is no capture to analyze.
var ErrNoCapture = errors.New("no capture found; run 'feedanalyzer import' or the browser extension first")

const totalSteps = 5

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	CaptureID  string
	Steps      []StepResult
	Analysis   *feed.AnalysisResult
	Report     string
	AnalysisID int64
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline orchestrates load -> fetch -> analyze -> enrich -> report.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	provider llm.Provider
	progress enrich.ProgressFunc
}

// New creates a new pipeline. provider may be nil.
func New(cfg *config.Config, db *database.DB, provider llm.Provider) *Pipeline {
	return &Pipeline{cfg: cfg, db: db, provider: provider}
}

// OnProgress registers a callback for per-post enrichment progress.
func (p *Pipeline) OnProgress(fn enrich.ProgressFunc) {
	p.progress = fn
}

// ProviderSettings maps the enrichment config onto provider settings.
func ProviderSettings(cfg *config.Config) llm.Settings {
	e := cfg.Enrichment
	return llm.Settings{
		Provider:          e.Provider,
		Model:             e.Model,
		OllamaURL:         e.OllamaURL,
		OpenAIModel:       e.OpenAIModel,
		OpenAIKeyEnv:      e.APIKeyEnv,
		HuggingFaceURL:    e.HuggingFaceURL,
		HuggingFaceKeyEnv: e.HuggingFaceKeyEnv,
		LMStudioURL:       e.LMStudioURL,
		LMStudioModel:     e.LMStudioModel,
		GeminiModel:       e.GeminiModel,
		GeminiKeyEnv:      e.GeminiKeyEnv,
	}
}

// NewProvider creates the configured provider, paced by the configured delay.
// Returns nil when no provider is available.
func NewProvider(cfg *config.Config) llm.Provider {
	return llm.Paced(llm.CreateProvider(ProviderSettings(cfg)), cfg.Enrichment.Delay)
}

// EnrichOptions maps the enrichment config onto enricher options.
func EnrichOptions(cfg *config.Config) enrich.Options {
	e := cfg.Enrichment
	return enrich.Options{ContentLimit: e.ContentLimit, MaxTokens: e.MaxTokens, Timeout: e.Timeout}
}

// Run executes the pipeline on the given capture, or the latest one when
// captureID is empty.
func (p *Pipeline) Run(ctx context.Context, captureID string) *Result {
	r := &Result{}

	// Step 1: Load
	capture, step := p.runLoad(captureID)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.CaptureID = capture.ID
	posts := capture.Posts

	// Step 2: Fetch content
	posts, step = p.runFetch(ctx, posts)
	r.Steps = append(r.Steps, step)

	// Step 3: Analyze
	result, step := p.runAnalyze(posts)
	r.Steps = append(r.Steps, step)

	// Step 4: Enrich
	result.Enrichments, step = p.runEnrich(ctx, result.Shortlisted)
	r.Steps = append(r.Steps, step)
	r.Analysis = &result

	// Step 5: Report
	r.Report, r.AnalysisID, step = p.runReport(capture.ID, result)
	r.Steps = append(r.Steps, step)

	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun(captureID string) *Result {
	r := &Result{}

	capture, step := p.runLoad(captureID)
	step.Summary = "[dry-run] " + step.Summary
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.CaptureID = capture.ID

	missing := 0
	for _, post := range capture.Posts {
		if post.Content == "" && post.URL != "" {
			missing++
		}
	}
	fetchSummary := fmt.Sprintf("[dry-run] %d posts need content fetching", missing)
	if !p.cfg.Fetch.Enabled {
		fetchSummary = "[dry-run] Content fetching disabled"
	}
	r.Steps = append(r.Steps, StepResult{Name: "Fetch", Summary: fetchSummary})

	rules := p.cfg.Rules.Normalize()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("[dry-run] Would scan %d posts for up to %d shortlist entries", len(shortlist.Scanned(capture.Posts, rules)), rules.ShortlistSize),
	})
	r.Steps = append(r.Steps, StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("[dry-run] Would enrich with %s", llm.Label(p.provider)),
	})
	r.Steps = append(r.Steps, StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("[dry-run] Would save analysis for capture %s", capture.ID),
	})
	return r
}

func (p *Pipeline) runLoad(captureID string) (*database.Capture, StepResult) {
	log.Printf("Step 1/%d: Loading capture...", totalSteps)
	var (
		capture *database.Capture
		err     error
	)
	if captureID == "" {
		capture, err = p.db.LatestCapture()
	} else {
		capture, err = p.db.GetCapture(captureID)
	}
	if err != nil {
		return nil, StepResult{Name: "Load", Err: fmt.Errorf("loading capture: %w", err)}
	}
	if capture == nil {
		if captureID != "" {
			return nil, StepResult{Name: "Load", Err: fmt.Errorf("capture %s not found", captureID)}
		}
		return nil, StepResult{Name: "Load", Err: ErrNoCapture}
	}
	return capture, StepResult{
		Name:    "Load",
		Summary: fmt.Sprintf("Loaded capture %s (%s, %d posts)", capture.ID, capture.Source, len(capture.Posts)),
	}
}

func (p *Pipeline) runFetch(ctx context.Context, posts []feed.Post) ([]feed.Post, StepResult) {
	log.Printf("Step 2/%d: Fetching missing post content...", totalSteps)
	if !p.cfg.Fetch.Enabled {
		return posts, StepResult{Name: "Fetch", Summary: "Content fetching disabled"}
	}
	fetcher := fetch.NewContentFetcher(p.cfg.Fetch.Timeout)
	filled, result := fetcher.FillMissingContent(ctx, posts)
	return filled, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d posts, %d failed, %d already had content", result.Fetched, result.Failed, result.AlreadyHadContent),
	}
}

func (p *Pipeline) runAnalyze(posts []feed.Post) (feed.AnalysisResult, StepResult) {
	log.Printf("Step 3/%d: Shortlisting posts...", totalSteps)
	result := shortlist.Analyze(posts, p.cfg.Rules)
	summary := fmt.Sprintf("Shortlisted %d of %d posts", len(result.Shortlisted), result.TotalAnalyzed)
	if result.ExclusionSummary != nil && len(result.ExclusionSummary.WhyNoShortlists) > 0 {
		summary += ": " + result.ExclusionSummary.WhyNoShortlists[0]
	}
	return result, StepResult{Name: "Analyze", Summary: summary}
}

func (p *Pipeline) runEnrich(ctx context.Context, shortlisted []feed.Match) ([]feed.Enrichment, StepResult) {
	log.Printf("Step 4/%d: Enriching shortlisted posts...", totalSteps)
	if len(shortlisted) == 0 {
		return []feed.Enrichment{}, StepResult{Name: "Enrich", Summary: "Nothing to enrich"}
	}

	fallbacks := 0
	enricher := enrich.NewEnricher(p.provider, EnrichOptions(p.cfg))
	enrichments := enricher.Enrich(ctx, shortlisted, func(pr enrich.Progress) {
		if pr.Fallback {
			fallbacks++
		}
		if p.progress != nil {
			p.progress(pr)
		}
	})
	return enrichments, StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("Enriched %d posts with %s (%d used defaults)", len(enrichments), llm.Label(p.provider), fallbacks),
	}
}

func (p *Pipeline) runReport(captureID string, result feed.AnalysisResult) (string, int64, StepResult) {
	log.Printf("Step 5/%d: Composing report...", totalSteps)
	label := llm.Label(p.provider)
	md := report.Compose(result, label)
	id, err := p.db.InsertAnalysis(captureID, label, result, md)
	if err != nil {
		return md, 0, StepResult{Name: "Report", Err: fmt.Errorf("saving analysis: %w", err)}
	}
	return md, id, StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Saved analysis %d for capture %s", id, captureID),
	}
}
