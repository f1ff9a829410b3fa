package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/collect"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/config"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/database"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/enrich"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/llm"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/pipeline"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/report"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/server"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/shortlist"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "feedanalyzer",
	Short:   "Shortlist LinkedIn feed posts worth engaging with",
	Long:    "feedanalyzer shortlists captured LinkedIn feed posts by engagement, mentions, watchlist authors and hashtags, and suggests a reaction, a repost comment and a reply for each.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			if configPath != "" {
				return err
			}
			log.Println("No config file found, using built-in defaults")
			cfg = config.Default()
			return nil
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if strings.EqualFold(cfg.Logging.Level, "debug") {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(capturesCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("feedanalyzer", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/feedanalyzer/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your rules, watchlist, hashtags and text-generation provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Captures:")
		fmt.Printf("  Stored: %d (keeping %d)\n", stats.Captures, cfg.Captures.Retention)
		fmt.Printf("  Posts: %d\n", stats.CapturedPosts)
		fmt.Printf("  Latest: %s\n", orNone(stats.LatestCaptureAt))
		fmt.Println("\nAnalyses:")
		fmt.Printf("  Stored: %d\n", stats.Analyses)
		fmt.Printf("  Shortlisted posts: %d\n", stats.ShortlistedPosts)
		fmt.Printf("  Latest: %s\n", orNone(stats.LatestAnalysisAt))

		r := cfg.Rules
		fmt.Println("\nRules:")
		fmt.Printf("  Max posts: %d, shortlist size: %d, ordering: %s\n", r.MaxPostsToAnalyze, r.ShortlistSize, r.Ordering)
		fmt.Printf("  High engagement: %d reactions, %d comments, %d reposts\n", r.MinReactions, r.MinComments, r.MinReposts)
		fmt.Printf("  Mention keyword: %q\n", r.MentionKeyword)
		fmt.Printf("  Watchlist: %d entries, hashtags: %d\n", len(r.Watchlist), len(r.Hashtags))
		fmt.Printf("\nProvider: %s\n", cfg.Enrichment.Provider)
		return nil
	},
}

// --- import command ---

var importRSS bool

var importCmd = &cobra.Command{
	Use:   "import [file | --rss [url...]]",
	Short: "Import posts from a JSON export or RSS feeds as a new capture",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		collector := collect.NewCollector(cfg, db)

		var result *collect.Result
		if importRSS {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			result, err = collector.ImportRSS(ctx, args...)
		} else {
			if len(args) != 1 {
				return fmt.Errorf("expected one JSON file, or --rss")
			}
			result, err = collector.ImportFile(args[0])
		}
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d posts from %s as capture %s\n", result.Posts, result.Source, result.CaptureID)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importRSS, "rss", false, "Import from RSS/Atom feeds (arguments or sources.feeds)")
}

// --- captures command ---

var capturesCmd = &cobra.Command{
	Use:   "captures",
	Short: "List stored captures, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		captures, err := db.ListCaptures(0)
		if err != nil {
			return err
		}
		if len(captures) == 0 {
			fmt.Println("No captures yet. Run 'feedanalyzer import' or use the browser extension.")
			return nil
		}
		for _, c := range captures {
			fmt.Printf("  %s  %-9s  %4d posts  %s\n", c.ID, c.Source, c.PostCount, orNone(c.CreatedAt))
		}
		return nil
	},
}

// --- analyze / enrich commands ---

var (
	asJSON    bool
	captureID string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Shortlist posts from a JSON file or the latest capture",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		posts, err := loadPosts(args)
		if err != nil {
			return err
		}
		result := shortlist.Analyze(posts, cfg.Rules)
		return printResult(result, "")
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich [file]",
	Short: "Shortlist posts and suggest a reaction and comments for each",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		posts, err := loadPosts(args)
		if err != nil {
			return err
		}
		result := shortlist.Analyze(posts, cfg.Rules)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		provider := pipeline.NewProvider(cfg)
		fmt.Fprintf(os.Stderr, "Model: %s. Enriching %d post(s).\n", llm.Label(provider), len(result.Shortlisted))
		enricher := enrich.NewEnricher(provider, pipeline.EnrichOptions(cfg))
		result.Enrichments = enricher.Enrich(ctx, result.Shortlisted, func(p enrich.Progress) {
			fmt.Fprintln(os.Stderr, p.String())
		})
		return printResult(result, llm.Label(provider))
	},
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, enrichCmd} {
		c.Flags().BoolVar(&asJSON, "json", false, "Print the analysis result as JSON")
		c.Flags().StringVar(&captureID, "capture", "", "Capture ID to analyze (default: latest)")
	}
}

// loadPosts reads posts from the file argument or from the stored capture.
func loadPosts(args []string) ([]feed.Post, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", args[0], err)
		}
		return feed.DecodePosts(data)
	}

	db, err := openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var capture *database.Capture
	if captureID != "" {
		capture, err = db.GetCapture(captureID)
	} else {
		capture, err = db.LatestCapture()
	}
	if err != nil {
		return nil, fmt.Errorf("loading capture: %w", err)
	}
	if capture == nil {
		return nil, pipeline.ErrNoCapture
	}
	log.Printf("Using capture %s (%d posts)", capture.ID, len(capture.Posts))
	return capture.Posts, nil
}

func printResult(result feed.AnalysisResult, model string) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Print(report.Compose(result, model))
	return nil
}

// --- run command ---

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: load -> fetch -> analyze -> enrich -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var result *pipeline.Result
		if dryRun {
			result = pipeline.New(cfg, db, nil).DryRun(captureID)
		} else {
			pipe := pipeline.New(cfg, db, pipeline.NewProvider(cfg))
			pipe.OnProgress(func(p enrich.Progress) {
				fmt.Fprintf(os.Stderr, "  %s\n", p)
			})
			result = pipe.Run(ctx, captureID)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("pipeline failed")
		}
		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'feedanalyzer serve' to view the report.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().StringVar(&captureID, "capture", "", "Capture ID to analyze (default: latest)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local API server and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		provider := pipeline.NewProvider(cfg)

		fmt.Printf("Starting server at http://localhost:%d\n", cfg.Server.Port)
		fmt.Printf("Extension captures go to %s/api/feed-import\n", cfg.AppOrigin())
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cfg, db, provider)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default: server.port)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := database.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	db.SetCaptureRetention(cfg.Captures.Retention)
	return db, nil
}

func orNone(s *string) string {
	if s == nil {
		return "none"
	}
	return *s
}
