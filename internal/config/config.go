package config

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Rules      feed.RuleConfig `yaml:"rules"`
	Enrichment Enrichment      `yaml:"enrichment"`
	Captures   Captures        `yaml:"captures"`
	Sources    Sources         `yaml:"sources"`
	Extension  Extension       `yaml:"extension"`
	Fetch      Fetch           `yaml:"fetch"`
	Output     Output          `yaml:"output"`
	Server     Server          `yaml:"server"`
	Logging    Logging         `yaml:"logging"`
}

// Enrichment configures the text-generation backend used for suggestions.
// Provider "none" disables generation; every post then gets default suggestions.
type Enrichment struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	OllamaURL         string        `yaml:"ollama_url"`
	OpenAIModel       string        `yaml:"openai_model"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	HuggingFaceURL    string        `yaml:"huggingface_url"`
	HuggingFaceKeyEnv string        `yaml:"huggingface_api_key_env"`
	LMStudioURL       string        `yaml:"lmstudio_url"`
	LMStudioModel     string        `yaml:"lmstudio_model"`
	GeminiModel       string        `yaml:"gemini_model"`
	GeminiKeyEnv      string        `yaml:"gemini_api_key_env"`
	MaxTokens         int           `yaml:"max_tokens"`
	ContentLimit      int           `yaml:"content_limit"`
	Timeout           time.Duration `yaml:"timeout"`
	Delay             time.Duration `yaml:"delay"`
}

type Captures struct {
	Retention int `yaml:"retention"`
}

type Sources struct {
	Feeds []Feed `yaml:"feeds"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// Extension holds the settings served to the capture browser extension.
type Extension struct {
	MaxPosts         int    `yaml:"max_posts"`
	ScrollPauseMs    int    `yaml:"scroll_pause_ms"`
	NoNewPostsExit   int    `yaml:"no_new_posts_exit"`
	MaxPostsFallback int    `yaml:"max_posts_fallback"`
	AppOrigin        string `yaml:"app_origin"`
}

type Fetch struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// maxExtensionPosts caps how many posts the extension is asked to collect.
const maxExtensionPosts = 500

// ConfigDir returns the XDG config directory for feedanalyzer.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "feedanalyzer")
}

// DataDir returns the XDG data directory for feedanalyzer.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "feedanalyzer")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/feedanalyzer/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'feedanalyzer init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration with environment overrides applied.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults and then
// environment overrides.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Rules: feed.RuleConfig{
			MaxPostsToAnalyze: 100,
			ShortlistSize:     10,
			MinReactions:      100,
			MinComments:       20,
			MinReposts:        10,
			Ordering:          feed.OrderInsertion,
		},
		Enrichment: Enrichment{
			Provider:          "ollama",
			Model:             "qwen2.5:7b",
			OllamaURL:         "http://localhost:11434",
			OpenAIModel:       "gpt-4o-mini",
			APIKeyEnv:         "OPENAI_API_KEY",
			HuggingFaceKeyEnv: "HUGGINGFACE_API_KEY",
			LMStudioURL:       "http://localhost:1234",
			GeminiModel:       "gemini-2.5-flash",
			GeminiKeyEnv:      "GEMINI_API_KEY",
			MaxTokens:         500,
			ContentLimit:      3000,
			Timeout:           60 * time.Second,
		},
		Captures: Captures{Retention: 10},
		Extension: Extension{
			MaxPosts:         100,
			ScrollPauseMs:    2500,
			NoNewPostsExit:   6,
			MaxPostsFallback: 200,
		},
		Fetch:   Fetch{Enabled: true, Timeout: 15 * time.Second},
		Server:  Server{Port: 8000, CORSOrigin: "*"},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnv(cfg)
	cfg.Rules = cfg.Rules.Normalize()
	cfg.Extension.MaxPosts = min(cfg.Extension.MaxPosts, maxExtensionPosts)
	cfg.Extension.MaxPostsFallback = min(cfg.Extension.MaxPostsFallback, maxExtensionPosts)
	if cfg.Captures.Retention < 1 {
		cfg.Captures.Retention = 1
	}

	return cfg, nil
}

// applyEnv overrides rule defaults from FEEDANALYZER_* variables.
// Unset, empty, negative or non-numeric values leave the current value.
func applyEnv(cfg *Config) {
	ints := []struct {
		key string
		dst *int
	}{
		{"FEEDANALYZER_MAX_POSTS", &cfg.Rules.MaxPostsToAnalyze},
		{"FEEDANALYZER_SHORTLIST_SIZE", &cfg.Rules.ShortlistSize},
		{"FEEDANALYZER_MIN_REACTIONS", &cfg.Rules.MinReactions},
		{"FEEDANALYZER_MIN_COMMENTS", &cfg.Rules.MinComments},
		{"FEEDANALYZER_MIN_REPOSTS", &cfg.Rules.MinReposts},
		{"FEEDANALYZER_MIN_FOLLOWERS", &cfg.Rules.MinFollowers},
		{"FEEDANALYZER_EXTENSION_MAX_POSTS", &cfg.Extension.MaxPosts},
	}
	for _, e := range ints {
		raw := strings.TrimSpace(os.Getenv(e.key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			log.Printf("Ignoring %s=%q: not a non-negative integer", e.key, raw)
			continue
		}
		*e.dst = n
	}

	if v := strings.TrimSpace(os.Getenv("FEEDANALYZER_MENTION_KEYWORD")); v != "" {
		cfg.Rules.MentionKeyword = v
	}
	if v := strings.TrimSpace(os.Getenv("FEEDANALYZER_PROVIDER")); v != "" {
		cfg.Enrichment.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("FEEDANALYZER_APP_ORIGIN")); v != "" {
		cfg.Extension.AppOrigin = v
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath returns the path of the capture database.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "feedanalyzer.db")
}

// AppOrigin returns the origin the extension posts captures to.
func (c *Config) AppOrigin() string {
	if c.Extension.AppOrigin != "" {
		return strings.TrimRight(c.Extension.AppOrigin, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
