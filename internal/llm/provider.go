package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider          string // ollama, openai, huggingface, lmstudio, gemini or none
	Model             string
	OllamaURL         string
	OpenAIModel       string
	OpenAIKeyEnv      string
	HuggingFaceURL    string
	HuggingFaceKeyEnv string
	LMStudioURL       string
	LMStudioModel     string
	GeminiModel       string
	GeminiKeyEnv      string
}

// CreateProvider returns the configured provider, falling back to OpenAI
// when a local backend is not reachable. Returns nil when nothing is
// available; callers then use default suggestions.
func CreateProvider(s Settings) Provider {
	switch strings.ToLower(s.Provider) {
	case "none", "":
		log.Println("Text generation disabled, using default suggestions")
		return nil
	case "ollama":
		p := NewOllamaProvider(s.Model, s.OllamaURL)
		if p.IsConfigured() {
			log.Printf("Using Ollama with model: %s", s.Model)
			return p
		}
		log.Println("Ollama not available, trying OpenAI fallback...")
	case "lmstudio":
		p := NewLMStudioProvider(s.LMStudioModel, s.LMStudioURL)
		if p.IsConfigured() {
			log.Printf("Using LM Studio at %s", s.LMStudioURL)
			return p
		}
		log.Println("LM Studio not available, trying OpenAI fallback...")
	case "huggingface":
		p := NewHuggingFaceProvider(s.HuggingFaceURL, s.HuggingFaceKeyEnv)
		if p.IsConfigured() {
			log.Printf("Using Hugging Face endpoint: %s", s.HuggingFaceURL)
			return p
		}
		log.Println("Hugging Face endpoint not set, trying OpenAI fallback...")
	case "gemini":
		p := NewGeminiProvider(s.GeminiModel, s.GeminiKeyEnv)
		if p.IsConfigured() {
			log.Printf("Using Gemini with model: %s", p.Model)
			return p
		}
		log.Printf("%s not set, trying OpenAI fallback...", s.GeminiKeyEnv)
	case "openai":
	default:
		log.Printf("Unknown provider %q, trying OpenAI", s.Provider)
	}

	p := NewOpenAIProvider(s.OpenAIModel, s.OpenAIKeyEnv)
	if p.IsConfigured() {
		log.Printf("Using OpenAI with model: %s", s.OpenAIModel)
		return p
	}

	log.Printf("No LLM provider available. Check the local server is running or set %s.", s.OpenAIKeyEnv)
	return nil
}

// Label describes a provider for status output and reports.
func Label(p Provider) string {
	switch v := p.(type) {
	case nil:
		return "none (using defaults)"
	case *OllamaProvider:
		return "ollama/" + v.Model
	case *OpenAIProvider:
		return "openai/" + v.Model
	case *HuggingFaceProvider:
		return "huggingface/" + lastPathSegments(v.URL, 2)
	case *LMStudioProvider:
		return "lmstudio/" + v.Model
	case *GeminiProvider:
		return "gemini/" + v.Model
	case *PacedProvider:
		return Label(v.Provider)
	default:
		return fmt.Sprintf("%T", p)
	}
}

func lastPathSegments(url string, n int) string {
	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	if len(parts) <= n {
		return strings.Join(parts, "/")
	}
	return strings.Join(parts[len(parts)-n:], "/")
}

// PacedProvider enforces a minimum delay between consecutive Generate calls.
type PacedProvider struct {
	Provider
	Delay time.Duration

	mu   sync.Mutex
	last time.Time
}

// Paced wraps p so calls start at least delay apart. A nil provider or a
// non-positive delay returns p unchanged.
func Paced(p Provider, delay time.Duration) Provider {
	if p == nil || delay <= 0 {
		return p
	}
	return &PacedProvider{Provider: p, Delay: delay}
}

// Generate waits out the remaining delay, then calls the wrapped provider.
func (p *PacedProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	p.mu.Lock()
	if !p.last.IsZero() {
		if wait := p.Delay - time.Since(p.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				p.mu.Unlock()
				return "", ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.last = time.Now()
	p.mu.Unlock()

	return p.Provider.Generate(ctx, prompt, maxTokens)
}
