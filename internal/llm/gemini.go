package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiProvider generates text with the Gemini API.
type GeminiProvider struct {
	Model  string
	APIKey string

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider creates a provider reading its key from apiKeyEnv.
// The client is created on first use.
func NewGeminiProvider(model, apiKeyEnv string) *GeminiProvider {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiProvider{
		Model:  model,
		APIKey: os.Getenv(apiKeyEnv),
	}
}

// IsConfigured checks if the API key is set.
func (g *GeminiProvider) IsConfigured() bool {
	return g.APIKey != ""
}

func (g *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

// Generate sends a prompt to Gemini and returns the first candidate's text.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if g.APIKey == "" {
		return "", fmt.Errorf("Gemini API key not configured")
	}

	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	temp := float32(temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(maxTokens),
	}

	result, err := client.Models.GenerateContent(ctx, g.Model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in Gemini response")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
