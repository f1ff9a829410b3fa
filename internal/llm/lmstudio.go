package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// LMStudioProvider talks to a local LM Studio server through its
// OpenAI-compatible API.
type LMStudioProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewLMStudioProvider creates a provider; baseURL is the server root, e.g. http://localhost:1234.
func NewLMStudioProvider(model, baseURL string) *LMStudioProvider {
	if model == "" {
		model = "local-model"
	}
	return &LMStudioProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks that the server answers /v1/models.
func (l *LMStudioProvider) IsConfigured() bool {
	if l.BaseURL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", l.BaseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Generate sends a chat completion request.
func (l *LMStudioProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	text, err := chatCompletion(ctx, l.client, l.BaseURL+"/v1", "", l.Model, prompt, maxTokens)
	if err != nil {
		return "", fmt.Errorf("LM Studio error (is a model loaded?): %w", err)
	}
	return text, nil
}
