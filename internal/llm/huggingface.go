package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// HuggingFaceProvider calls a Hugging Face Inference endpoint.
// URL is the full model endpoint, e.g.
// https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.2.
type HuggingFaceProvider struct {
	URL    string
	APIKey string
	client *http.Client
}

// NewHuggingFaceProvider creates a provider reading its key from apiKeyEnv.
func NewHuggingFaceProvider(url, apiKeyEnv string) *HuggingFaceProvider {
	return &HuggingFaceProvider{
		URL:    url,
		APIKey: os.Getenv(apiKeyEnv),
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured reports whether an endpoint is set. Self-hosted endpoints may not need a key.
func (h *HuggingFaceProvider) IsConfigured() bool {
	return h.URL != ""
}

// Generate sends the prompt as text-generation inputs.
func (h *HuggingFaceProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if h.URL == "" {
		return "", fmt.Errorf("Hugging Face endpoint not configured")
	}

	body := map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"max_new_tokens":   maxTokens,
			"temperature":      temperature,
			"return_full_text": false,
		},
	}

	var raw json.RawMessage
	if err := postJSON(ctx, h.client, h.URL, h.APIKey, body, &raw); err != nil {
		return "", fmt.Errorf("Hugging Face API error: %w", err)
	}
	return generatedText(raw)
}

// generatedText reads generated_text from either an array of results or a
// single object; both shapes are returned depending on the deployment.
func generatedText(raw json.RawMessage) (string, error) {
	var list []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", nil
		}
		return strings.TrimSpace(list[0].GeneratedText), nil
	}

	var single struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &single); err != nil {
		return "", fmt.Errorf("decoding generated_text: %w", err)
	}
	return strings.TrimSpace(single.GeneratedText), nil
}
