package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mkobayashi/jobscout/internal/ai"
)

// models.GenerateContent is the only genai surface used; the indirection keeps
// backends testable without a live client.
type modelCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client wraps the Google GenAI client and hands out per-model backends for
// the gateway.
type Client struct {
	models modelCaller
}

// NewClient creates a Client configured for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{models: client.Models}, nil
}

// Backend returns an ai.Backend bound to the given model variant. Multiple
// backends share the underlying client.
func (c *Client) Backend(model string) *Backend {
	return &Backend{models: c.models, model: model}
}

// Backend is one Gemini model variant callable through the gateway.
type Backend struct {
	models modelCaller
	model  string
}

func (b *Backend) ID() string { return b.model }

// Generate sends the prompt to the bound model and returns the collected
// textual response.
func (b *Backend) Generate(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		TopP:            genai.Ptr[float32](0.8),
		MaxOutputTokens: maxTokens,
	}

	resp, err := b.models.GenerateContent(ctx, b.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", statusFromError(err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// statusFromError maps a genai API error onto the gateway's status error so
// retry and fallback decisions stay backend-agnostic.
func statusFromError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.StatusError{Code: apiErr.Code, Body: apiErr.Message}
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &ai.StatusError{Code: apiErrPtr.Code, Body: apiErrPtr.Message}
	}

	return fmt.Errorf("generate content: %w", err)
}
