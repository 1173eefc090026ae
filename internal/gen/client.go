// Package gen adapts the hosted generative-model endpoint used for
// summarization and chat answers.
package gen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrUnavailable is returned for every upstream failure so callers can fall
// back to extractive summarization without inspecting vendor errors.
var ErrUnavailable = errors.New("completion service unavailable")

// Disabled stands in when no API key is configured. Every call reports
// ErrUnavailable, which routes callers straight to extractive fallback.
type Disabled struct{}

func (Disabled) Complete(ctx context.Context, prompt string, maxTokens int32, temperature float32) (string, error) {
	return "", fmt.Errorf("%w: not configured", ErrUnavailable)
}

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Complete sends a prompt and returns the generated text.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int32, temperature float32) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetMaxOutputTokens(maxTokens)
	model.SetTemperature(temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		slog.ErrorContext(ctx, "completion failed", "model", c.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out += string(txt)
		}
	}
	if out == "" {
		return "", fmt.Errorf("%w: no text candidates", ErrUnavailable)
	}
	return out, nil
}
