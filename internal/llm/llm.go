package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model for pipeline prompts.
	DefaultModel = "gemini-2.5-flash"
)

// ErrEmptyResponse is returned when the model produced no text at all.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Client wraps the Gemini API for the pipeline's planning, extraction and
// validation prompts. It returns raw text; parsing and fallback behavior are
// the caller's concern.
type Client struct {
	gClient   *genai.Client
	modelName string
}

// NewClient creates a Gemini client. An empty apiKey falls back to the
// GEMINI_API_KEY environment variable and then the loaded configuration; an
// empty modelName falls back to DefaultModel.
func NewClient(ctx context.Context, apiKey string, modelName string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = viper.GetString("ai.gemini.api_key")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not set (GEMINI_API_KEY or ai.gemini.api_key)")
	}

	if modelName == "" {
		modelName = DefaultModel
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		gClient:   gClient,
		modelName: modelName,
	}, nil
}

// ModelName returns the configured Gemini model identifier.
func (c *Client) ModelName() string {
	return c.modelName
}

// Generate sends a single-turn prompt and returns the model's raw text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}
