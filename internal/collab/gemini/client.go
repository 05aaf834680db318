// Package gemini implements [collab.TextCompleter] for the Google Gemini
// API, wrapping the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/helixlab/bioflow/domain"
	"github.com/helixlab/bioflow/internal/collab"
)

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 4096
)

// Interface compliance check.
var _ collab.TextCompleter = (*Client)(nil)

// Client implements [collab.TextCompleter] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client: gc,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Complete sends the conversation history plus prompt to the Gemini API and
// returns the generated text with token accounting.
func (c *Client) Complete(ctx context.Context, prompt string, history []domain.Message) (*collab.Completion, error) {
	contents := convertHistory(history)
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	maxTokens := int32(defaultMaxTokens)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return nil, classify(err)
	}

	completion := &collab.Completion{
		Text:  resp.Text(),
		Model: c.model,
	}
	if resp.UsageMetadata != nil {
		completion.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		completion.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return completion, nil
}

// convertHistory maps session messages to genai contents. System messages
// are folded into user turns; Gemini has no system role in contents.
func convertHistory(history []domain.Message) []*genai.Content {
	var contents []*genai.Content
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

// classify tags API failures for the orchestrator's retry policy: rate
// limits and server unavailability are transient, auth and malformed
// requests are permanent.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return domain.TransientError("gemini", err)
		default:
			return domain.PermanentError("gemini", err)
		}
	}
	// Network-level failures without an API status are worth retrying.
	return domain.TransientError("gemini", err)
}
