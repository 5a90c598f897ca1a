package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmptyResponse indicates the model returned no usable candidate.
var ErrEmptyResponse = errors.New("llm: empty model response")

// Generator produces analysis text through the Gemini API.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator constructs a Generator for the given API key and model name.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	client, errNew := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if errNew != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", errNew)
	}
	return &Generator{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *Generator) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Generate runs the prompt with bounded retry against transient overload
// errors and returns the concatenated text parts of the first candidate.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	return withRetry(ctx, func() (string, error) {
		resp, errGen := model.GenerateContent(ctx, genai.Text(prompt))
		if errGen != nil {
			return "", fmt.Errorf("llm: generate content: %w", errGen)
		}
		return extractText(resp)
	})
}

// extractText flattens the first candidate's text parts.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	out := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
