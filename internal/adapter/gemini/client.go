// Package gemini implements the summarize, describe and embed collaborators
// on top of the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Client struct {
	client         *genai.Client
	embeddingModel string
	summaryModel   string
}

// NewClient builds the shared Gemini client. Extra options let tests point
// it at an httptest server.
func NewClient(ctx context.Context, apiKey, embeddingModel, summaryModel string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}
	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		client:         client,
		embeddingModel: embeddingModel,
		summaryModel:   summaryModel,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// responseText flattens the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty completion response")
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	if out == "" {
		return "", fmt.Errorf("completion response has no text")
	}
	return out, nil
}
