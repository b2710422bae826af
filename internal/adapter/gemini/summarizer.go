package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

const summaryPrompt = `Convert the following HTML page into clean, well-formatted text. ` +
	`Focus on the main content and ignore navigation, ads and other peripheral elements. ` +
	`Extract the page's title. Return JSON with keys "title" and "content" only.

HTML content:
%s`

// Summarize turns raw page content into clean text and extracts a title.
func (c *Client) Summarize(ctx context.Context, content string) (string, string, error) {
	if strings.TrimSpace(content) == "" {
		return "", "", fmt.Errorf("content cannot be empty")
	}

	model := c.client.GenerativeModel(c.summaryModel)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":   {Type: genai.TypeString},
			"content": {Type: genai.TypeString},
		},
		Required: []string{"title", "content"},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(summaryPrompt, content)))
	if err != nil {
		return "", "", fmt.Errorf("generate summary: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", "", err
	}

	var summary struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(text), &summary); err != nil {
		return "", "", fmt.Errorf("decode summary: %w", err)
	}
	if summary.Content == "" {
		return "", "", fmt.Errorf("summary has no content")
	}
	return summary.Title, summary.Content, nil
}
