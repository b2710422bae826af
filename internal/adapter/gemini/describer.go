package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

const describePrompt = `You explain how bookmark content relates to search queries. ` +
	`In one concise sentence, explain how the bookmark content below matches or relates to the search query.

Search query: %q

Bookmark content: %s`

// Content beyond this adds latency without improving the one-line answer.
const describeContentCap = 2000

// Describe produces a one-sentence explanation of how content relates to
// query.
func (c *Client) Describe(ctx context.Context, query, content string) (string, error) {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("text cannot be empty")
	}
	if len(content) > describeContentCap {
		content = content[:describeContentCap]
	}

	model := c.client.GenerativeModel(c.summaryModel)
	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(describePrompt, query, content)))
	if err != nil {
		return "", fmt.Errorf("generate description: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
