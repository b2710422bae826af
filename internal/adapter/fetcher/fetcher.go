// Package fetcher turns a URL into raw page content. Rendering fidelity is
// out of scope; the pipeline treats this as a black box and the summarizer
// cleans whatever comes back.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "bookmarks-bot/1.0"

type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func New(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Render fetches the page at url and returns its body.
func (f *HTTPFetcher) Render(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("fetch %s: empty body", url)
	}
	return string(body), nil
}
