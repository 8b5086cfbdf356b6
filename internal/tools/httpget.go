package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBytes limits fetched bodies.
const DefaultMaxBytes = 2 << 20

// HTTPGetTool fetches a URL.
// Inputs:
// - url: string (required)
// Output: {"body": string, "content_type": string, "status": int, "url": string}
type HTTPGetTool struct {
	Client   *http.Client
	MaxBytes int
}

func (h *HTTPGetTool) Name() string { return "http_get" }

func (h *HTTPGetTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	url, _ := inputs["url"].(string)
	if url == "" {
		return nil, "", fmt.Errorf("missing url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "solid-fortnight-research/1.0")
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	// limit body to avoid huge transfers
	max := h.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	lr := io.LimitedReader{R: resp.Body, N: int64(max)}
	b, err := io.ReadAll(&lr)
	if err != nil {
		return nil, "", err
	}
	logs := fmt.Sprintf("status=%d", resp.StatusCode)
	if lr.N == 0 {
		logs += " truncated=true"
	}
	return map[string]any{
		"body":         string(b),
		"content_type": resp.Header.Get("Content-Type"),
		"status":       resp.StatusCode,
		"url":          url,
	}, logs, nil
}
