package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPPostJSONTool posts a JSON payload.
// Inputs:
// - url: string (required)
// - json: any or a pre-encoded string (required)
// - headers: object (optional)
// Output: string (response body, at most 2MB)
type HTTPPostJSONTool struct {
	Timeout time.Duration
}

func (h *HTTPPostJSONTool) Name() string { return "http_post_json" }

func (h *HTTPPostJSONTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	rawURL, _ := inputs["url"].(string)
	if rawURL == "" {
		return nil, "", fmt.Errorf("missing url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	var bodyBytes []byte
	if s, ok := inputs["json"].(string); ok && s != "" {
		bodyBytes = []byte(s)
	} else if bodyBytes, err = json.Marshal(inputs["json"]); err != nil {
		return nil, "", fmt.Errorf("marshal json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	switch hv := inputs["headers"].(type) {
	case map[string]string:
		for k, v := range hv {
			req.Header.Set(k, v)
		}
	case map[string]any:
		for k, v := range hv {
			if vs, ok := v.(string); ok {
				req.Header.Set(k, vs)
			}
		}
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	lr := io.LimitedReader{R: resp.Body, N: 2 << 20}
	b, _ := io.ReadAll(&lr)
	logs := fmt.Sprintf("status=%d content_type=%s", resp.StatusCode, resp.Header.Get("Content-Type"))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return string(b), logs, fmt.Errorf("POST %s: status %d", u.Redacted(), resp.StatusCode)
	}
	return string(b), logs, nil
}
