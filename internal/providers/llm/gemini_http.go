package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const defaultGeminiBase = "https://generativelanguage.googleapis.com/v1beta"

// GeminiHTTPClient talks to the Generative Language REST API directly.
type GeminiHTTPClient struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

func (c *GeminiHTTPClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = defaultGeminiBase
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", base, url.PathEscape(c.Model))
	body := map[string]any{
		"contents": []map[string]any{{
			"role":  "user",
			"parts": []map[string]string{{"text": prompt}},
		}},
	}
	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	headers := map[string]string{"x-goog-api-key": c.APIKey}
	if err := postJSON(ctx, httpClient(c.Timeout), "gemini", endpoint, headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func (c *GeminiHTTPClient) GenerateTextStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	txt, err := c.GenerateText(ctx, prompt)
	if err != nil {
		return err
	}
	return onDelta(txt)
}
