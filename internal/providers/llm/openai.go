package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBase = "https://api.openai.com"

type OpenAIClient struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	// Use Chat Completions for broad compatibility
	body := c.body(prompt, false)
	var resp chatResponse
	if err := postJSON(ctx, httpClient(c.Timeout), "openai", c.endpoint("/v1/chat/completions"), c.headers(), body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) GenerateTextStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	// Stream via Chat Completions SSE
	b, _ := json.Marshal(c.body(prompt, true))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/chat/completions"), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}
	res, err := httpClient(c.Timeout).Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return statusError("openai", res)
	}
	dec := newLineReader(res.Body)
	for dec.Scan() {
		line := dec.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil || len(chunk.Choices) == 0 {
			continue
		}
		if s := chunk.Choices[0].Delta.Content; s != "" {
			if err := onDelta(s); err != nil {
				return err
			}
		}
	}
	return dec.Err()
}

func (c *OpenAIClient) body(prompt string, stream bool) map[string]any {
	body := map[string]any{
		"model":       c.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": 0.3,
	}
	if stream {
		body["stream"] = true
	}
	return body
}

func (c *OpenAIClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.APIKey}
}

func (c *OpenAIClient) endpoint(path string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = defaultOpenAIBase
	}
	return base + path
}
