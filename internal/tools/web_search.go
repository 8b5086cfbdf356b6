package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// WebSearchTool queries an HTML search endpoint and returns result links.
// URLTemplate contains one %s that receives the escaped query, for example
// "https://html.duckduckgo.com/html/?q=%s".
// Inputs:
// - query: string (required)
// - max: number (optional; default 5)
// Output: []{ href, text }
type WebSearchTool struct {
	URLTemplate string
	Fetch       *HTTPGetTool
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	query, _ := inputs["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, "", fmt.Errorf("missing query")
	}
	if !strings.Contains(t.URLTemplate, "%s") {
		return nil, "", fmt.Errorf("search url template %q has no %%s placeholder", t.URLTemplate)
	}
	max := getInt(inputs, "max", 5)
	searchURL := fmt.Sprintf(t.URLTemplate, url.QueryEscape(query))

	fetch := t.Fetch
	if fetch == nil {
		fetch = &HTTPGetTool{}
	}
	page, _, err := fetch.Execute(ctx, map[string]any{"url": searchURL})
	if err != nil {
		return nil, "", err
	}
	body, _ := page.(map[string]any)["body"].(string)
	raw, _, err := (&ExtractLinksTool{}).Execute(ctx, map[string]any{"html": body, "base_url": searchURL, "max": 200})
	if err != nil {
		return nil, "", err
	}

	searchHost := hostOf(searchURL)
	seen := map[string]bool{}
	out := []map[string]string{}
	for _, l := range raw.([]map[string]string) {
		href := unwrapRedirect(l["href"])
		h := hostOf(href)
		if h == "" || h == searchHost || seen[href] || l["text"] == "" {
			continue
		}
		seen[href] = true
		out = append(out, map[string]string{"href": href, "text": l["text"]})
		if len(out) >= max {
			break
		}
	}
	return out, fmt.Sprintf("results=%d", len(out)), nil
}

// unwrapRedirect resolves search-engine redirect links of the form
// ...?uddg=<target> or ...?url=<target>.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	for _, key := range []string{"uddg", "url", "q"} {
		if v := u.Query().Get(key); strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return v
		}
	}
	return href
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.Host
}
