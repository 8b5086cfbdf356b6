package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
	"github.com/TheHaywire/solid-fortnight/internal/tools"
)

const (
	defaultMaxSources   = 3
	defaultSourceChars  = 12000
	defaultFetchWorkers = 3
)

// LLMResearcher gathers background for a query. With a registry it searches
// the web, fetches and extracts the top sources, condenses them and asks the
// model for a bulleted brief. Without one, or when nothing could be fetched,
// the model answers from its own knowledge.
type LLMResearcher struct {
	Client llm.Client
	Tools  *tools.Registry
	Logger *slog.Logger
	// MaxSources bounds how many search results are fetched.
	MaxSources int
}

type source struct {
	url, title, text string
}

func (r *LLMResearcher) Research(ctx context.Context, query string) capability.Findings {
	log := loggerOr(r.Logger)
	sources := r.gather(ctx, query, log)

	var prompt string
	if len(sources) == 0 {
		prompt = fmt.Sprintf(`You are a research assistant. Summarize what is known that would help with the query below as markdown bullet points, then add a 'Recommendations' section.

Query: %s`, query)
	} else {
		var b strings.Builder
		for i, s := range sources {
			fmt.Fprintf(&b, "\n[%d] %s (%s)\n%s\n", i+1, s.title, s.url, s.text)
		}
		prompt = fmt.Sprintf(`You are a research assistant. Summarize the following web results as markdown bullet points, citing sources by number, then add a 'Recommendations' section.

Query: %s

Web results:%s`, query, b.String())
	}

	out, err := r.answer(ctx, prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		log.Warn("research unavailable, passing query through", "err", err)
		return capability.Findings{Text: query, Degraded: true}
	}
	return capability.Findings{Text: strings.TrimSpace(out)}
}

func (r *LLMResearcher) answer(ctx context.Context, prompt string) (string, error) {
	if r.Tools != nil {
		if _, ok := r.Tools.Get("llm_answer"); ok {
			out, _, err := r.Tools.Call(ctx, "llm_answer", map[string]any{"text": prompt})
			s, _ := out.(string)
			return s, err
		}
	}
	return r.Client.GenerateText(ctx, prompt)
}

// gather runs search, fetch and extract. Individual source failures are
// logged and skipped.
func (r *LLMResearcher) gather(ctx context.Context, query string, log *slog.Logger) []source {
	if r.Tools == nil {
		return nil
	}
	if _, ok := r.Tools.Get("web_search"); !ok {
		return nil
	}
	max := r.MaxSources
	if max <= 0 {
		max = defaultMaxSources
	}
	out, logs, err := r.Tools.Call(ctx, "web_search", map[string]any{"query": query, "max": max})
	if err != nil {
		log.Warn("web search failed", "err", err)
		return nil
	}
	links, _ := out.([]map[string]string)
	log.Debug("web search", "query", truncate(query, 120), "logs", logs)

	results := make([]*source, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultFetchWorkers)
	for i, l := range links {
		g.Go(func() error {
			text, err := r.fetch(gctx, l["href"], query)
			if err != nil {
				log.Debug("skipping source", "url", l["href"], "err", err)
				return nil
			}
			results[i] = &source{url: l["href"], title: l["text"], text: text}
			return nil
		})
	}
	_ = g.Wait()

	var sources []source
	for _, s := range results {
		if s != nil && s.text != "" {
			sources = append(sources, *s)
		}
	}
	return sources
}

func (r *LLMResearcher) fetch(ctx context.Context, url, query string) (string, error) {
	page, _, err := r.Tools.Call(ctx, "http_get", map[string]any{"url": url})
	if err != nil {
		return "", err
	}
	m, _ := page.(map[string]any)
	body, _ := m["body"].(string)
	ctype, _ := m["content_type"].(string)
	extracted, _, err := r.Tools.Call(ctx, "file_extract", map[string]any{"data": body, "content_type": ctype, "filename": url})
	if err != nil {
		return "", err
	}
	text, _ := extracted.(string)
	if len(text) <= defaultSourceChars {
		return text, nil
	}
	if _, ok := r.Tools.Get("summarize_chunked"); ok {
		sum, _, err := r.Tools.Call(ctx, "summarize_chunked", map[string]any{"text": text, "focus": query})
		if err == nil {
			if s, _ := sum.(string); s != "" {
				return s, nil
			}
		}
	}
	return clip(text, defaultSourceChars), nil
}
