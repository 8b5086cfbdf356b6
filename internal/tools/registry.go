// Package tools holds the web and document tools the researcher composes:
// search, fetch, HTML and PDF text extraction, and LLM summarisation.
package tools

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

type Tool interface {
	Name() string
	Execute(ctx context.Context, inputs map[string]any) (output any, logs string, err error)
}

type Registry struct {
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names lists the registered tools in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for n := range r.tools {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Call executes the named tool.
func (r *Registry) Call(ctx context.Context, name string, inputs map[string]any) (any, string, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, "", fmt.Errorf("unknown tool: %s", name)
	}
	return t.Execute(ctx, inputs)
}

func getInt(m map[string]any, key string, def int) int {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case float64:
			return int(t)
		case int:
			return t
		case string:
			if n, err := strconv.Atoi(t); err == nil {
				return n
			}
		}
	}
	return def
}

// ResearchConfig parameterises NewResearchRegistry.
type ResearchConfig struct {
	// SearchURL is a search endpoint template with one %s for the query.
	// Empty disables web_search.
	SearchURL  string
	HTTPClient *http.Client
	MaxBytes   int
	MaxPages   int
}

// NewResearchRegistry registers the tools the researcher pipeline calls.
func NewResearchRegistry(client llm.Client, cfg ResearchConfig) *Registry {
	r := NewRegistry()
	get := &HTTPGetTool{Client: cfg.HTTPClient, MaxBytes: cfg.MaxBytes}
	pdf := &PDFExtractTool{MaxBytes: cfg.MaxBytes, MaxPages: cfg.MaxPages}
	r.Register(get)
	r.Register(pdf)
	r.Register(&FileExtractTool{PDF: pdf, MaxBytes: cfg.MaxBytes})
	r.Register(&HTMLToTextTool{})
	r.Register(&ExtractLinksTool{})
	r.Register(&HTTPPostJSONTool{})
	if cfg.SearchURL != "" {
		r.Register(&WebSearchTool{URLTemplate: cfg.SearchURL, Fetch: get})
	}
	if client != nil {
		r.Register(&SummarizeTool{Client: client})
		r.Register(&SummarizeChunkedTool{Client: client})
		r.Register(&LLMAnswerTool{Client: client})
	}
	return r
}
