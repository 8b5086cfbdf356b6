package tools

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

// SummarizeChunkedTool splits large text into chunks, summarizes each (bounded concurrency),
// then reduces into a concise overall summary.
// Inputs:
// - text: string (required)
// - focus: string (optional)
// - chunk_chars: number (optional; default 8000)
// - overlap_chars: number (optional; default 400)
// - max_parallel: number (optional; default 3)
// - reduce_instructions: string (optional)
type SummarizeChunkedTool struct{ Client llm.Client }

func (t *SummarizeChunkedTool) Name() string { return "summarize_chunked" }

func (t *SummarizeChunkedTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	text, _ := inputs["text"].(string)
	if text == "" {
		return nil, "", fmt.Errorf("missing text")
	}
	chunk := getInt(inputs, "chunk_chars", 8000)
	overlap := getInt(inputs, "overlap_chars", 400)
	if chunk < 1000 {
		chunk = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	parts := splitChunks(text, chunk, overlap)
	if len(parts) == 1 {
		// small text, fallback to single summarize
		return (&SummarizeTool{Client: t.Client}).Execute(ctx, map[string]any{"text": text, "focus": inputs["focus"]})
	}

	// map phase
	out := make([]string, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, getInt(inputs, "max_parallel", 3)))
	for i, p := range parts {
		g.Go(func() error {
			prompt := fmt.Sprintf("Summarize this section into 3-5 concise bullets focusing on key facts.\n\nSection %d/%d:\n%s", i+1, len(parts), p)
			s, err := t.Client.GenerateText(gctx, prompt)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	// reduce phase
	reduceInst, _ := inputs["reduce_instructions"].(string)
	if reduceInst == "" {
		reduceInst = "Combine the following section summaries into a single clear summary (bullets or short paragraphs). Avoid repetition; preserve critical details."
	}
	var combined strings.Builder
	for i, s := range out {
		fmt.Fprintf(&combined, "\n\n[Section %d]\n%s", i+1, s)
	}
	final, err := t.Client.GenerateText(ctx, reduceInst+"\n\nSummaries:"+combined.String())
	if err != nil {
		return nil, "", err
	}
	return final, fmt.Sprintf("chunks=%d", len(parts)), nil
}

func splitChunks(s string, size, overlap int) []string {
	if size <= 0 {
		return []string{s}
	}
	var out []string
	for start := 0; start < len(s); {
		end := start + size
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[start:end])
		if end == len(s) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}
