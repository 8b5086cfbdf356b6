package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
)

// recordingClient answers every prompt with a fixed reply and keeps the prompts.
type recordingClient struct {
	mu      sync.Mutex
	prompts []string
	reply   string
}

func (c *recordingClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return c.reply, nil
}

func (c *recordingClient) GenerateTextStream(ctx context.Context, prompt string, onDelta func(string) error) error {
	for _, w := range strings.SplitAfter(c.reply, " ") {
		if err := onDelta(w); err != nil {
			return err
		}
	}
	return nil
}

func TestHTTPGetTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "0123456789")
	}))
	defer srv.Close()

	out, logs, err := (&HTTPGetTool{MaxBytes: 4}).Execute(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	m := out.(map[string]any)
	if m["body"] != "0123" || m["content_type"] != "text/plain" {
		t.Errorf("out = %v", m)
	}
	if !strings.Contains(logs, "truncated=true") {
		t.Errorf("logs = %q", logs)
	}

	if _, _, err := (&HTTPGetTool{}).Execute(context.Background(), map[string]any{"url": srv.URL + "/missing"}); err == nil {
		t.Error("expected error for 404")
	}
	if _, _, err := (&HTTPGetTool{}).Execute(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing url")
	}
}

func TestWebSearchTool(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		fmt.Fprint(w, `<html><body>
<a href="/settings">Settings</a>
<a href="https://example.com/a">First</a>
<a href="/l/?uddg=https%3A%2F%2Fexample.org%2Fb">Second</a>
<a href="https://example.com/a">First again</a>
<a href="mailto:x@example.com">Mail</a>
<a href="https://example.net/c">Third</a>
</body></html>`)
	}))
	defer srv.Close()

	tool := &WebSearchTool{URLTemplate: srv.URL + "/?q=%s"}
	out, _, err := tool.Execute(context.Background(), map[string]any{"query": "go csv parser", "max": 2})
	if err != nil {
		t.Fatal(err)
	}
	if query != "go csv parser" {
		t.Errorf("query = %q", query)
	}
	want := []map[string]string{
		{"href": "https://example.com/a", "text": "First"},
		{"href": "https://example.org/b", "text": "Second"},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("results = %v, want %v", out, want)
	}

	if _, _, err := (&WebSearchTool{URLTemplate: srv.URL}).Execute(context.Background(), map[string]any{"query": "x"}); err == nil {
		t.Error("expected error for template without placeholder")
	}
}

func TestExtractLinksTool_ResolvesRelative(t *testing.T) {
	out, _, err := (&ExtractLinksTool{}).Execute(context.Background(), map[string]any{
		"html":     `<p><a href="docs/intro">Intro <b>page</b></a></p>`,
		"base_url": "https://example.com/root/",
	})
	if err != nil {
		t.Fatal(err)
	}
	links := out.([]map[string]string)
	if len(links) != 1 || links[0]["href"] != "https://example.com/root/docs/intro" || links[0]["text"] != "Intro page" {
		t.Errorf("links = %v", links)
	}
}

func TestHTMLToTextTool_SkipsScripts(t *testing.T) {
	out, _, err := (&HTMLToTextTool{}).Execute(context.Background(), map[string]any{
		"html": `<html><head><script>var x = 1;</script><style>p{}</style></head><body><h1>Title</h1><p>Hello   world</p></body></html>`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Title\nHello world" {
		t.Errorf("text = %q", out)
	}
}

func TestFileExtractTool(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		inputs  map[string]any
		want    string
		wantErr bool
	}{
		{"plain by extension", map[string]any{"data": "  a,b\n1,2 ", "filename": "x.csv"}, "a,b\n1,2", false},
		{"html by content", map[string]any{"data": "<html><body><p>hi</p></body></html>"}, "hi", false},
		{"base64 data url", map[string]any{"data_base64": "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("note")), "content_type": "text/plain"}, "note", false},
		{"binary", map[string]any{"data": "\x00\x01", "content_type": "application/octet-stream"}, "", true},
		{"missing", map[string]any{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := (&FileExtractTool{}).Execute(ctx, tt.inputs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && out != tt.want {
				t.Errorf("out = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestFileExtractTool_RejectsOversized(t *testing.T) {
	_, _, err := (&FileExtractTool{MaxBytes: 3}).Execute(context.Background(), map[string]any{"data": "abcd"})
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("err = %v", err)
	}
}

func TestPDFExtractTool_RejectsGarbage(t *testing.T) {
	if _, _, err := (&PDFExtractTool{}).Execute(context.Background(), map[string]any{"data": "not a pdf"}); err == nil {
		t.Error("expected error")
	}
}

func TestExpandPages(t *testing.T) {
	got := expandPages("3-1, 7, 2, 99", 8)
	want := []int{1, 2, 3, 7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandPages = %v, want %v", got, want)
	}
	if len(expandPages("", 5)) != 0 {
		t.Error("empty range should select nothing")
	}
}

func TestSplitChunks(t *testing.T) {
	got := splitChunks("abcdefghij", 4, 1)
	want := []string{"abcd", "defg", "ghij"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitChunks = %q, want %q", got, want)
	}
}

func TestSummarizeChunkedTool_MapReduce(t *testing.T) {
	c := &recordingClient{reply: "summary"}
	text := strings.Repeat("x", 2500)
	out, logs, err := (&SummarizeChunkedTool{Client: c}).Execute(context.Background(), map[string]any{
		"text": text, "chunk_chars": 1000, "overlap_chars": 0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "summary" || logs != "chunks=3" {
		t.Errorf("out = %v, logs = %q", out, logs)
	}
	// three map calls and one reduce
	if len(c.prompts) != 4 {
		t.Fatalf("prompts = %d, want 4", len(c.prompts))
	}
	var reduce string
	for _, p := range c.prompts {
		if strings.Contains(p, "Summaries:") {
			reduce = p
		}
	}
	if strings.Count(reduce, "[Section ") != 3 {
		t.Errorf("reduce prompt = %q", reduce)
	}
}

func TestSummarizeChunkedTool_SmallTextSingleCall(t *testing.T) {
	c := &recordingClient{reply: "short"}
	out, _, err := (&SummarizeChunkedTool{Client: c}).Execute(context.Background(), map[string]any{"text": "tiny", "focus": "csv"})
	if err != nil || out != "short" {
		t.Fatalf("out = %v, err = %v", out, err)
	}
	if len(c.prompts) != 1 || !strings.Contains(c.prompts[0], "relevant to: csv") {
		t.Errorf("prompts = %q", c.prompts)
	}
}

func TestLLMAnswerTool_StreamsToSink(t *testing.T) {
	c := &recordingClient{reply: "one two three"}
	var chunks []string
	ctx := capability.WithTokenSink(context.Background(), func(s string) { chunks = append(chunks, s) })
	out, logs, err := (&LLMAnswerTool{Client: c}).Execute(ctx, map[string]any{"question": "q", "instructions": "be brief"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "one two three" || logs != "streamed" || len(chunks) != 3 {
		t.Errorf("out = %q logs = %q chunks = %q", out, logs, chunks)
	}

	out, _, err = (&LLMAnswerTool{Client: c}).Execute(context.Background(), map[string]any{"text": "q"})
	if err != nil || out != "one two three" {
		t.Errorf("non-streaming out = %v, err = %v", out, err)
	}
	if c.prompts[0] != "q" {
		t.Errorf("prompt = %q", c.prompts[0])
	}
}

func TestHTTPPostJSONTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("X-Token") != "t" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, "got %v", body["event"])
	}))
	defer srv.Close()

	tool := &HTTPPostJSONTool{}
	out, _, err := tool.Execute(context.Background(), map[string]any{
		"url": srv.URL, "json": map[string]any{"event": "result"}, "headers": map[string]string{"X-Token": "t"},
	})
	if err != nil || out != "got result" {
		t.Fatalf("out = %v, err = %v", out, err)
	}
	if _, _, err := tool.Execute(context.Background(), map[string]any{"url": srv.URL, "json": `{}`}); err == nil {
		t.Error("expected error for 401")
	}
	if _, _, err := tool.Execute(context.Background(), map[string]any{"url": "ftp://x", "json": "{}"}); err == nil {
		t.Error("expected error for ftp scheme")
	}
}

func TestNewResearchRegistry(t *testing.T) {
	r := NewResearchRegistry(&recordingClient{}, ResearchConfig{SearchURL: "https://search.test/?q=%s"})
	want := []string{"extract_links", "file_extract", "html_to_text", "http_get", "http_post_json", "llm_answer", "pdf_extract", "summarize", "summarize_chunked", "web_search"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v", got)
	}
	if _, _, err := r.Call(context.Background(), "nope", nil); err == nil {
		t.Error("expected unknown tool error")
	}
	if names := NewResearchRegistry(nil, ResearchConfig{}).Names(); len(names) != 6 {
		t.Errorf("offline registry = %v", names)
	}
}
