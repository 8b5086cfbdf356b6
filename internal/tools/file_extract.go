package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// FileExtractTool converts fetched documents into text for downstream LLM use.
// Inputs:
// - data: string (raw bytes) or data_base64: string, may be a data: URL (required)
// - filename: string (optional)
// - content_type: string (optional)
// Output: string (extracted/plain text)
type FileExtractTool struct {
	PDF      *PDFExtractTool
	MaxBytes int
}

func (t *FileExtractTool) Name() string { return "file_extract" }

func (t *FileExtractTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	buf, err := payload(inputs)
	if err != nil {
		return nil, "", err
	}
	if max := orDefault(t.MaxBytes, defaultPDFMaxBytes); len(buf) > max {
		return nil, "", fmt.Errorf("file too large: %d bytes > limit %d", len(buf), max)
	}

	filename, _ := inputs["filename"].(string)
	ctype, _ := inputs["content_type"].(string)
	ctype = strings.ToLower(ctype)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	// magic checks
	if strings.HasPrefix(string(buf), "%PDF-") || ext == "pdf" || strings.Contains(ctype, "pdf") {
		pdf := t.PDF
		if pdf == nil {
			pdf = &PDFExtractTool{}
		}
		out, logs, err := pdf.Execute(ctx, map[string]any{"data": string(buf)})
		return out, prependLog("pdf", logs), err
	}

	looksHTML := ext == "html" || ext == "htm" || strings.Contains(ctype, "html")
	if !looksHTML {
		s := strings.ToLower(string(buf))
		looksHTML = strings.Contains(s, "<html") || strings.Contains(s, "<body")
	}
	if looksHTML {
		out, logs, err := (&HTMLToTextTool{}).Execute(ctx, map[string]any{"html": string(buf)})
		return out, prependLog("html", logs), err
	}

	switch ext {
	case "txt", "md", "markdown", "csv", "json", "log", "yaml", "yml", "go", "py":
		return plain(buf, ext)
	}
	if ctype == "" || strings.Contains(ctype, "text/") || strings.Contains(ctype, "json") || strings.Contains(ctype, "yaml") {
		return plain(buf, ext)
	}
	return nil, "", errors.New("unsupported file type; provide PDF/HTML/text/CSV/JSON/YAML")
}

func plain(buf []byte, ext string) (any, string, error) {
	text := strings.TrimSpace(string(buf))
	return text, fmt.Sprintf("plain ext=%s len=%d", ext, len(text)), nil
}

// payload reads raw "data" or base64 "data_base64" from inputs.
func payload(inputs map[string]any) ([]byte, error) {
	if s, ok := inputs["data"].(string); ok && s != "" {
		return []byte(s), nil
	}
	b64, _ := inputs["data_base64"].(string)
	if b64 == "" {
		return nil, fmt.Errorf("missing data or data_base64")
	}
	if i := strings.Index(b64, ","); i != -1 {
		b64 = b64[i+1:] // strip data: prefix
	}
	buf, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return buf, nil
}

func prependLog(kind, logs string) string {
	if logs == "" {
		return kind
	}
	return kind + " " + logs
}
