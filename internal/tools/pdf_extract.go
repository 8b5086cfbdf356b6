package tools

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	pdfx "github.com/ledongthuc/pdf"
)

const (
	defaultPDFMaxBytes = 20 * 1024 * 1024
	defaultPDFMaxPages = 20
)

// PDFExtractTool extracts plain text from a PDF document.
// Inputs:
// - data: string (raw bytes) or data_base64: string (required)
// - pages: string (optional; e.g. "1-3,7")
// Output: string
type PDFExtractTool struct {
	MaxBytes int
	MaxPages int
}

func (t *PDFExtractTool) Name() string { return "pdf_extract" }

func (t *PDFExtractTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	buf, err := payload(inputs)
	if err != nil {
		return nil, "", err
	}
	maxBytes := orDefault(t.MaxBytes, defaultPDFMaxBytes)
	if len(buf) > maxBytes {
		return nil, "", fmt.Errorf("pdf too large: %d bytes > limit %d", len(buf), maxBytes)
	}
	r, err := pdfx.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, "", fmt.Errorf("open pdf: %w", err)
	}
	totalPages := r.NumPage()
	pageRange, _ := inputs["pages"].(string)
	selected := expandPages(pageRange, totalPages)
	if len(selected) == 0 {
		for i := 1; i <= totalPages; i++ {
			selected = append(selected, i)
		}
	}
	if maxPages := orDefault(t.MaxPages, defaultPDFMaxPages); len(selected) > maxPages {
		selected = selected[:maxPages]
	}

	var out strings.Builder
	for _, page := range selected {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		p := r.Page(page)
		if p.V.IsNull() {
			continue
		}
		txt, _ := p.GetPlainText(nil)
		if s := strings.TrimSpace(txt); s != "" {
			out.WriteString(s)
			out.WriteString("\n\n")
		}
	}
	text := strings.TrimSpace(out.String())
	return text, fmt.Sprintf("pages=%d/%d bytes=%d", len(selected), totalPages, len(buf)), nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func expandPages(ranges string, total int) []int {
	var out []int
	ranges = strings.TrimSpace(ranges)
	if ranges == "" {
		return out
	}
	seen := map[int]struct{}{}
	add := func(n int) {
		if n >= 1 && n <= total {
			if _, ok := seen[n]; !ok {
				out = append(out, n)
				seen[n] = struct{}{}
			}
		}
	}
	for _, p := range strings.Split(ranges, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(p, "-"); ok {
			a, _ := strconv.Atoi(strings.TrimSpace(lo))
			b, _ := strconv.Atoi(strings.TrimSpace(hi))
			if a > b {
				a, b = b, a
			}
			for i := a; i <= b; i++ {
				add(i)
			}
		} else {
			n, _ := strconv.Atoi(p)
			add(n)
		}
	}
	return out
}
