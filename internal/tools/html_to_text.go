package tools

import (
	"context"
	"strings"

	"golang.org/x/net/html"
)

type HTMLToTextTool struct{}

func (t *HTMLToTextTool) Name() string { return "html_to_text" }

func (t *HTMLToTextTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	htmlStr, _ := inputs["html"].(string)
	if htmlStr == "" {
		return "", "", nil
	}
	node, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return "", "", err
	}
	var b strings.Builder
	extractText(node, &b, false)
	return strings.TrimSpace(compactWhitespace(b.String())), "", nil
}

func extractText(n *html.Node, b *strings.Builder, inHidden bool) {
	if n.Type == html.ElementNode {
		// skip script/style/noscript
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript":
			inHidden = true
		case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "pre":
			b.WriteString("\n")
		}
	}
	if !inHidden && n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, b, inHidden)
	}
}

// compactWhitespace collapses runs of spaces and drops empty lines.
func compactWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.Join(strings.Fields(ln), " "); ln != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}
