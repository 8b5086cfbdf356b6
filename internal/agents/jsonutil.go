package agents

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeBlockRE = regexp.MustCompile("```(?:[a-zA-Z0-9_+-]+)?\\n([\\s\\S]+?)```")

// extractCode returns the body of the first fenced code block, or the trimmed
// reply when there is none.
func extractCode(reply string) string {
	if m := codeBlockRE.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(reply)
}

// stripFences removes a surrounding ```lang ... ``` fence.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	// drop possible language hint, e.g., json
	if idx := strings.IndexByte(t, '\n'); idx != -1 {
		t = t[idx+1:]
	}
	if j := strings.LastIndex(t, "```"); j != -1 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

// extractJSON returns the first balanced value delimited by open/close,
// skipping delimiters inside string literals.
func extractJSON(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// decodeObject unmarshals the first JSON object found in reply into v.
func decodeObject(reply string, v any) bool {
	t := stripFences(reply)
	if json.Unmarshal([]byte(t), v) == nil {
		return true
	}
	obj := extractJSON(t, '{', '}')
	return obj != "" && json.Unmarshal([]byte(obj), v) == nil
}

// flexString accepts a JSON string, number, bool or list and keeps it as text.
// Models are inconsistent about returning issues as a string or an array.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var list []any
	if err := json.Unmarshal(b, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if str, ok := item.(string); ok {
				parts = append(parts, str)
			} else {
				raw, _ := json.Marshal(item)
				parts = append(parts, string(raw))
			}
		}
		*f = flexString(strings.Join(parts, "\n"))
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(strings.TrimSpace(string(b)))
	return nil
}
