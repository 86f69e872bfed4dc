package util

import (
	"strings"
)

// StripCodeFences removes a surrounding markdown code fence from an LLM
// response so the payload can be parsed as JSON.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence, e.g. ```json
	if idx := strings.Index(s, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{[") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
