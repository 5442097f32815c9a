package domain

import "strings"

// BuildSnippet flattens newlines to spaces and truncates to maxLen runes,
// appending an ellipsis marker when the text was cut.
func BuildSnippet(content string, maxLen int) string {
	normalized := strings.NewReplacer("\r", " ", "\n", " ").Replace(content)
	normalized = strings.TrimSpace(normalized)

	runes := []rune(normalized)
	if len(runes) <= maxLen {
		return normalized
	}
	return string(runes[:maxLen]) + "..."
}
