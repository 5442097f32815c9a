package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/omnirecall/omnirecall/internal/domain"
)

var (
	citationMarkerRe       = regexp.MustCompile(`\[(\d+)\]`)
	horizontalWhitespaceRe = regexp.MustCompile(`[ \t]{2,}`)
	excessNewlinesRe       = regexp.MustCompile(`\n{3,}`)
)

// postProcessAnswer normalizes the model's answer and narrows the citation
// list to the snippets actually referenced. Markers pointing outside the
// citation range are removed; excess whitespace collapses while paragraph
// breaks survive. An answer referencing nothing keeps the full list.
func postProcessAnswer(answer string, citations []domain.Citation) (string, []domain.Citation) {
	if strings.TrimSpace(answer) == "" {
		return "", []domain.Citation{}
	}
	if len(citations) == 0 {
		return strings.TrimSpace(answer), []domain.Citation{}
	}

	var referenced []int
	normalized := citationMarkerRe.ReplaceAllStringFunc(answer, func(m string) string {
		n, err := strconv.Atoi(citationMarkerRe.FindStringSubmatch(m)[1])
		if err != nil || n < 1 || n > len(citations) {
			return ""
		}
		referenced = append(referenced, n)
		return fmt.Sprintf("[%d]", n)
	})

	collapsed := horizontalWhitespaceRe.ReplaceAllString(normalized, " ")
	collapsed = strings.TrimSpace(excessNewlinesRe.ReplaceAllString(collapsed, "\n\n"))

	seen := make(map[int]struct{}, len(referenced))
	unique := make([]domain.Citation, 0, len(referenced))
	for _, n := range referenced {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, citations[n-1])
	}

	if len(unique) == 0 {
		return collapsed, citations
	}
	return collapsed, unique
}
