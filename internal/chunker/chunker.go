// Package chunker splits normalized text into overlapping word windows.
package chunker

import "strings"

// Chunk splits text into windows of sizeWords whitespace-delimited tokens,
// each window advancing by sizeWords-overlapWords (minimum 1). The final
// window may be shorter; a window reaching the end of the token stream ends
// the sequence. Empty or whitespace-only input yields no chunks.
func Chunk(text string, sizeWords, overlapWords int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	size := max(1, sizeWords)
	overlap := min(max(0, overlapWords), size-1)
	step := max(1, size-overlap)

	var chunks []string
	for i := 0; i < len(words); i += step {
		end := min(i+size, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if i+size >= len(words) {
			break
		}
	}
	return chunks
}
