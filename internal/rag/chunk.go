package rag

import (
	"strings"
	"unicode/utf8"
)

// ChunkText splits text on blank lines and packs paragraphs into chunks of at
// most size runes. A paragraph longer than size is split on rune boundaries.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = 1500
	}
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	for _, paragraph := range splitParagraphs(text) {
		for _, piece := range splitRunes(paragraph, size) {
			pieceLen := utf8.RuneCountInString(piece)
			currentLen := utf8.RuneCountInString(current.String())
			if currentLen > 0 && currentLen+2+pieceLen > size {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(piece)
		}
	}
	flush()
	return chunks
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

func splitRunes(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	pieces := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
