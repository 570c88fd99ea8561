package telegram

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the Bot API limit for a single text message.
const MaxMessageLength = 4096

// Split breaks text into chunks of at most limit bytes, preferring paragraph
// breaks, then line breaks, then spaces. Concatenating the chunks yields the
// original text.
func Split(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := cutPoint(text, limit)
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func cutPoint(text string, limit int) int {
	window := text[:limit]
	for _, sep := range []string{"\n\n", "\n", " "} {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return idx + len(sep)
		}
	}

	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	if limit == 0 {
		_, size := utf8.DecodeRuneInString(text)
		return size
	}
	return limit
}
