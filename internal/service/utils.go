package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// sanitizeUTF8 removes invalid UTF-8 sequences from string
// This prevents PostgreSQL encoding errors when saving text
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}

	return result.String()
}

// extractJSON cuts the outermost JSON value delimited by open/close out of
// a model response that may carry prose or markdown fences around it.
func extractJSON(content string, open, close byte) (string, bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.IndexByte(content, open)
	end := strings.LastIndexByte(content, close)
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return content[start : end+1], true
}

var (
	boxDrawing = regexp.MustCompile(`[│┃┆┊║─━┄┈═┌┐└┘├┤┬┴┼╔╗╚╝╠╣╦╩╬|]+`)
	spaceRun   = regexp.MustCompile(`[ \t\f\v]+`)
)

// normalizeReceiptText strips table borders and collapses whitespace while
// keeping one line per recognized row.
func normalizeReceiptText(text string) string {
	text = sanitizeUTF8(text)
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = boxDrawing.ReplaceAllString(line, " ")
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
