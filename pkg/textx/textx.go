// Package textx provides small text utilities used across the project.
package textx

import (
	"regexp"
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```.*?```")
	fenceMarkerRe = regexp.MustCompile("```[^\n]*\n?|\n?```")
	leadingTabRe  = regexp.MustCompile(`(?m)^(?: {4}|\t)`)
)

// StripCodeFences removes triple-backtick fence markers while preserving the
// text they enclose. The model is told not to emit fenced blocks; this guards
// against it doing so anyway.
func StripCodeFences(s string) string {
	return fencedBlockRe.ReplaceAllStringFunc(s, func(m string) string {
		return fenceMarkerRe.ReplaceAllString(m, "")
	})
}

// StripLeadingIndent drops a leading 4-space or tab indent from each line.
// Markdown renderers would otherwise treat such lines as code blocks.
func StripLeadingIndent(s string) string {
	return leadingTabRe.ReplaceAllString(s, "")
}
