// Package segment splits long documents into an ordered sequence of logical
// sections for piecewise AI processing.
//
// Three strategies are tried in order, first success wins: markdown heading
// boundaries, blank-line paragraph boundaries, and fixed-width windows snapped
// to a nearby sentence ending. All cut points land on rune boundaries so a
// section never starts or ends mid multi-byte character.
package segment

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Section is a contiguous piece of a document, in document order.
type Section struct {
	// Text is the section content.
	Text string
	// Title is the derived section title: a markdown heading inside the
	// section, else a short leading sentence, else empty. Callers supply a
	// positional fallback ("Section N") when empty.
	Title string
}

const (
	// maxSectionRunes is the fixed-width fallback window size, roughly 2500
	// estimated tokens.
	maxSectionRunes = 10000
	// boundarySearchRunes is how far around a fixed-width cut point we look
	// for a sentence ending to snap to.
	boundarySearchRunes = 100
	// maxTitleRunes caps a leading sentence used as a derived title.
	maxTitleRunes = 100
	// Paragraph splitting is only accepted when it yields a sane number of
	// pieces: neither one giant blob nor hundreds of fragments.
	minParagraphs = 3
	maxParagraphs = 20
)

var (
	headingLineRe  = regexp.MustCompile(`(?m)^#{1,3}\s+.+$`)
	headingTitleRe = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)$`)
	paragraphGapRe = regexp.MustCompile(`\n{2,}`)
	sentenceEndRe  = regexp.MustCompile(`[.!?]\s`)
	firstSentRe    = regexp.MustCompile(`^([^.!?]+[.!?])`)
)

// Split segments text into ordered sections. Empty input yields nil; callers
// must handle a zero-section result.
func Split(text string) []Section {
	if text == "" {
		return nil
	}
	if secs := splitByHeadings(text); secs != nil {
		return secs
	}
	if secs := splitByParagraphs(text); secs != nil {
		return secs
	}
	return splitByWidth(text)
}

// splitByHeadings cuts at markdown heading lines (1-3 leading '#'). Applies
// only when at least two headings are present. Text before the first heading
// becomes an untitled leading section so no content is dropped.
func splitByHeadings(text string) []Section {
	locs := headingLineRe.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return nil
	}
	sections := make([]Section, 0, len(locs)+1)
	if locs[0][0] > 0 {
		if lead := text[:locs[0][0]]; strings.TrimSpace(lead) != "" {
			sections = append(sections, newSection(lead))
		}
	}
	for i := range locs {
		start := locs[i][0]
		end := len(text)
		if i < len(locs)-1 {
			end = locs[i+1][0]
		}
		sections = append(sections, newSection(text[start:end]))
	}
	return sections
}

// splitByParagraphs cuts at runs of 2+ newlines, accepted only when the piece
// count falls in [minParagraphs, maxParagraphs].
func splitByParagraphs(text string) []Section {
	parts := paragraphGapRe.Split(text, -1)
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) < minParagraphs || len(kept) > maxParagraphs {
		return nil
	}
	sections := make([]Section, 0, len(kept))
	for _, p := range kept {
		sections = append(sections, newSection(p))
	}
	return sections
}

// splitByWidth cuts fixed-size rune windows, snapping each cut to a sentence
// ending found within boundarySearchRunes of the target. The next window
// starts where the previous one ended, so snapping never drops a range.
func splitByWidth(text string) []Section {
	runes := []rune(text)
	var sections []Section
	for start := 0; start < len(runes); {
		end := start + maxSectionRunes
		if end >= len(runes) {
			sections = append(sections, newSection(string(runes[start:])))
			break
		}
		if snapped, ok := snapToSentence(runes, end); ok && snapped > start {
			end = snapped
		}
		sections = append(sections, newSection(string(runes[start:end])))
		start = end
	}
	return sections
}

// snapToSentence looks for a sentence-ending punctuation mark followed by
// whitespace near cut, returning the position just past that boundary.
func snapToSentence(runes []rune, cut int) (int, bool) {
	lo := cut - boundarySearchRunes
	if lo < 0 {
		lo = 0
	}
	hi := cut + boundarySearchRunes
	if hi > len(runes) {
		hi = len(runes)
	}
	window := string(runes[lo:hi])
	loc := sentenceEndRe.FindStringIndex(window)
	if loc == nil {
		return 0, false
	}
	// +2 covers the punctuation mark and the whitespace rune after it.
	return lo + utf8.RuneCountInString(window[:loc[0]]) + 2, true
}

func newSection(text string) Section {
	return Section{Text: text, Title: ExtractTitle(text)}
}

// ExtractTitle derives a title for a section: a markdown heading wins, else
// the first sentence when it is short, else empty.
func ExtractTitle(section string) string {
	if m := headingTitleRe.FindStringSubmatch(section); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := firstSentRe.FindStringSubmatch(section); m != nil {
		sent := strings.TrimSpace(m[1])
		if utf8.RuneCountInString(sent) < maxTitleRunes {
			return sent
		}
	}
	return ""
}
