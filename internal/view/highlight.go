package view

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Segment is a run of text that either matches a query term or not.
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match"`
}

// Highlight splits text into segments, marking case-insensitive occurrences of any
// whitespace-separated query term. Overlapping matches are merged.
func Highlight(text, query string) []Segment {
	terms := strings.Fields(strings.ToLower(query))
	if text == "" {
		return []Segment{}
	}
	if len(terms) == 0 {
		return []Segment{{Text: text}}
	}

	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		// Case folding changed byte offsets; fall back to exact-case matching.
		lower = text
	}

	type span struct{ start, end int }
	var spans []span
	for _, term := range terms {
		for from := 0; from < len(lower); {
			i := strings.Index(lower[from:], term)
			if i < 0 {
				break
			}
			start := from + i
			spans = append(spans, span{start, start + len(term)})
			from = start + len(term)
		}
	}
	if len(spans) == 0 {
		return []Segment{{Text: text}}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}

	var out []Segment
	pos := 0
	for _, s := range merged {
		if s.start > pos {
			out = append(out, Segment{Text: text[pos:s.start]})
		}
		out = append(out, Segment{Text: text[s.start:s.end], Match: true})
		pos = s.end
	}
	if pos < len(text) {
		out = append(out, Segment{Text: text[pos:]})
	}
	return out
}

// Excerpt truncates text to at most n runes, appending an ellipsis when cut.
func Excerpt(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimRightFunc(string(runes[:n]), func(r rune) bool { return r == ' ' }) + "…"
}
