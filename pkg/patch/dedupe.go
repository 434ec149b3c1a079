package patch

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// PatternTimeout bounds a single DedupePattern match.
const PatternTimeout = 2 * time.Second

// RemoveBlock returns an edit block that deletes the first occurrence of text.
func RemoveBlock(text string) EditBlock {
	return EditBlock{Search: text}
}

type span struct {
	start, end int
}

// Dedupe keeps the first occurrence of fragment in text and deletes every later
// non-overlapping occurrence. It returns the new text and the number of occurrences removed.
func Dedupe(text, fragment string) (string, int) {
	if fragment == "" {
		return text, 0
	}
	var spans []span
	for from := 0; ; {
		at := strings.Index(text[from:], fragment)
		if at < 0 {
			break
		}
		start := from + at
		spans = append(spans, span{start: start, end: start + len(fragment)})
		from = start + len(fragment)
	}
	return removeSpans(text, spans)
}

// DedupePattern is Dedupe for a regular expression. The pattern is compiled with dot matching
// newlines, so lazy section patterns such as `\{/\* Header \*/\}.*?</section>` span lines.
// Empty matches are ignored.
func DedupePattern(text, pattern string) (string, int, error) {
	re, err := regexp2.Compile(pattern, regexp2.Singleline)
	if err != nil {
		return text, 0, fmt.Errorf("invalid pattern: %w", err)
	}
	re.MatchTimeout = PatternTimeout

	// regexp2 reports positions in runes. An invalid byte decodes to one rune both here and in
	// the range loop, so offsets[i] is the byte offset of rune i.
	runes := []rune(text)
	offsets := make([]int, 0, len(runes)+1)
	for off := range text {
		offsets = append(offsets, off)
	}
	offsets = append(offsets, len(text))

	var spans []span
	match, err := re.FindRunesMatch(runes)
	for err == nil && match != nil {
		if match.Length > 0 {
			spans = append(spans, span{start: offsets[match.Index], end: offsets[match.Index+match.Length]})
		}
		match, err = re.FindNextMatch(match)
	}
	if err != nil {
		return text, 0, fmt.Errorf("match pattern: %w", err)
	}

	out, removed := removeSpans(text, spans)
	return out, removed, nil
}

// removeSpans deletes every span but the first. Spans must be ordered and non-overlapping.
func removeSpans(text string, spans []span) (string, int) {
	if len(spans) < 2 {
		return text, 0
	}
	var b strings.Builder
	b.Grow(len(text))
	last := spans[0].end
	b.WriteString(text[:last])
	for _, s := range spans[1:] {
		b.WriteString(text[last:s.start])
		last = s.end
	}
	b.WriteString(text[last:])
	return b.String(), len(spans) - 1
}
