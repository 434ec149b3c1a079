package patch

import (
	"strings"
)

// Marker lines delimiting a block. Each must occupy a whole line of the patch document.
const (
	MarkerSearch    = "<<<<<<< SEARCH"
	MarkerSeparator = "======="
	MarkerReplace   = ">>>>>>> REPLACE"
)

// EditBlock is a single search/replace pair parsed from a patch document.
//
// Search and Replace may both be empty: an empty Replace deletes the matched text and an
// empty Search inserts Replace at the start of the document.
type EditBlock struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
	// Line is the 1-based line of the block's start marker in the patch document.
	Line int `json:"line,omitempty"`
	// Offset is the byte offset of the block's start marker in the patch document.
	Offset int `json:"offset,omitempty"`
}

// Plan is an ordered sequence of edit blocks, in the order they appear in the patch document.
type Plan []EditBlock

type section int

const (
	sectionOutside section = iota
	sectionSearch
	sectionReplace
)

// Parse converts a patch document into a Plan.
//
// Text outside of blocks is ignored, so patches may be embedded in prose. Leading and trailing
// newlines are trimmed from the captured search and replace text; nothing else is normalized.
// A block that is missing its separator or end marker yields a *MalformedPatchError and no plan.
func Parse(input string) (Plan, error) {
	var (
		plan      Plan
		current   EditBlock
		state     = sectionOutside
		textStart int
		lineNo    int
	)

	for offset := 0; offset < len(input); {
		lineNo++
		start := offset
		end := strings.IndexByte(input[start:], '\n')
		if end < 0 {
			end = len(input)
			offset = len(input)
		} else {
			end += start
			offset = end + 1
		}
		marker := strings.TrimSuffix(input[start:end], "\r")

		switch state {
		case sectionOutside:
			if marker == MarkerSearch {
				current = EditBlock{Line: lineNo, Offset: start}
				state = sectionSearch
				textStart = offset
			}
		case sectionSearch:
			switch marker {
			case MarkerSearch:
				return nil, newMalformed(current, reasonMissingSeparator)
			case MarkerSeparator:
				current.Search = trimNewlines(input[textStart:start])
				state = sectionReplace
				textStart = offset
			}
		case sectionReplace:
			switch marker {
			case MarkerSearch:
				return nil, newMalformed(current, reasonMissingEnd)
			case MarkerReplace:
				current.Replace = trimNewlines(input[textStart:start])
				plan = append(plan, current)
				state = sectionOutside
			}
		}
	}

	switch state {
	case sectionSearch:
		return nil, newMalformed(current, reasonMissingSeparator)
	case sectionReplace:
		return nil, newMalformed(current, reasonMissingEnd)
	}
	return plan, nil
}

// Format renders a plan in the marker grammar understood by Parse.
func Format(plan Plan) string {
	var b strings.Builder
	for _, block := range plan {
		b.WriteString(MarkerSearch)
		b.WriteByte('\n')
		writeSection(&b, block.Search)
		b.WriteString(MarkerSeparator)
		b.WriteByte('\n')
		writeSection(&b, block.Replace)
		b.WriteString(MarkerReplace)
		b.WriteByte('\n')
	}
	return b.String()
}

func writeSection(b *strings.Builder, text string) {
	if text == "" {
		return
	}
	b.WriteString(text)
	b.WriteByte('\n')
}

func trimNewlines(text string) string {
	return strings.Trim(text, "\n")
}

func newMalformed(block EditBlock, reason string) *MalformedPatchError {
	return &MalformedPatchError{Offset: block.Offset, Line: block.Line, Reason: reason}
}
