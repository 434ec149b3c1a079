package patch

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Error codes reported by Code.
const (
	CodeMalformedPatch = "MALFORMED_PATCH"
	CodeBlockNotFound  = "BLOCK_NOT_FOUND"
	CodeInvalidPlan    = "INVALID_PLAN"
)

const (
	reasonMissingSeparator = "missing " + MarkerSeparator + " separator"
	reasonMissingEnd       = "missing " + MarkerReplace + " marker"
)

// Line ending hints attached to UnmatchedBlockError.Hint.
const (
	HintCRLFSearch = "The search text has CRLF line endings but the target uses LF. Convert the patch to LF line endings."
	HintLFSearch   = "The search text has LF line endings but the target uses CRLF. Convert the patch to CRLF line endings."
)

// PreviewLimit is the number of runes of search text kept by SearchPreview.
const PreviewLimit = 50

// Error is implemented by every failure the engine reports.
type Error interface {
	error
	Code() string
}

// MalformedPatchError reports a block whose separator or end marker is missing.
type MalformedPatchError struct {
	// Offset is the byte offset of the incomplete block's start marker.
	Offset int
	// Line is the 1-based line of the incomplete block's start marker.
	Line   int
	Reason string
}

func (e *MalformedPatchError) Error() string {
	return fmt.Sprintf("malformed patch: block at line %d (offset %d): %s", e.Line, e.Offset, e.Reason)
}

// Code implements Error.
func (e *MalformedPatchError) Code() string { return CodeMalformedPatch }

// UnmatchedBlockError reports a block whose search text does not occur in the working copy.
type UnmatchedBlockError struct {
	// BlockIndex is the 0-based position of the failing block in the plan.
	BlockIndex int
	BlockCount int
	// Search is the complete search text of the failing block.
	Search string
	// Line is the patch line of the block's start marker, or 0 when the plan was built in code.
	Line     int
	Statuses []BlockStatus
	// Hint explains a near miss, such as a search that only differs from the target in line endings.
	Hint string
}

func (e *UnmatchedBlockError) Error() string {
	return fmt.Sprintf("search block %d of %d not found: %q", e.BlockIndex+1, e.BlockCount, e.SearchPreview())
}

// Code implements Error.
func (e *UnmatchedBlockError) Code() string { return CodeBlockNotFound }

// SearchPreview returns the search text cut to PreviewLimit runes.
func (e *UnmatchedBlockError) SearchPreview() string {
	return preview(e.Search, PreviewLimit)
}

// SchemaError reports a JSON plan that does not satisfy the plan schema.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	if len(e.Issues) == 0 {
		return "plan failed schema validation"
	}
	return strings.Join(e.Issues, "; ")
}

// Code implements Error.
func (e *SchemaError) Code() string { return CodeInvalidPlan }

// CodeOf returns the code of the first Error in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var pe Error
	if errors.As(err, &pe) {
		return pe.Code()
	}
	return ""
}

// IsMalformed reports whether err is a *MalformedPatchError.
func IsMalformed(err error) bool {
	var target *MalformedPatchError
	return errors.As(err, &target)
}

// IsUnmatched reports whether err is an *UnmatchedBlockError.
func IsUnmatched(err error) bool {
	var target *UnmatchedBlockError
	return errors.As(err, &target)
}

func preview(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}

func describeBlockStatuses(statuses []BlockStatus) string {
	if len(statuses) == 0 {
		return ""
	}
	var applied []string
	var failed string
	for _, status := range statuses {
		if status.Status == StatusApplied {
			applied = append(applied, fmt.Sprintf("%d", status.Index+1))
			continue
		}
		if failed == "" {
			failed = fmt.Sprintf("No match for block %d.", status.Index+1)
		}
	}

	parts := make([]string, 0, 2)
	if len(applied) > 0 {
		parts = append(parts, fmt.Sprintf("Blocks applied: %s.", strings.Join(applied, ", ")))
	}
	if failed != "" {
		parts = append(parts, failed)
	}
	return strings.Join(parts, "\n")
}

// FormatError renders engine errors into a message suitable for end users. Errors from
// outside the engine are rendered with their Error text.
func FormatError(err error) string {
	if err == nil {
		return "Unknown error occurred."
	}

	var unmatched *UnmatchedBlockError
	if errors.As(err, &unmatched) {
		headline := fmt.Sprintf("Search block %d of %d not found.", unmatched.BlockIndex+1, unmatched.BlockCount)
		if unmatched.Line > 0 {
			headline = fmt.Sprintf("Search block %d of %d (patch line %d) not found.", unmatched.BlockIndex+1, unmatched.BlockCount, unmatched.Line)
		}
		parts := []string{headline}
		if summary := describeBlockStatuses(unmatched.Statuses); summary != "" {
			parts = append(parts, "", summary)
		}
		parts = append(parts, "", "Offending search text:", unmatched.Search)
		if unmatched.Hint != "" {
			parts = append(parts, "", unmatched.Hint)
		}
		return strings.Join(parts, "\n")
	}

	var malformed *MalformedPatchError
	if errors.As(err, &malformed) {
		return fmt.Sprintf("Malformed patch: the block starting at line %d (byte offset %d) is %s.", malformed.Line, malformed.Offset, malformed.Reason)
	}

	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		if len(schemaErr.Issues) == 0 {
			return "Invalid plan."
		}
		return "Invalid plan:\n- " + strings.Join(schemaErr.Issues, "\n- ")
	}

	return err.Error()
}
