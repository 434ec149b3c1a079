package patch

import (
	"strings"
)

// State is the phase of a single apply operation.
type State int

const (
	StateIdle State = iota
	StateApplying
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateApplying:
		return "applying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Block status values recorded in BlockStatus.Status.
const (
	StatusApplied = "applied"
	StatusNoMatch = "no-match"
)

// BlockStatus records how a block fared during an apply operation.
type BlockStatus struct {
	Index  int    `json:"index"`
	Status string `json:"status"`
}

// Report describes the outcome of ApplyWithReport.
type Report struct {
	State State
	// Content is the patched document on success and the untouched target on failure.
	Content  string
	Statuses []BlockStatus
}

type applier struct {
	state    State
	working  string
	statuses []BlockStatus
}

// ApplyPatch parses patchText and applies the resulting plan to target.
func ApplyPatch(target, patchText string) (string, error) {
	plan, err := Parse(patchText)
	if err != nil {
		return target, err
	}
	return Apply(target, plan)
}

// Apply applies every block of plan to target, in order, and returns the patched text.
//
// Each block replaces only the first occurrence of its search text in the working copy. If a
// block's search text is missing, application stops with an *UnmatchedBlockError and target is
// returned unchanged.
func Apply(target string, plan Plan) (string, error) {
	report, err := ApplyWithReport(target, plan)
	return report.Content, err
}

// ApplyWithReport behaves like Apply and also returns the final state and per-block statuses.
func ApplyWithReport(target string, plan Plan) (Report, error) {
	a := &applier{state: StateIdle, working: target}
	err := a.run(plan)
	report := Report{State: a.state, Content: a.working, Statuses: a.statuses}
	if err != nil {
		report.Content = target
	}
	return report, err
}

func (a *applier) run(plan Plan) error {
	for index, block := range plan {
		a.state = StateApplying
		at := strings.Index(a.working, block.Search)
		if at < 0 {
			a.statuses = append(a.statuses, BlockStatus{Index: index, Status: StatusNoMatch})
			a.state = StateFailed
			return &UnmatchedBlockError{
				BlockIndex: index,
				BlockCount: len(plan),
				Search:     block.Search,
				Line:       block.Line,
				Statuses:   append([]BlockStatus(nil), a.statuses...),
				Hint:       lineEndingHint(a.working, block.Search),
			}
		}
		a.working = splice(a.working, at, at+len(block.Search), block.Replace)
		a.statuses = append(a.statuses, BlockStatus{Index: index, Status: StatusApplied})
	}
	a.state = StateSucceeded
	return nil
}

// lineEndingHint reports whether search would have matched with the other line ending convention.
func lineEndingHint(working, search string) string {
	if !strings.ContainsAny(search, "\r\n") {
		return ""
	}
	if strings.Contains(search, "\r") {
		lf := strings.TrimSuffix(strings.ReplaceAll(search, "\r\n", "\n"), "\r")
		if lf != search && strings.Contains(working, lf) {
			return HintCRLFSearch
		}
		return ""
	}
	if strings.Contains(working, strings.ReplaceAll(search, "\n", "\r\n")) {
		return HintLFSearch
	}
	return ""
}

func splice(text string, start, end int, replacement string) string {
	var b strings.Builder
	b.Grow(len(text) - (end - start) + len(replacement))
	b.WriteString(text[:start])
	b.WriteString(replacement)
	b.WriteString(text[end:])
	return b.String()
}
