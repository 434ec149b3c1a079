// Package render formats patch plans, diffs and diagnostics for terminals.
package render

import (
	"fmt"
	"io"
	"strings"

	glam "github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/asynkron/blockpatch/pkg/patch"
)

const (
	defaultWrap   = 100
	cellPreview   = 40
	diffContext   = 3
	diagnosticPad = 1
)

// Renderer styles output for a single writer.
type Renderer struct {
	color bool
	wrap  int

	failure lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	hunk    lipgloss.Style
}

// New creates a Renderer for out. Styling is disabled when useColor is false.
func New(out io.Writer, useColor bool) *Renderer {
	lr := lipgloss.NewRenderer(out)
	if useColor {
		// Fixed profile avoids terminal queries when out is not a TTY.
		lr.SetColorProfile(termenv.ANSI256)
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}

	return &Renderer{
		color: useColor,
		wrap:  defaultWrap,
		failure: lr.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("160")).
			PaddingLeft(diagnosticPad).
			PaddingRight(diagnosticPad),
		added:   lr.NewStyle().Foreground(lipgloss.Color("34")),
		removed: lr.NewStyle().Foreground(lipgloss.Color("160")),
		hunk:    lr.NewStyle().Foreground(lipgloss.Color("63")),
	}
}

// Diagnostic renders an engine error inside a bordered box.
func (r *Renderer) Diagnostic(err error) string {
	return r.failure.Render(patch.FormatError(err))
}

// UnifiedDiff returns a unified diff between before and after, or "" when they are equal.
func UnifiedDiff(path, before, after string) (string, error) {
	if before == after {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  diffContext,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("render diff for %s: %w", path, err)
	}
	return text, nil
}

// Diff colours the lines of a unified diff.
func (r *Renderer) Diff(diff string) string {
	if !r.color || diff == "" {
		return diff
	}
	lines := strings.SplitAfter(diff, "\n")
	var b strings.Builder
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]
		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			b.WriteString(body)
		case strings.HasPrefix(body, "@@"):
			b.WriteString(r.hunk.Render(body))
		case strings.HasPrefix(body, "+"):
			b.WriteString(r.added.Render(body))
		case strings.HasPrefix(body, "-"):
			b.WriteString(r.removed.Render(body))
		default:
			b.WriteString(body)
		}
		b.WriteString(nl)
	}
	return b.String()
}

// PlanMarkdown describes a plan as a markdown table.
func PlanMarkdown(source string, plan patch.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Patch plan: %s\n\n", source)
	if len(plan) == 0 {
		b.WriteString("_No blocks._\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d block(s), applied in order.\n\n", len(plan))
	b.WriteString("| # | Line | Search | Replace |\n")
	b.WriteString("|---|------|--------|---------|\n")
	for i, block := range plan {
		line := "-"
		if block.Line > 0 {
			line = fmt.Sprintf("%d", block.Line)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, line, tableCell(block.Search, "insert at start"), tableCell(block.Replace, "delete"))
	}
	return b.String()
}

// Plan renders PlanMarkdown through glamour.
func (r *Renderer) Plan(source string, plan patch.Plan) (string, error) {
	style := "notty"
	if r.color {
		style = "dark"
	}
	tr, err := glam.NewTermRenderer(
		glam.WithStylePath(style),
		glam.WithWordWrap(r.wrap),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := tr.Render(PlanMarkdown(source, plan))
	if err != nil {
		return "", fmt.Errorf("render plan: %w", err)
	}
	return out, nil
}

func tableCell(text, emptyLabel string) string {
	if text == "" {
		return "_(" + emptyLabel + ")_"
	}
	first, _, multi := strings.Cut(text, "\n")
	runes := []rune(first)
	if len(runes) > cellPreview {
		first = string(runes[:cellPreview]) + "…"
	} else if multi {
		first += " …"
	}
	lines := strings.Count(text, "\n") + 1
	cell := "`" + strings.ReplaceAll(first, "`", "'") + "`"
	if lines > 1 {
		cell += fmt.Sprintf(" (%d lines)", lines)
	}
	return strings.ReplaceAll(cell, "|", "\\|")
}
