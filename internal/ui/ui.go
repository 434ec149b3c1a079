package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Printer writes coloured status lines, normally to stderr.
type Printer struct {
	out     io.Writer
	header  *color.Color
	info    *color.Color
	success *color.Color
	warning *color.Color
	err     *color.Color
	path    *color.Color
}

// New creates a Printer writing to out. Colour is disabled when useColor is false.
func New(out io.Writer, useColor bool) *Printer {
	p := &Printer{
		out:     out,
		header:  color.New(color.FgBlue, color.Bold),
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		err:     color.New(color.FgRed),
		path:    color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.header, p.info, p.success, p.warning, p.err, p.path} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) Header(format string, a ...interface{}) {
	p.header.Fprintf(p.out, format+"\n", a...)
}

func (p *Printer) Info(format string, a ...interface{}) {
	p.info.Fprintf(p.out, format+"\n", a...)
}

func (p *Printer) Success(format string, a ...interface{}) {
	p.success.Fprintf(p.out, format+"\n", a...)
}

func (p *Printer) Warning(format string, a ...interface{}) {
	p.warning.Fprintf(p.out, format+"\n", a...)
}

func (p *Printer) Error(format string, a ...interface{}) {
	p.err.Fprintf(p.out, format+"\n", a...)
}

func (p *Printer) Path(format string, a ...interface{}) {
	p.path.Fprintf(p.out, "  "+format+"\n", a...)
}

// Raw writes text without styling.
func (p *Printer) Raw(text string) {
	fmt.Fprint(p.out, text)
}

// --- Summaries ---

// PrintApplySummary reports the outcome of applying a patch to one file.
func (p *Printer) PrintApplySummary(path string, blocks int, written, dryRun bool) {
	switch {
	case dryRun:
		p.Info("Dry run: %d block(s) would apply to %s.", blocks, path)
	case written:
		p.Success("Applied %d block(s) to %s.", blocks, path)
	default:
		p.Info("No changes for %s.", path)
	}
}

// PrintDedupeSummary reports the outcome of a dedupe run.
func (p *Printer) PrintDedupeSummary(path string, removed int, dryRun bool) {
	switch {
	case removed == 0:
		p.Info("No duplicates found in %s.", path)
	case dryRun:
		p.Info("Dry run: %d duplicate(s) would be removed from %s.", removed, path)
	default:
		p.Success("Removed %d duplicate(s) from %s.", removed, path)
	}
}
