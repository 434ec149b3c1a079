package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrinterWithoutColorWritesPlainText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := New(&buf, false)
	p.Header("--- %s ---", "Applying")
	p.Path("- %s", "a.txt")
	p.Error("failed: %d", 2)

	require.Equal(t, "--- Applying ---\n  - a.txt\nfailed: 2\n", buf.String())
}

func TestPrinterWithColorEmitsEscapes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf, true).Success("ok")
	require.Contains(t, buf.String(), "\x1b[")
	require.Contains(t, buf.String(), "ok")
}

func TestSummaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		print func(p *Printer)
		want  string
	}{
		{"applied", func(p *Printer) { p.PrintApplySummary("a.txt", 2, true, false) }, "Applied 2 block(s) to a.txt.\n"},
		{"dry run", func(p *Printer) { p.PrintApplySummary("a.txt", 1, false, true) }, "Dry run: 1 block(s) would apply to a.txt.\n"},
		{"unchanged", func(p *Printer) { p.PrintApplySummary("a.txt", 0, false, false) }, "No changes for a.txt.\n"},
		{"no duplicates", func(p *Printer) { p.PrintDedupeSummary("b.tsx", 0, false) }, "No duplicates found in b.tsx.\n"},
		{"removed", func(p *Printer) { p.PrintDedupeSummary("b.tsx", 3, false) }, "Removed 3 duplicate(s) from b.tsx.\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tc.print(New(&buf, false))
			require.Equal(t, tc.want, buf.String())
		})
	}
}
