package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asynkron/blockpatch/pkg/patch"
)

func TestUnifiedDiff(t *testing.T) {
	t.Parallel()

	diff, err := UnifiedDiff("app.txt", "line1\nline2\nline3\n", "line1\nlineTWO\nline3\n")
	require.NoError(t, err)
	require.Contains(t, diff, "--- a/app.txt")
	require.Contains(t, diff, "+++ b/app.txt")
	require.Contains(t, diff, "-line2\n")
	require.Contains(t, diff, "+lineTWO\n")

	diff, err = UnifiedDiff("app.txt", "same", "same")
	require.NoError(t, err)
	require.Empty(t, diff)
}

func TestDiffWithoutColorIsUnchanged(t *testing.T) {
	t.Parallel()

	r := New(&bytes.Buffer{}, false)
	diff := "--- a/x\n+++ b/x\n@@ -1 +1 @@\n-a\n+b\n"
	require.Equal(t, diff, r.Diff(diff))
}

func TestDiffWithColorKeepsContent(t *testing.T) {
	t.Parallel()

	r := New(&bytes.Buffer{}, true)
	diff := "--- a/x\n+++ b/x\n@@ -1 +1 @@\n-a\n+b\n"
	got := r.Diff(diff)
	require.Equal(t, strings.Count(diff, "\n"), strings.Count(got, "\n"))
	require.Contains(t, got, "-a")
	require.Contains(t, got, "+b")
}

func TestDiagnosticIncludesFormattedError(t *testing.T) {
	t.Parallel()

	r := New(&bytes.Buffer{}, false)
	out := r.Diagnostic(&patch.UnmatchedBlockError{BlockIndex: 0, BlockCount: 2, Search: "needle"})
	require.Contains(t, out, "Search block 1 of 2 not found.")
	require.Contains(t, out, "needle")
}

func TestPlanMarkdown(t *testing.T) {
	t.Parallel()

	plan := patch.Plan{
		{Search: "line2", Replace: "lineTWO", Line: 1},
		{Search: "", Replace: "a|b\nc", Line: 6},
		{Search: "gone"},
	}
	md := PlanMarkdown("fix.patch", plan)
	require.Contains(t, md, "# Patch plan: fix.patch")
	require.Contains(t, md, "3 block(s), applied in order.")
	require.Contains(t, md, "| 1 | 1 | `line2` | `lineTWO` |")
	require.Contains(t, md, "| 2 | 6 | _(insert at start)_ | `a\\|b …` (2 lines) |")
	require.Contains(t, md, "| 3 | - | `gone` | _(delete)_ |")

	require.Contains(t, PlanMarkdown("empty.patch", nil), "_No blocks._")
}

func TestPlanRendersThroughGlamour(t *testing.T) {
	t.Parallel()

	out, err := New(&bytes.Buffer{}, false).Plan("fix.patch", patch.Plan{{Search: "old", Replace: "new"}})
	require.NoError(t, err)
	require.Contains(t, out, "Patch plan: fix.patch")
	require.Contains(t, out, "old")
}
