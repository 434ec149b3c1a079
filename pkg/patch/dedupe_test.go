package patch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	t.Parallel()

	importLine := "import { estimateFees } from \"../services/FeeEstimator\";\n"
	text := importLine + "const a = 1;\n" + importLine + importLine + "export default a;\n"

	got, removed := Dedupe(text, importLine)
	require.Equal(t, 2, removed)
	require.Equal(t, importLine+"const a = 1;\nexport default a;\n", got)
}

func TestDedupeIsNonOverlapping(t *testing.T) {
	t.Parallel()

	got, removed := Dedupe("aaaaa", "aa")
	require.Equal(t, 1, removed)
	require.Equal(t, "aaa", got)
}

func TestDedupeNoDuplicates(t *testing.T) {
	t.Parallel()

	got, removed := Dedupe("single", "single")
	require.Zero(t, removed)
	require.Equal(t, "single", got)

	got, removed = Dedupe("text", "")
	require.Zero(t, removed)
	require.Equal(t, "text", got)
}

func TestDedupePatternSpansLines(t *testing.T) {
	t.Parallel()

	section := "{/* Native Status */}\n<section>\n  <h3>Native</h3>\n</section>\n"
	text := "<main>\n" + section + "<p>between</p>\n" + section + "</main>\n"

	got, removed, err := DedupePattern(text, `\{/\* Native Status \*/\}.*?</section>\n`)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, "<main>\n"+section+"<p>between</p>\n</main>\n", got)
}

func TestDedupePatternHandlesMultibyteText(t *testing.T) {
	t.Parallel()

	got, removed, err := DedupePattern("é-x1-ü-x2-ö", `x\d`)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, "é-x1-ü--ö", got)
}

func TestDedupePatternHandlesInvalidUTF8(t *testing.T) {
	t.Parallel()

	got, removed, err := DedupePattern("\xff\xfe-x1-\xff-x2-tail", `x\d`)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, "\xff\xfe-x1-\xff--tail", got)

	got, removed, err = DedupePattern("\xffab\xffab", `ab`)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, "\xffab\xff", got)
}

func TestDedupePatternInvalidExpression(t *testing.T) {
	t.Parallel()

	got, removed, err := DedupePattern("text", `(unclosed`)
	require.Error(t, err)
	require.Zero(t, removed)
	require.Equal(t, "text", got)
}
