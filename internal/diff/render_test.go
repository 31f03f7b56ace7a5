package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	td := TextDiff{{OpEqual, "the "}, {OpDelete, "quick"}, {OpInsert, "slow"}, {OpEqual, " fox"}}
	assert.Equal(t, "the [-quick-]{+slow+} fox", Format(td))

	escaped := TextDiff{{OpEqual, `a\b`}, {OpDelete, "[x]-"}, {OpInsert, "{y}+"}}
	out := Format(escaped)
	assert.Equal(t, `a\\b[-\[x\]--]{+\{y\}++}`, out)

	parsed, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, escaped, parsed)
}

func TestParse(t *testing.T) {
	td, err := Parse("Hello{+ World+}")
	require.NoError(t, err)
	assert.Equal(t, "Hello", td.OldText())
	assert.Equal(t, "Hello World", td.NewText())

	td, err = Parse("")
	require.NoError(t, err)
	assert.Nil(t, td)

	for _, bad := range []string{"[-open", "{+open", "a[b", "a]b", `trailing\`, "x}"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestRenderPretty(t *testing.T) {
	td := TextDiff{{OpEqual, "a"}, {OpDelete, "b"}, {OpInsert, "c"}}
	assert.Equal(t, "a[-b-]{+c+}", td.RenderPretty(false))

	colored := td.RenderPretty(true)
	assert.Contains(t, colored, redFG+strike+"b"+reset)
	assert.Contains(t, colored, greenFG+"c"+reset)
}

func TestRenderLines(t *testing.T) {
	td := TextDiff{{OpEqual, "Hello "}, {OpDelete, "there"}, {OpInsert, "World"}}
	assert.Equal(t, "- Hello [-there-]\n+ Hello {+World+}", td.RenderLines(false))

	inserted := TextDiff{{OpInsert, "new"}}
	assert.Equal(t, "-\n+ {+new+}", inserted.RenderLines(false))

	multi := TextDiff{{OpEqual, "a\nb"}}
	assert.Equal(t, "- a\n  b\n+ a\n  b", multi.RenderLines(false))

	colored := td.RenderLines(true)
	assert.Contains(t, colored, pinkSpan+"there")
	assert.Contains(t, colored, greenSpan+"World")
}
