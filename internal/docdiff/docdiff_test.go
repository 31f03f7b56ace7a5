package docdiff

import (
	"strings"
	"testing"

	"github.com/codalotl/blockdiff/internal/diff"
	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/structdiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helloDocs returns the "Hello" -> "Hello World" + new paragraph pair.
func helloDocs(t *testing.T) (document.Document, document.Document) {
	t.Helper()
	oldDoc := document.New("v1")
	oldDoc, err := oldDoc.InsertBlock("", 0, document.Block{ID: "root"})
	require.NoError(t, err)
	oldDoc, err = oldDoc.InsertBlock("root", -1, document.Block{ID: "child1", Content: "Hello"})
	require.NoError(t, err)

	newDoc, err := oldDoc.SetContent("child1", "Hello World")
	require.NoError(t, err)
	newDoc, err = newDoc.InsertBlock("root", -1, document.Block{ID: "child2", Content: "New paragraph"})
	require.NoError(t, err)
	return oldDoc, newDoc.WithSnapshotID("v2")
}

func TestComputeDocumentDiff(t *testing.T) {
	oldDoc, newDoc := helloDocs(t)

	d, err := ComputeDocumentDiff(oldDoc, newDoc, "", "", nil)
	require.NoError(t, err)
	require.NoError(t, d.Validate())

	assert.Equal(t, "v1", d.FromSnapshotID)
	assert.Equal(t, "v2", d.ToSnapshotID)
	assert.Equal(t, structdiff.Summary{Added: 1, Modified: 1, Unchanged: 1}, d.Summary)
	assert.True(t, d.HasChanges())

	bd, ok := d.Block("child1")
	require.True(t, ok)
	assert.Equal(t, "Hello", bd.ContentDiff.OldText())
	assert.Equal(t, "Hello World", bd.ContentDiff.NewText())
	assert.Equal(t, "Hello{+ World+}", FormatTextDiff(bd.ContentDiff))

	added, ok := d.Block("child2")
	require.True(t, ok)
	assert.Nil(t, added.ContentDiff)

	_, ok = d.Block("nope")
	assert.False(t, ok)
}

func TestComputeDocumentDiff_Identity(t *testing.T) {
	_, doc := helloDocs(t)
	d, err := ComputeDocumentDiff(doc, doc, "s", "s", nil)
	require.NoError(t, err)
	require.NoError(t, d.Validate())
	assert.Equal(t, structdiff.Summary{Unchanged: doc.Len()}, d.Summary)
	assert.Empty(t, d.StructuralChanges)
	assert.NotNil(t, d.StructuralChanges)
	assert.False(t, d.HasChanges())
}

func TestComputeDocumentDiff_Granularity(t *testing.T) {
	oldDoc := document.New("")
	oldDoc, err := oldDoc.InsertBlock("", 0, document.Block{ID: "a", Content: "the quick fox"})
	require.NoError(t, err)
	newDoc, err := oldDoc.SetContent("a", "the quack fox")
	require.NoError(t, err)

	d, err := ComputeDocumentDiff(oldDoc, newDoc, "", "", &Options{Granularity: diff.GranularityChar})
	require.NoError(t, err)
	assert.Equal(t, "the qu[-i-]{+a+}ck fox", FormatTextDiff(d.Blocks["a"].ContentDiff))

	d, err = ComputeDocumentDiff(oldDoc, newDoc, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "the [-quick-]{+quack+} fox", FormatTextDiff(d.Blocks["a"].ContentDiff))
}

func TestQueries(t *testing.T) {
	oldDoc, newDoc := helloDocs(t)
	d, err := ComputeDocumentDiff(oldDoc, newDoc, "", "", nil)
	require.NoError(t, err)

	var ids []document.BlockID
	for _, bd := range d.Filter(structdiff.Added) {
		ids = append(ids, bd.ID)
	}
	assert.Equal(t, []document.BlockID{"child2"}, ids)
	assert.Len(t, d.Filter(structdiff.Removed), 0)

	ids = nil
	for _, bd := range d.Changed() {
		ids = append(ids, bd.ID)
	}
	assert.Equal(t, []document.BlockID{"child1", "child2"}, ids)

	td, err := ParseTextDiff(FormatTextDiff(d.Blocks["child1"].ContentDiff))
	require.NoError(t, err)
	assert.Equal(t, d.Blocks["child1"].ContentDiff, td)
}

func TestValidate_DetectsMismatch(t *testing.T) {
	oldDoc, newDoc := helloDocs(t)
	d, err := ComputeDocumentDiff(oldDoc, newDoc, "", "", nil)
	require.NoError(t, err)

	d.Summary.Unchanged++
	assert.Error(t, d.Validate())
}

func TestLargeDiff(t *testing.T) {
	oldDoc, newDoc := helloDocs(t)

	d, err := ComputeDocumentDiff(oldDoc, newDoc, "", "", &Options{LargeDiff: LargeDiff{MaxBlocks: 3}})
	require.NoError(t, err)
	require.NoError(t, d.Validate())
	assert.True(t, d.Large)
	assert.Equal(t, structdiff.Summary{Added: 1, Modified: 1, Unchanged: 1}, d.Summary)
	assert.Nil(t, d.Blocks["child1"].ContentDiff)
	assert.Empty(t, d.StructuralChanges)

	d, err = ComputeDocumentDiff(oldDoc, newDoc, "", "", &Options{LargeDiff: LargeDiff{MaxTokens: 1}})
	require.NoError(t, err)
	assert.True(t, d.Large)

	d, err = ComputeDocumentDiff(oldDoc, newDoc, "", "", &Options{LargeDiff: LargeDiff{MaxBlocks: 100, MaxTokens: 1000}})
	require.NoError(t, err)
	assert.False(t, d.Large)
	assert.NotNil(t, d.Blocks["child1"].ContentDiff)
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	assert.Greater(t, CountTokens("Hello World"), 0)

	// The encoder is built once and shared.
	e1, err := encoder()
	require.NoError(t, err)
	e2, err := encoder()
	require.NoError(t, err)
	assert.Same(t, e1, e2)
}

func TestComputeAsync(t *testing.T) {
	oldDoc, newDoc := helloDocs(t)
	res := <-ComputeAsync(oldDoc, newDoc, "", "", nil)
	require.NoError(t, res.Err)

	want, err := ComputeDocumentDiff(oldDoc, newDoc, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, want, res.Diff)
}

func TestRenderReport(t *testing.T) {
	oldDoc, newDoc := helloDocs(t)
	d, err := ComputeDocumentDiff(oldDoc, newDoc, "", "", nil)
	require.NoError(t, err)

	want := strings.Join([]string{
		"Diff: v1 → v2",
		strings.Repeat("─", 40),
		"Added (1):",
		`  + child2  "New paragraph"`,
		"Modified (1):",
		"  ~ child1",
		"    - Hello",
		"    + Hello{+ World+}",
		"",
	}, "\n")
	assert.Equal(t, want, RenderReport(d, ReportOptions{}))

	colored := RenderReport(d, ReportOptions{Color: true})
	assert.Contains(t, colored, ansiGreenBold+"Added"+ansiReset)
}

func TestRenderReport_MovedAndEmpty(t *testing.T) {
	_, doc := helloDocs(t)
	moved, err := doc.MoveBlock("child2", "child1", 0)
	require.NoError(t, err)

	d, err := ComputeDocumentDiff(doc, moved, "a", "b", nil)
	require.NoError(t, err)
	assert.Contains(t, RenderReport(d, ReportOptions{}), "Moved (1):\n  > child2  root[1] → child1[0]\n")

	same, err := ComputeDocumentDiff(doc, doc, "a", "a", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(RenderReport(same, ReportOptions{}), "No differences found\n"))
}

func TestRenderReport_EscapesControlCharacters(t *testing.T) {
	oldDoc, _ := helloDocs(t)
	newDoc, err := oldDoc.InsertBlock("root", -1, document.Block{ID: "evil", Content: "\x1b[2Jboom"})
	require.NoError(t, err)

	d, err := ComputeDocumentDiff(oldDoc, newDoc, "a", "b", nil)
	require.NoError(t, err)
	out := RenderReport(d, ReportOptions{})
	assert.Contains(t, out, `  + evil  "\x1b[2Jboom"`)
	assert.NotContains(t, out, "\x1b")
}
