package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleDoc returns: root -> [a -> [a1, a2], b].
func sampleDoc() Document {
	d := New("s1")
	d.Blocks["root"] = Block{ID: "root", ContentType: ContentHeading, Content: "Title", Children: []BlockID{"a", "b"}}
	d.Blocks["a"] = Block{ID: "a", ContentType: ContentText, Content: "A", ParentID: "root", Children: []BlockID{"a1", "a2"}}
	d.Blocks["a1"] = Block{ID: "a1", ContentType: ContentText, Content: "A1", ParentID: "a"}
	d.Blocks["a2"] = Block{ID: "a2", ContentType: ContentText, Content: "A2", ParentID: "a", Metadata: map[string]any{"label": "x"}}
	d.Blocks["b"] = Block{ID: "b", ContentType: ContentCode, Content: "B", ParentID: "root", Edges: []Edge{{Type: EdgeReferences, Target: "a1"}}}
	d.Roots = []BlockID{"root"}
	return d
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(sampleDoc()))
	require.NoError(t, Validate(New("")))

	tests := []struct {
		name  string
		mut   func(d *Document)
		field string
	}{
		{"missing root", func(d *Document) { d.Roots = append(d.Roots, "nope") }, "roots"},
		{"missing parent", func(d *Document) {
			b := d.Blocks["b"]
			b.ParentID = "nope"
			d.Blocks["b"] = b
		}, "parent_id"},
		{"missing child", func(d *Document) {
			b := d.Blocks["b"]
			b.Children = []BlockID{"nope"}
			d.Blocks["b"] = b
		}, "children"},
		{"missing edge target", func(d *Document) {
			b := d.Blocks["b"]
			b.Edges = []Edge{{Type: EdgeSupports, Target: "nope"}}
			d.Blocks["b"] = b
		}, "edges"},
		{"child with wrong parent", func(d *Document) {
			b := d.Blocks["b"]
			b.Children = []BlockID{"a1"}
			d.Blocks["b"] = b
		}, "children"},
		{"non-scalar metadata", func(d *Document) {
			b := d.Blocks["b"]
			b.Metadata = map[string]any{"k": []string{"x"}}
			d.Blocks["b"] = b
		}, "metadata"},
		{"orphan", func(d *Document) {
			d.Blocks["o"] = Block{ID: "o", ContentType: ContentText}
		}, "roots"},
		{"two parents", func(d *Document) {
			b := d.Blocks["b"]
			b.Children = []BlockID{"a1"}
			d.Blocks["b"] = b
			a1 := d.Blocks["a1"]
			a1.ParentID = "b"
			d.Blocks["a1"] = a1
		}, "children"},
		{"cycle", func(d *Document) {
			d.Blocks["x"] = Block{ID: "x", ParentID: "y", Children: []BlockID{"y"}}
			d.Blocks["y"] = Block{ID: "y", ParentID: "x", Children: []BlockID{"x"}}
		}, "parent_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleDoc()
			tt.mut(&d)
			err := Validate(d)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidReference))
			var ire *InvalidReferenceError
			require.True(t, errors.As(err, &ire))
			assert.Equal(t, tt.field, ire.Field)
		})
	}
}

func TestPreOrder(t *testing.T) {
	ids, err := sampleDoc().PreOrder()
	require.NoError(t, err)
	assert.Equal(t, []BlockID{"root", "a", "a1", "a2", "b"}, ids)

	d := sampleDoc()
	a := d.Blocks["a"]
	a.Children = []BlockID{"a1", "root"}
	d.Blocks["a"] = a
	_, err = d.PreOrder()
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestSubtreeAndAncestors(t *testing.T) {
	d := sampleDoc()
	sub, err := d.Subtree("a")
	require.NoError(t, err)
	assert.Equal(t, []BlockID{"a", "a1", "a2"}, sub)

	anc, err := d.Ancestors("a2")
	require.NoError(t, err)
	assert.Equal(t, []BlockID{"a", "root"}, anc)

	depth, err := d.Depth("a1")
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	parent, idx, ok := d.Position("a2")
	require.True(t, ok)
	assert.Equal(t, BlockID("a"), parent)
	assert.Equal(t, 1, idx)
}

func TestEdits_CopyOnWrite(t *testing.T) {
	orig := sampleDoc()

	d, err := orig.SetContent("a1", "changed")
	require.NoError(t, err)
	assert.Equal(t, "changed", d.Blocks["a1"].Content)
	assert.Equal(t, "A1", orig.Blocks["a1"].Content)

	d, err = orig.InsertBlock("a", 1, Block{ID: "new", Content: "N"})
	require.NoError(t, err)
	require.NoError(t, Validate(d))
	assert.Equal(t, []BlockID{"a1", "new", "a2"}, d.Blocks["a"].Children)
	assert.Equal(t, ContentText, d.Blocks["new"].ContentType)
	assert.Equal(t, []BlockID{"a1", "a2"}, orig.Blocks["a"].Children)

	d, err = orig.MoveBlock("b", "a", 0)
	require.NoError(t, err)
	require.NoError(t, Validate(d))
	assert.Equal(t, []BlockID{"b", "a1", "a2"}, d.Blocks["a"].Children)
	assert.Equal(t, []BlockID{"a"}, d.Blocks["root"].Children)
	assert.Equal(t, BlockID("root"), orig.Blocks["b"].ParentID)

	d, removed, err := orig.RemoveBlock("a")
	require.NoError(t, err)
	require.NoError(t, Validate(d))
	assert.Equal(t, []BlockID{"a", "a1", "a2"}, removed)
	assert.Empty(t, d.Blocks["b"].Edges)
	assert.Len(t, orig.Blocks["b"].Edges, 1)

	d, err = orig.SetMetadata("a2", "label", "y")
	require.NoError(t, err)
	assert.Equal(t, "y", d.Blocks["a2"].Metadata["label"])
	assert.Equal(t, "x", orig.Blocks["a2"].Metadata["label"])

	d, err = orig.AddEdge("a1", EdgeElaborates, "b")
	require.NoError(t, err)
	require.NoError(t, Validate(d))
	assert.Equal(t, []Edge{{Type: EdgeElaborates, Target: "b"}}, d.Blocks["a1"].Edges)
}

func TestEdits_Errors(t *testing.T) {
	d := sampleDoc()

	_, err := d.SetContent("nope", "x")
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = d.InsertBlock("root", 0, Block{ID: "a"})
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = d.InsertBlock("nope", 0, Block{ID: "z"})
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = d.MoveBlock("a", "a1", 0)
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = d.MoveBlock("a", "a", 0)
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = d.SetMetadata("a", "k", map[string]any{})
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = d.AddEdge("a", EdgeSupports, "nope")
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestScalarEqual(t *testing.T) {
	assert.True(t, ScalarEqual(3, float64(3)))
	assert.True(t, ScalarEqual("x", "x"))
	assert.True(t, ScalarEqual(nil, nil))
	assert.False(t, ScalarEqual("3", 3))
	assert.False(t, ScalarEqual(true, 1))
}

func TestIDAllocator(t *testing.T) {
	a := NewIDAllocator(0)
	assert.Equal(t, BlockID("blk_000000000000"), a.Next())
	assert.Equal(t, BlockID("blk_000000000001"), a.Next())

	d := New("")
	d.Blocks["blk_00000000002a"] = Block{ID: "blk_00000000002a"}
	d.Blocks["custom"] = Block{ID: "custom"}
	a.Observe(d)
	assert.Equal(t, uint64(0x2b), a.Counter())
	assert.Equal(t, BlockID("blk_00000000002b"), a.Next())

	n, ok := ParseID("blk_0000000000ff")
	require.True(t, ok)
	assert.Equal(t, uint64(255), n)
	_, ok = ParseID("blk_zz")
	assert.False(t, ok)
}
