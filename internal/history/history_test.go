package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// docWith returns a one-block document whose content is text.
func docWith(t *testing.T, text string) document.Document {
	t.Helper()
	d, err := document.New("").InsertBlock("", 0, document.Block{ID: "b", Content: text})
	require.NoError(t, err)
	return d
}

func descriptions(s State) []string {
	var out []string
	for _, e := range s.Entries {
		out = append(out, e.Description)
	}
	return out
}

func TestRecord(t *testing.T) {
	m := NewManager(10)
	st := m.State()
	assert.Equal(t, -1, st.CurrentIndex)
	assert.False(t, st.CanUndo())
	assert.False(t, st.CanRedo())

	e := m.Record(docWith(t, "one"), "first", Operation{Kind: OpSetContent, BlockID: "b"})
	assert.NotEmpty(t, e.ID)
	assert.NotEmpty(t, e.SnapshotID)
	assert.NotEqual(t, e.ID, e.SnapshotID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, []Operation{{Kind: OpSetContent, BlockID: "b"}}, e.Operations)

	snap, ok := m.Snapshot(0)
	require.True(t, ok)
	assert.Equal(t, e.SnapshotID, snap.SnapshotID)
	assert.Equal(t, "one", snap.Blocks["b"].Content)

	st = m.State()
	assert.Equal(t, 0, st.CurrentIndex)
	assert.True(t, st.CanUndo())
	assert.False(t, st.CanRedo())
}

func TestRecord_EvictsOldest(t *testing.T) {
	m := NewManager(3)
	for i := 1; i <= 5; i++ {
		m.Record(docWith(t, fmt.Sprint(i)), fmt.Sprintf("e%d", i))
	}
	st := m.State()
	assert.Equal(t, []string{"e3", "e4", "e5"}, descriptions(st))
	assert.Equal(t, 2, st.CurrentIndex)

	cur := m.Current()
	assert.Equal(t, "5", cur.Document.Blocks["b"].Content)
}

func TestRecord_TruncatesRedo(t *testing.T) {
	m := NewManager(10)
	for i := 1; i <= 3; i++ {
		m.Record(docWith(t, fmt.Sprint(i)), fmt.Sprintf("e%d", i))
	}
	_, ok := m.Undo()
	require.True(t, ok)
	assert.True(t, m.CanRedo())

	m.Record(docWith(t, "new"), "e4")
	st := m.State()
	assert.Equal(t, []string{"e1", "e2", "e4"}, descriptions(st))
	assert.Equal(t, 2, st.CurrentIndex)
	assert.False(t, st.CanRedo())
}

func TestRecord_EvictAfterUndoKeepsPointer(t *testing.T) {
	m := NewManager(2)
	m.Record(docWith(t, "1"), "e1")
	m.Record(docWith(t, "2"), "e2")
	m.Undo()
	m.Record(docWith(t, "3"), "e3")
	st := m.State()
	assert.Equal(t, []string{"e1", "e3"}, descriptions(st))
	assert.Equal(t, 1, st.CurrentIndex)
}

func TestUndoRedo(t *testing.T) {
	m := NewManager(10)
	m.Record(docWith(t, "1"), "e1")
	m.Record(docWith(t, "2"), "e2")

	tgt, ok := m.Undo()
	require.True(t, ok)
	assert.Equal(t, 0, tgt.Index)
	assert.Equal(t, "e1", tgt.Entry.Description)
	assert.Equal(t, "1", tgt.Document.Blocks["b"].Content)
	assert.False(t, tgt.Pristine())

	tgt, ok = m.Undo()
	require.True(t, ok)
	assert.True(t, tgt.Pristine())
	assert.Equal(t, -1, m.State().CurrentIndex)

	_, ok = m.Undo()
	assert.False(t, ok)
	assert.Equal(t, -1, m.State().CurrentIndex)

	tgt, ok = m.Redo()
	require.True(t, ok)
	assert.Equal(t, 0, tgt.Index)
	tgt, ok = m.Redo()
	require.True(t, ok)
	assert.Equal(t, "2", tgt.Document.Blocks["b"].Content)

	_, ok = m.Redo()
	assert.False(t, ok)
	assert.Equal(t, 1, m.State().CurrentIndex)
}

func TestSnapshot_OutOfRange(t *testing.T) {
	m := NewManager(10)
	_, ok := m.Snapshot(-1)
	assert.False(t, ok)
	_, ok = m.Snapshot(0)
	assert.False(t, ok)
}

func TestSetMaxEntries(t *testing.T) {
	tests := []struct {
		name    string
		undos   int
		max     int
		want    []string
		current int
	}{
		{"at end", 0, 2, []string{"e4", "e5"}, 1},
		{"in middle", 2, 2, []string{"e3", "e4"}, 0},
		{"pristine", 5, 2, []string{"e1", "e2"}, -1},
		{"grow", 0, 10, []string{"e1", "e2", "e3", "e4", "e5"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(10)
			for i := 1; i <= 5; i++ {
				m.Record(docWith(t, fmt.Sprint(i)), fmt.Sprintf("e%d", i))
			}
			for i := 0; i < tt.undos; i++ {
				m.Undo()
			}
			m.SetMaxEntries(tt.max)
			st := m.State()
			assert.Equal(t, tt.want, descriptions(st))
			assert.Equal(t, tt.current, st.CurrentIndex)
			assert.Equal(t, tt.max, st.MaxEntries)
		})
	}
}

func TestExportImport(t *testing.T) {
	m := NewManager(5)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }
	m.Record(docWith(t, "1"), "e1")
	m.Record(docWith(t, "2"), "e2")
	m.Undo()

	a := m.Export()
	m2 := NewManager(0)
	require.NoError(t, m2.Import(a))
	assert.Equal(t, m.State(), m2.State())
	tgt, ok := m2.Redo()
	require.True(t, ok)
	assert.Equal(t, "2", tgt.Document.Blocks["b"].Content)

	bad := a
	bad.CurrentIndex = 2
	assert.Error(t, NewManager(0).Import(bad))

	bad = m.Export()
	bad.Entries[0].Document.SnapshotID = "other"
	assert.Error(t, NewManager(0).Import(bad))

	bad = m.Export()
	bad.MaxEntries = 1
	assert.Error(t, NewManager(0).Import(bad))
}

func TestClear(t *testing.T) {
	m := NewManager(5)
	m.Record(docWith(t, "1"), "e1")
	m.Clear()
	st := m.State()
	assert.Empty(t, st.Entries)
	assert.Equal(t, -1, st.CurrentIndex)
}

func TestConcurrentAccess(t *testing.T) {
	m := NewManager(4)
	doc := docWith(t, "x")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch j % 3 {
				case 0:
					m.Record(doc, "r")
				case 1:
					m.Undo()
				default:
					m.Redo()
				}
				st := m.State()
				if st.CurrentIndex >= len(st.Entries) || st.CurrentIndex < -1 || len(st.Entries) > 4 {
					t.Errorf("bad state: index %d with %d entries", st.CurrentIndex, len(st.Entries))
				}
			}
		}()
	}
	wg.Wait()
}
