package session

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/history"
	"github.com/codalotl/blockdiff/internal/structdiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, maxEntries int) *Session {
	t.Helper()
	doc, err := document.New("").InsertBlock("", 0, document.Block{ID: document.FormatID(0), ContentType: document.ContentHeading, Content: "Title"})
	require.NoError(t, err)
	s, err := New(doc, Options{MaxEntries: maxEntries})
	require.NoError(t, err)
	return s
}

func TestApplyUndoRedo(t *testing.T) {
	s := newSession(t, 10)
	root := document.FormatID(0)

	e, err := s.Apply("", Insert(root, -1, document.ContentText, "Hello"))
	require.NoError(t, err)
	child := e.Operations[0].BlockID
	assert.Equal(t, document.FormatID(1), child)
	assert.Equal(t, "insert "+string(child), e.Description)
	assert.Equal(t, e.SnapshotID, s.Document().SnapshotID)

	_, err = s.Apply("Edit greeting", SetContent(child, "Hello World"))
	require.NoError(t, err)
	assert.Equal(t, "Hello World", s.Document().Blocks[child].Content)

	tgt, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, 0, tgt.Index)
	assert.Equal(t, "Hello", s.Document().Blocks[child].Content)

	tgt, err = s.Undo()
	require.NoError(t, err)
	assert.True(t, tgt.Pristine())
	assert.False(t, s.Document().Has(child))
	assert.Equal(t, s.Pristine(), s.Document())

	_, err = s.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)

	_, err = s.Redo()
	require.NoError(t, err)
	_, err = s.Redo()
	require.NoError(t, err)
	assert.Equal(t, "Hello World", s.Document().Blocks[child].Content)
	_, err = s.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestApply_ErrorLeavesStateAlone(t *testing.T) {
	s := newSession(t, 10)
	before := s.Document()

	_, err := s.Apply("", SetContent("missing", "x"))
	require.ErrorIs(t, err, document.ErrInvalidReference)
	assert.Equal(t, before, s.Document())
	assert.Empty(t, s.History().Entries)

	bad := document.New("")
	bad.Blocks["x"] = document.Block{ID: "x", ParentID: "nope"}
	_, err = s.Apply("", Replace(bad, history.OpRestore, "bad"))
	require.ErrorIs(t, err, document.ErrInvalidReference)
	assert.Empty(t, s.History().Entries)
}

func TestIDsNeverReused(t *testing.T) {
	s := newSession(t, 10)
	root := document.FormatID(0)

	e, err := s.Apply("", Insert(root, -1, document.ContentText, "a"))
	require.NoError(t, err)
	first := e.Operations[0].BlockID

	_, err = s.Undo()
	require.NoError(t, err)

	e, err = s.Apply("", Insert(root, -1, document.ContentText, "b"))
	require.NoError(t, err)
	assert.NotEqual(t, first, e.Operations[0].BlockID)
}

func TestEdits(t *testing.T) {
	s := newSession(t, 10)
	root := document.FormatID(0)

	e, err := s.Apply("", Insert(root, -1, document.ContentText, "a"))
	require.NoError(t, err)
	a := e.Operations[0].BlockID
	e, err = s.Apply("", Insert(root, -1, document.ContentText, "b"))
	require.NoError(t, err)
	b := e.Operations[0].BlockID

	_, err = s.Apply("", Move(b, a, 0))
	require.NoError(t, err)
	assert.Equal(t, []document.BlockID{b}, s.Document().Blocks[a].Children)

	_, err = s.Apply("", SetMetadata(a, "label", "intro"))
	require.NoError(t, err)
	assert.Equal(t, "intro", s.Document().Blocks[a].Metadata["label"])
	_, err = s.Apply("", SetMetadata(a, "label", nil))
	require.NoError(t, err)
	assert.Empty(t, s.Document().Blocks[a].Metadata)

	_, err = s.Apply("", Link(b, document.EdgeSupports, root))
	require.NoError(t, err)
	assert.Len(t, s.Document().Blocks[b].Edges, 1)

	e, err = s.Apply("", Remove(a))
	require.NoError(t, err)
	assert.Equal(t, "remove "+string(a)+" (+1 more)", e.Description)
	assert.Equal(t, 1, s.Document().Len())
}

func TestDiffAndChanges(t *testing.T) {
	s := newSession(t, 10)
	root := document.FormatID(0)

	e, err := s.Apply("", Insert(root, -1, document.ContentText, "Hello"))
	require.NoError(t, err)
	child := e.Operations[0].BlockID
	_, err = s.Apply("", SetContent(child, "Hello World"))
	require.NoError(t, err)

	d, err := s.Diff(0, 1)
	require.NoError(t, err)
	assert.Equal(t, structdiff.Summary{Modified: 1, Unchanged: 1}, d.Summary)
	assert.Equal(t, "Hello World", d.Blocks[child].ContentDiff.NewText())

	d, err = s.Diff(-1, 1)
	require.NoError(t, err)
	assert.Equal(t, "pristine", d.FromSnapshotID)
	assert.Equal(t, structdiff.Summary{Added: 1, Unchanged: 1}, d.Summary)

	d, err = s.Changes()
	require.NoError(t, err)
	assert.Equal(t, 1, d.Summary.Added)

	_, err = s.Diff(0, 5)
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	s := newSession(t, 10)
	_, err := s.Apply("", Insert(document.FormatID(0), -1, document.ContentText, "x"))
	require.NoError(t, err)

	doc, err := document.New("").InsertBlock("", 0, document.Block{ID: "blk_0000000000ff", Content: "new"})
	require.NoError(t, err)
	require.NoError(t, s.Reset(doc, "import"))
	assert.Empty(t, s.History().Entries)
	assert.Equal(t, doc, s.Document())

	e, err := s.Apply("", Insert("", -1, document.ContentText, "y"))
	require.NoError(t, err)
	assert.Equal(t, document.BlockID("blk_000000000100"), e.Operations[0].BlockID)
}

func TestSaveLoad(t *testing.T) {
	s := newSession(t, 5)
	root := document.FormatID(0)
	e, err := s.Apply("", Insert(root, -1, document.ContentText, "Hello"))
	require.NoError(t, err)
	child := e.Operations[0].BlockID
	_, err = s.Apply("", SetContent(child, "Hello World"))
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state", "session.json")
	require.NoError(t, s.Save(path))

	loaded, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, s.History(), loaded.History())
	assert.Equal(t, s.Document(), loaded.Document())
	assert.Equal(t, s.Pristine(), loaded.Pristine())

	_, err = loaded.Redo()
	require.NoError(t, err)
	assert.Equal(t, "Hello World", loaded.Document().Blocks[child].Content)

	e, err = loaded.Apply("", Insert(root, -1, document.ContentText, "more"))
	require.NoError(t, err)
	assert.Equal(t, document.FormatID(2), e.Operations[0].BlockID)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSubscribe(t *testing.T) {
	s := newSession(t, 10)
	events, cancel := s.Subscribe(4)

	_, err := s.Apply("first", Insert(document.FormatID(0), -1, document.ContentText, "x"))
	require.NoError(t, err)
	ev := <-events
	assert.Equal(t, EventRecord, ev.Kind)
	assert.Equal(t, "first", ev.Description)
	assert.Equal(t, 0, ev.State.CurrentIndex)

	_, err = s.Undo()
	require.NoError(t, err)
	ev = <-events
	assert.Equal(t, EventUndo, ev.Kind)
	assert.Equal(t, -1, ev.State.CurrentIndex)

	cancel()
	cancel()
	_, ok := <-events
	assert.False(t, ok)

	// Publishing after cancel must not panic.
	_, err = s.Redo()
	require.NoError(t, err)
}

func TestSubscribe_ConcurrentWritersPublishInOrder(t *testing.T) {
	s := newSession(t, 1000)
	root := document.FormatID(0)
	events, cancel := s.Subscribe(1000)
	defer cancel()

	const writers, perWriter = 8, 20
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Apply("", Insert(root, -1, document.ContentText, "x"))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.Len(t, events, writers*perWriter)
	for i := 0; i < writers*perWriter; i++ {
		ev := <-events
		assert.Equal(t, i, ev.State.CurrentIndex)
		assert.Len(t, ev.State.Entries, i+1)
	}
}

func TestSubscribe_LastEventMatchesHistory(t *testing.T) {
	s := newSession(t, 5)
	root := document.FormatID(0)
	events, cancel := s.Subscribe(1000)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < 6; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				switch i % 3 {
				case 0, 1:
					_, err := s.Apply("", Insert(root, -1, document.ContentText, "x"))
					assert.NoError(t, err)
				default:
					_, _ = s.Undo()
				}
			}
		}()
	}
	wg.Wait()

	require.NotEmpty(t, events)
	var last Event
	for len(events) > 0 {
		last = <-events
	}
	assert.Equal(t, s.History(), last.State)
}
