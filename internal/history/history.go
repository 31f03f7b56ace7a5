// Package history keeps a bounded, linear sequence of document snapshots and an undo/redo pointer into it.
//
// Each recorded Entry points at a fully materialized document.Document owned by the Manager; the Operations on an entry are a human-readable log only and are never
// replayed. Restoring a state means taking the snapshot at the target index.
//
// State is (entries, current index). Index -1 is the pristine state before the first entry; the Manager does not hold that document, its owner does:
//
//	m := history.NewManager(100)
//	m.Record(doc1, "Edit heading")
//	m.Record(doc2, "Insert paragraph")
//	t, ok := m.Undo() // ok; t.Index == 0, t.Document is doc1
//	t, ok = m.Undo()  // ok; t.Pristine() is true; the owner restores its own pristine document
//	_, ok = m.Undo()  // !ok; nothing to undo
//
// Recording after an undo discards every entry after the current one (no redo branches). Recording past MaxEntries evicts the oldest entry and shifts the current
// index so it still refers to the same entry. Every mutation happens under one lock, so readers never observe a current index past the end of the entries.
package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/google/uuid"
)

// DefaultMaxEntries is used when NewManager is given a non-positive cap.
const DefaultMaxEntries = 100

// OperationKind names the kind of edit an Operation describes.
type OperationKind string

const (
	OpInsert      OperationKind = "insert"
	OpRemove      OperationKind = "remove"
	OpMove        OperationKind = "move"
	OpSetContent  OperationKind = "set_content"
	OpSetMetadata OperationKind = "set_metadata"
	OpAddEdge     OperationKind = "add_edge"
	OpImport      OperationKind = "import"
	OpRestore     OperationKind = "restore"
)

// Operation describes one edit within an Entry, for display and audit.
type Operation struct {
	Kind    OperationKind    `json:"kind"`
	BlockID document.BlockID `json:"block_id,omitempty"`
	Detail  string           `json:"detail,omitempty"`
}

// Entry is one recorded state.
type Entry struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Description string      `json:"description"`
	SnapshotID  string      `json:"snapshot_id"`
	Operations  []Operation `json:"operations,omitempty"`
}

// State is a point-in-time copy of a Manager's entries and pointer.
type State struct {
	Entries      []Entry `json:"entries"`
	CurrentIndex int     `json:"current_index"` // -1 is the pristine state
	MaxEntries   int     `json:"max_entries"`
}

// CanUndo reports whether the pointer can move back.
func (s State) CanUndo() bool {
	return s.CurrentIndex > -1
}

// CanRedo reports whether the pointer can move forward.
func (s State) CanRedo() bool {
	return s.CurrentIndex < len(s.Entries)-1
}

// Target is the state an Undo or Redo moved to.
type Target struct {
	Index    int
	Entry    Entry             // zero if Pristine
	Document document.Document // zero if Pristine
}

// Pristine reports whether the target is the state before the first entry, which the caller must restore itself.
func (t Target) Pristine() bool {
	return t.Index == -1
}

type slot struct {
	entry Entry
	doc   document.Document
}

// Manager is a bounded undo/redo history. It is safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	slots      []slot
	current    int
	maxEntries int

	now   func() time.Time
	newID func() string
}

// NewManager returns an empty Manager holding at most maxEntries entries (DefaultMaxEntries if maxEntries <= 0).
func NewManager(maxEntries int) *Manager {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Manager{
		current:    -1,
		maxEntries: maxEntries,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// Record stores doc as a new entry after the current one and makes it current. Entries after the current one are discarded first, and the oldest entry is evicted
// if the cap is exceeded. The stored snapshot is doc tagged with a fresh SnapshotID, which is also returned in the Entry.
func (m *Manager) Record(doc document.Document, description string, ops ...Operation) Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshotID := m.newID()
	e := Entry{
		ID:          m.newID(),
		Timestamp:   m.now().UTC().Round(0),
		Description: description,
		SnapshotID:  snapshotID,
		Operations:  append([]Operation(nil), ops...),
	}

	// Truncate the redo tail, append, then evict; all under one lock.
	m.slots = append(m.slots[:m.current+1:m.current+1], slot{entry: e, doc: doc.WithSnapshotID(snapshotID)})
	m.current = len(m.slots) - 1
	if excess := len(m.slots) - m.maxEntries; excess > 0 {
		m.slots = m.slots[excess:]
		m.current -= excess
	}
	return e
}

// Undo moves the pointer back one entry. ok is false (and nothing changes) if there is nothing to undo.
func (m *Manager) Undo() (t Target, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current <= -1 {
		return Target{}, false
	}
	m.current--
	return m.targetLocked(), true
}

// Redo moves the pointer forward one entry. ok is false (and nothing changes) if there is nothing to redo.
func (m *Manager) Redo() (t Target, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current >= len(m.slots)-1 {
		return Target{}, false
	}
	m.current++
	return m.targetLocked(), true
}

// Current returns the state the pointer is at.
func (m *Manager) Current() Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targetLocked()
}

func (m *Manager) targetLocked() Target {
	if m.current < 0 {
		return Target{Index: -1}
	}
	s := m.slots[m.current]
	return Target{Index: m.current, Entry: s.entry, Document: s.doc}
}

// Snapshot returns the document recorded at index. ok is false for -1 (pristine) and out-of-range indexes.
func (m *Manager) Snapshot(index int) (document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.slots) {
		return document.Document{}, false
	}
	return m.slots[index].doc, true
}

// State returns a copy of the entries and pointer.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	entries := make([]Entry, len(m.slots))
	for i, s := range m.slots {
		entries[i] = s.entry
	}
	return State{Entries: entries, CurrentIndex: m.current, MaxEntries: m.maxEntries}
}

// CanUndo reports whether Undo would succeed.
func (m *Manager) CanUndo() bool {
	return m.State().CanUndo()
}

// CanRedo reports whether Redo would succeed.
func (m *Manager) CanRedo() bool {
	return m.State().CanRedo()
}

// SetMaxEntries changes the cap. When shrinking, entries before the current one are evicted first, then entries after it, so the current entry survives.
func (m *Manager) SetMaxEntries(n int) {
	if n <= 0 {
		n = DefaultMaxEntries
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maxEntries = n
	excess := len(m.slots) - n
	if excess <= 0 {
		return
	}
	front := min(excess, max(m.current, 0))
	m.slots = m.slots[front:]
	m.current -= front
	if tail := excess - front; tail > 0 {
		m.slots = m.slots[:len(m.slots)-tail]
	}
}

// Clear drops every entry and resets the pointer to the pristine state.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = nil
	m.current = -1
}

// ArchivedEntry is an Entry together with its snapshot.
type ArchivedEntry struct {
	Entry    Entry             `json:"entry"`
	Document document.Document `json:"document"`
}

// Archive is the persistable form of a Manager.
type Archive struct {
	Entries      []ArchivedEntry `json:"entries"`
	CurrentIndex int             `json:"current_index"`
	MaxEntries   int             `json:"max_entries"`
}

// Export returns the complete history, snapshots included.
func (m *Manager) Export() Archive {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := Archive{CurrentIndex: m.current, MaxEntries: m.maxEntries, Entries: make([]ArchivedEntry, len(m.slots))}
	for i, s := range m.slots {
		a.Entries[i] = ArchivedEntry{Entry: s.entry, Document: s.doc}
	}
	return a
}

// Import replaces the Manager's contents with a. The archive is checked before anything changes: the index must be in range, the entry count within the cap, and
// each document must carry its entry's SnapshotID.
func (m *Manager) Import(a Archive) error {
	maxEntries := a.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if len(a.Entries) > maxEntries {
		return fmt.Errorf("history archive has %d entries, more than max %d", len(a.Entries), maxEntries)
	}
	if a.CurrentIndex < -1 || a.CurrentIndex >= len(a.Entries) {
		return fmt.Errorf("history archive current index %d out of range [-1, %d)", a.CurrentIndex, len(a.Entries))
	}
	slots := make([]slot, len(a.Entries))
	for i, ae := range a.Entries {
		if ae.Document.SnapshotID != ae.Entry.SnapshotID {
			return fmt.Errorf("history archive entry %d: document snapshot %q does not match entry snapshot %q", i, ae.Document.SnapshotID, ae.Entry.SnapshotID)
		}
		if ae.Document.Blocks == nil {
			ae.Document.Blocks = map[document.BlockID]document.Block{}
		}
		slots[i] = slot{entry: ae.Entry, doc: ae.Document}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = slots
	m.current = a.CurrentIndex
	m.maxEntries = maxEntries
	return nil
}
