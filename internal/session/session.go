// Package session owns an editable document: its pristine state, its current state, the undo/redo history over it, and the id allocator for new blocks.
//
// A Session is the single writer for its document. Edits are applied one at a time under a lock, each producing a new copy-on-write document.Document that
// is validated and then recorded in the history. Readers get immutable document values, so they can diff or render them without holding the lock.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/codalotl/blockdiff/internal/docdiff"
	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/history"
	"github.com/codalotl/blockdiff/internal/simplelogger"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Options configure a Session.
type Options struct {
	MaxEntries int              // history cap; history.DefaultMaxEntries if <= 0
	Diff       *docdiff.Options // used by Diff and Changes; may be nil
}

// Edit produces the next document from doc. It may allocate ids from alloc, and returns the operations it performed for the history log.
type Edit func(doc document.Document, alloc *document.IDAllocator) (document.Document, []history.Operation, error)

// EventKind is the kind of change an Event reports.
type EventKind string

const (
	EventRecord EventKind = "record"
	EventUndo   EventKind = "undo"
	EventRedo   EventKind = "redo"
	EventReset  EventKind = "reset"
)

// Event is sent to subscribers after every change to the session.
type Event struct {
	Kind        EventKind     `json:"kind"`
	Description string        `json:"description,omitempty"`
	State       history.State `json:"state"`
}

// Session is safe for concurrent use; mutations are serialized.
type Session struct {
	mu       sync.Mutex
	pristine document.Document
	current  document.Document
	hist     *history.Manager
	alloc    *document.IDAllocator
	diffOpts *docdiff.Options

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New returns a Session whose pristine and current document is doc. doc must be valid.
func New(doc document.Document, opts Options) (*Session, error) {
	if err := document.Validate(doc); err != nil {
		return nil, fmt.Errorf("pristine document: %w", err)
	}
	if doc.Blocks == nil {
		doc.Blocks = map[document.BlockID]document.Block{}
	}
	alloc := document.NewIDAllocator(0)
	alloc.Observe(doc)
	return &Session{
		pristine: doc,
		current:  doc,
		hist:     history.NewManager(opts.MaxEntries),
		alloc:    alloc,
		diffOpts: opts.Diff,
		subs:     map[int]chan Event{},
	}, nil
}

// Document returns the current document.
func (s *Session) Document() document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Pristine returns the document the history starts from (index -1).
func (s *Session) Pristine() document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pristine
}

// History returns a copy of the history state.
func (s *Session) History() history.State {
	return s.hist.State()
}

// SetMaxEntries changes the history cap. See history.Manager.SetMaxEntries.
func (s *Session) SetMaxEntries(n int) {
	s.hist.SetMaxEntries(n)
}

// Apply runs edit against the current document, validates the result, makes it current, and records it. If description is empty, one is derived from the
// operations. On error nothing changes.
func (s *Session) Apply(description string, edit Edit) (history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ops, err := edit(s.current, s.alloc)
	if err != nil {
		return history.Entry{}, err
	}
	if err := document.Validate(next); err != nil {
		return history.Entry{}, fmt.Errorf("edit produced an invalid document: %w", err)
	}
	if description == "" {
		description = describe(ops)
	}
	s.alloc.Observe(next)
	entry := s.hist.Record(next, description, ops...)
	st := s.hist.State()
	s.current, _ = s.hist.Snapshot(st.CurrentIndex)

	simplelogger.Log("session: recorded %q (snapshot %s, %d ops)", description, entry.SnapshotID, len(ops))
	s.publish(Event{Kind: EventRecord, Description: description, State: st})
	return entry, nil
}

// Undo restores the previous state and returns the history target it moved to. It returns ErrNothingToUndo at the start of the history.
func (s *Session) Undo() (history.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.hist.Undo()
	if !ok {
		return history.Target{}, ErrNothingToUndo
	}
	s.restoreLocked(t)

	simplelogger.Log("session: undo to index %d", t.Index)
	s.publish(Event{Kind: EventUndo, Description: t.Entry.Description, State: s.hist.State()})
	return t, nil
}

// Redo re-applies the next state and returns the history target it moved to. It returns ErrNothingToRedo at the end of the history.
func (s *Session) Redo() (history.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.hist.Redo()
	if !ok {
		return history.Target{}, ErrNothingToRedo
	}
	s.restoreLocked(t)

	simplelogger.Log("session: redo to index %d", t.Index)
	s.publish(Event{Kind: EventRedo, Description: t.Entry.Description, State: s.hist.State()})
	return t, nil
}

func (s *Session) restoreLocked(t history.Target) {
	if t.Pristine() {
		s.current = s.pristine
		return
	}
	s.current = t.Document
}

// Reset discards the history and starts over from doc as the new pristine document. doc must be valid.
func (s *Session) Reset(doc document.Document, description string) error {
	if err := document.Validate(doc); err != nil {
		return err
	}
	if doc.Blocks == nil {
		doc.Blocks = map[document.BlockID]document.Block{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pristine = doc
	s.current = doc
	s.hist.Clear()
	s.alloc.Observe(doc)

	simplelogger.Log("session: reset (%s), %d blocks", description, doc.Len())
	s.publish(Event{Kind: EventReset, Description: description, State: s.hist.State()})
	return nil
}

// DocumentAt returns the document at history index (-1 for pristine).
func (s *Session) DocumentAt(index int) (document.Document, error) {
	if index == -1 {
		return s.Pristine(), nil
	}
	doc, ok := s.hist.Snapshot(index)
	if !ok {
		return document.Document{}, fmt.Errorf("no history entry at index %d", index)
	}
	return doc, nil
}

// Diff compares the documents at history indexes from and to (-1 for pristine).
func (s *Session) Diff(from, to int) (docdiff.DocumentDiff, error) {
	oldDoc, err := s.DocumentAt(from)
	if err != nil {
		return docdiff.DocumentDiff{}, err
	}
	newDoc, err := s.DocumentAt(to)
	if err != nil {
		return docdiff.DocumentDiff{}, err
	}
	return docdiff.ComputeDocumentDiff(oldDoc, newDoc, snapshotLabel(oldDoc, from), snapshotLabel(newDoc, to), s.diffOpts)
}

// Changes compares the pristine document with the current one.
func (s *Session) Changes() (docdiff.DocumentDiff, error) {
	s.mu.Lock()
	oldDoc, newDoc := s.pristine, s.current
	s.mu.Unlock()
	to := newDoc.SnapshotID
	if to == "" {
		to = "current"
	}
	return docdiff.ComputeDocumentDiff(oldDoc, newDoc, snapshotLabel(oldDoc, -1), to, s.diffOpts)
}

func snapshotLabel(doc document.Document, index int) string {
	if doc.SnapshotID != "" {
		return doc.SnapshotID
	}
	if index == -1 {
		return "pristine"
	}
	return fmt.Sprintf("#%d", index)
}

// Subscribe returns a channel of Events and a function that cancels the subscription. Events are dropped for a subscriber whose buffer is full.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

// publish is called with s.mu held, so subscribers see events in the order the changes were made.
func (s *Session) publish(e Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
