// Package structdiff matches blocks by id across two versions of a document and classifies how each one changed.
//
// Every block in either version gets exactly one ChangeType, chosen by Classify from the independent change signals of that block. Blocks whose existence or
// position changed also get a StructuralChange. Purely textual or metadata edits do not.
//
// Output is deterministic: StructuralChanges follow the pre-order of the new document, followed by removed blocks in the pre-order of the old document.
package structdiff

import (
	"github.com/codalotl/blockdiff/internal/document"
)

// ChangeType is the single classification given to a block.
type ChangeType string

const (
	Added     ChangeType = "added"
	Removed   ChangeType = "removed"
	Modified  ChangeType = "modified"
	Moved     ChangeType = "moved"
	Unchanged ChangeType = "unchanged"
)

// ChangeTypes lists every ChangeType in report order.
var ChangeTypes = []ChangeType{Added, Removed, Modified, Moved, Unchanged}

// StructuralChangeType is the kind of position or existence change.
type StructuralChangeType string

const (
	ChangeAdded     StructuralChangeType = "added"
	ChangeRemoved   StructuralChangeType = "removed"
	ChangeMoved     StructuralChangeType = "moved"     // parent changed
	ChangeReordered StructuralChangeType = "reordered" // same parent, order among surviving siblings changed
)

// Field names used in MetadataChange besides metadata keys (which are reported as "metadata.<key>").
const (
	FieldContentType = "contentType"
	FieldParentID    = "parentId"
	FieldIndex       = "index"
)

// MetadataChange is a changed scalar field of a block that exists in both versions.
type MetadataChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// StructuralChange records a block whose existence or position changed. Indexes are positions within the parent's children (or the roots); -1 and an empty parent
// mean "not present on that side".
type StructuralChange struct {
	Type      StructuralChangeType `json:"type"`
	BlockID   document.BlockID     `json:"block_id"`
	OldParent document.BlockID     `json:"old_parent,omitempty"`
	NewParent document.BlockID     `json:"new_parent,omitempty"`
	OldIndex  int                  `json:"old_index"`
	NewIndex  int                  `json:"new_index"`
}

// BlockResult is the classification of one block.
type BlockResult struct {
	ID              document.BlockID `json:"id"`
	ChangeType      ChangeType       `json:"change_type"`
	Old             *document.Block  `json:"old,omitempty"`
	New             *document.Block  `json:"new,omitempty"`
	ContentChanged  bool             `json:"content_changed,omitempty"`
	MetadataChanges []MetadataChange `json:"metadata_changes,omitempty"`
}

// Summary counts blocks per ChangeType.
type Summary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Moved     int `json:"moved"`
	Unchanged int `json:"unchanged"`
}

// Add counts one block of type ct.
func (s *Summary) Add(ct ChangeType) {
	switch ct {
	case Added:
		s.Added++
	case Removed:
		s.Removed++
	case Modified:
		s.Modified++
	case Moved:
		s.Moved++
	case Unchanged:
		s.Unchanged++
	}
}

// Count returns the count for ct.
func (s Summary) Count(ct ChangeType) int {
	switch ct {
	case Added:
		return s.Added
	case Removed:
		return s.Removed
	case Modified:
		return s.Modified
	case Moved:
		return s.Moved
	case Unchanged:
		return s.Unchanged
	}
	return 0
}

// Total is the number of blocks counted.
func (s Summary) Total() int {
	return s.Added + s.Removed + s.Modified + s.Moved + s.Unchanged
}

// Changed is the number of blocks counted as anything but Unchanged.
func (s Summary) Changed() int {
	return s.Total() - s.Unchanged
}

// Result is the output of Compare.
type Result struct {
	Blocks  map[document.BlockID]BlockResult
	Order   []document.BlockID // new pre-order, then removed blocks in old pre-order
	Changes []StructuralChange
	Summary Summary
}

// Signals are the independent ways a block present in both versions can differ.
type Signals struct {
	Content   bool // content string differs
	Parent    bool // parent id differs
	Reordered bool // same parent, not part of the longest common subsequence of surviving siblings
	Metadata  bool // content type or a metadata value differs
}

// Classify resolves Signals to a single ChangeType. Priority, highest first: content change (Modified), position change (Moved), other field change (Modified),
// otherwise Unchanged.
func Classify(s Signals) ChangeType {
	switch {
	case s.Content:
		return Modified
	case s.Parent || s.Reordered:
		return Moved
	case s.Metadata:
		return Modified
	default:
		return Unchanged
	}
}
