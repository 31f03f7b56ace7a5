// Package docdiff combines structural and text diffing into a DocumentDiff: the classification of every block between two document versions, the structural
// changes among them, and a text diff for every block whose content was edited.
//
// A DocumentDiff is an immutable value derived from two document versions. Query helpers (Filter, Block, HasChanges) are pure projections over it, and
// FormatTextDiff renders a block's text diff as lossless bracket markup.
package docdiff

import (
	"fmt"

	"github.com/codalotl/blockdiff/internal/diff"
	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/structdiff"
)

// BlockDiff is one block's classification together with its content diff and field changes.
type BlockDiff struct {
	ID              document.BlockID            `json:"id"`
	ChangeType      structdiff.ChangeType       `json:"change_type"`
	Old             *document.Block             `json:"old,omitempty"`
	New             *document.Block             `json:"new,omitempty"`
	ContentDiff     diff.TextDiff               `json:"content_diff,omitempty"` // set for modified blocks whose content differs
	MetadataChanges []structdiff.MetadataChange `json:"metadata_changes,omitempty"`
}

// DocumentDiff is the full comparison of two document versions.
//
// Invariant: Summary.Total() == len(Blocks), and each Summary count equals the number of Blocks with that ChangeType.
type DocumentDiff struct {
	FromSnapshotID    string                         `json:"from_snapshot_id"`
	ToSnapshotID      string                         `json:"to_snapshot_id"`
	Blocks            map[document.BlockID]BlockDiff `json:"blocks"`
	Order             []document.BlockID             `json:"order"` // new pre-order, then removed blocks in old pre-order
	StructuralChanges []structdiff.StructuralChange  `json:"structural_changes"`
	Summary           structdiff.Summary             `json:"summary"`

	// Large is set when the inputs exceeded Options.LargeDiff. The diff then carries classifications and a summary only: no StructuralChanges, no
	// ContentDiff, no Old/New blocks, and no moves (position is not compared).
	Large bool `json:"large,omitempty"`
}

// Options control ComputeDocumentDiff. A nil *Options uses word granularity and no large-diff threshold.
type Options struct {
	Granularity diff.Granularity
	LargeDiff   LargeDiff
}

// ComputeDocumentDiff compares oldDoc and newDoc, labeling the result with fromID and toID. If either ID is empty, the document's own SnapshotID is used.
//
// The only error is an InvalidReferenceError for a hierarchy that is not a tree.
func ComputeDocumentDiff(oldDoc, newDoc document.Document, fromID, toID string, opts *Options) (DocumentDiff, error) {
	if fromID == "" {
		fromID = oldDoc.SnapshotID
	}
	if toID == "" {
		toID = newDoc.SnapshotID
	}
	if opts == nil {
		opts = &Options{}
	}

	if opts.LargeDiff.exceeded(oldDoc, newDoc) {
		return coarseDiff(oldDoc, newDoc, fromID, toID), nil
	}

	res, err := structdiff.Compare(oldDoc, newDoc)
	if err != nil {
		return DocumentDiff{}, err
	}

	textOpts := &diff.Options{Granularity: opts.Granularity}
	out := DocumentDiff{
		FromSnapshotID:    fromID,
		ToSnapshotID:      toID,
		Blocks:            make(map[document.BlockID]BlockDiff, len(res.Blocks)),
		Order:             res.Order,
		StructuralChanges: res.Changes,
		Summary:           res.Summary,
	}
	for id, br := range res.Blocks {
		bd := BlockDiff{
			ID:              id,
			ChangeType:      br.ChangeType,
			Old:             br.Old,
			New:             br.New,
			MetadataChanges: br.MetadataChanges,
		}
		if br.ChangeType == structdiff.Modified && br.ContentChanged {
			bd.ContentDiff = diff.DiffText(br.Old.Content, br.New.Content, textOpts)
		}
		out.Blocks[id] = bd
	}
	if out.StructuralChanges == nil {
		out.StructuralChanges = []structdiff.StructuralChange{}
	}
	return out, nil
}

// Validate checks the DocumentDiff invariants: summary counts match the block classifications, Order lists every block once, and every content diff
// round-trips to its block's old and new content.
func (d DocumentDiff) Validate() error {
	var counted structdiff.Summary
	for _, bd := range d.Blocks {
		counted.Add(bd.ChangeType)
	}
	if counted != d.Summary {
		return fmt.Errorf("summary %+v does not match blocks %+v", d.Summary, counted)
	}
	if d.Summary.Total() != len(d.Blocks) {
		return fmt.Errorf("summary total %d != %d blocks", d.Summary.Total(), len(d.Blocks))
	}
	if len(d.Order) != len(d.Blocks) {
		return fmt.Errorf("order lists %d ids for %d blocks", len(d.Order), len(d.Blocks))
	}
	seen := make(map[document.BlockID]bool, len(d.Order))
	for _, id := range d.Order {
		if _, ok := d.Blocks[id]; !ok || seen[id] {
			return fmt.Errorf("order: unexpected or duplicate id %q", id)
		}
		seen[id] = true
	}
	for _, id := range d.Order {
		bd := d.Blocks[id]
		if bd.ContentDiff == nil || bd.Old == nil || bd.New == nil {
			continue
		}
		if err := diff.Validate(bd.ContentDiff, bd.Old.Content, bd.New.Content); err != nil {
			return fmt.Errorf("block %s: %w", id, err)
		}
	}
	return nil
}
