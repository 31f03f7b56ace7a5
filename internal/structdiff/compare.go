package structdiff

import (
	"fmt"
	"sort"

	"github.com/codalotl/blockdiff/internal/document"
)

// Compare classifies every block of oldDoc and newDoc. It returns an InvalidReferenceError (see package document) if either hierarchy is not a tree.
func Compare(oldDoc, newDoc document.Document) (Result, error) {
	oldOrder, err := oldDoc.PreOrder()
	if err != nil {
		return Result{}, fmt.Errorf("old document: %w", err)
	}
	newOrder, err := newDoc.PreOrder()
	if err != nil {
		return Result{}, fmt.Errorf("new document: %w", err)
	}

	reordered := reorderedBlocks(oldDoc, newDoc)

	res := Result{Blocks: make(map[document.BlockID]BlockResult, len(oldDoc.Blocks)+len(newDoc.Blocks))}

	for _, id := range newOrder {
		nb := newDoc.Blocks[id]
		newParent, newIndex, _ := newDoc.Position(id)

		ob, inOld := oldDoc.Blocks[id]
		if !inOld {
			res.add(BlockResult{ID: id, ChangeType: Added, New: &nb})
			res.Changes = append(res.Changes, StructuralChange{Type: ChangeAdded, BlockID: id, NewParent: newParent, OldIndex: -1, NewIndex: newIndex})
			continue
		}
		oldParent, oldIndex, _ := oldDoc.Position(id)

		sig := Signals{
			Content:   ob.Content != nb.Content,
			Parent:    oldParent != newParent,
			Reordered: reordered[id],
		}
		changes := fieldChanges(ob, nb)
		sig.Metadata = len(changes) > 0

		br := BlockResult{ID: id, Old: &ob, New: &nb, ContentChanged: sig.Content, MetadataChanges: changes}
		br.ChangeType = Classify(sig)

		switch br.ChangeType {
		case Modified:
			// A relocated block that was also edited reports its position change as fields.
			if sig.Parent {
				br.MetadataChanges = append(br.MetadataChanges, MetadataChange{Field: FieldParentID, Old: string(oldParent), New: string(newParent)})
			}
			if (sig.Parent || sig.Reordered) && oldIndex != newIndex {
				br.MetadataChanges = append(br.MetadataChanges, MetadataChange{Field: FieldIndex, Old: oldIndex, New: newIndex})
			}
		case Moved:
			t := ChangeReordered
			if sig.Parent {
				t = ChangeMoved
			}
			res.Changes = append(res.Changes, StructuralChange{Type: t, BlockID: id, OldParent: oldParent, NewParent: newParent, OldIndex: oldIndex, NewIndex: newIndex})
		}
		res.add(br)
	}

	for _, id := range oldOrder {
		if newDoc.Has(id) {
			continue
		}
		ob := oldDoc.Blocks[id]
		oldParent, oldIndex, _ := oldDoc.Position(id)
		res.add(BlockResult{ID: id, ChangeType: Removed, Old: &ob})
		res.Changes = append(res.Changes, StructuralChange{Type: ChangeRemoved, BlockID: id, OldParent: oldParent, OldIndex: oldIndex, NewIndex: -1})
	}

	return res, nil
}

func (r *Result) add(br BlockResult) {
	r.Blocks[br.ID] = br
	r.Order = append(r.Order, br.ID)
	r.Summary.Add(br.ChangeType)
}

// fieldChanges returns content type and metadata differences between two versions of a block, content type first, then metadata keys in sorted order.
func fieldChanges(ob, nb document.Block) []MetadataChange {
	var out []MetadataChange
	if ob.ContentType != nb.ContentType {
		out = append(out, MetadataChange{Field: FieldContentType, Old: string(ob.ContentType), New: string(nb.ContentType)})
	}

	keys := ob.MetadataKeys()
	for _, k := range nb.MetadataKeys() {
		if _, ok := ob.Metadata[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		ov, inOld := ob.Metadata[k]
		nv, inNew := nb.Metadata[k]
		if inOld && inNew && document.ScalarEqual(ov, nv) {
			continue
		}
		out = append(out, MetadataChange{Field: "metadata." + k, Old: ov, New: nv})
	}
	return out
}
