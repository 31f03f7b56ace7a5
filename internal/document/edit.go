package document

import (
	"fmt"
)

// update returns a copy of d in which block id has been replaced by fn's modification of a clone.
func (d Document) update(id BlockID, fn func(b *Block)) (Document, error) {
	b, ok := d.Blocks[id]
	if !ok {
		return Document{}, invalidRef(id, "id", id, "block does not exist")
	}
	out := d.clone()
	nb := b.Clone()
	fn(&nb)
	out.Blocks[id] = nb
	return out, nil
}

// SetContent returns a copy of d with id's content replaced.
func (d Document) SetContent(id BlockID, content string) (Document, error) {
	return d.update(id, func(b *Block) { b.Content = content })
}

// SetContentType returns a copy of d with id's content type replaced.
func (d Document) SetContentType(id BlockID, ct ContentType) (Document, error) {
	return d.update(id, func(b *Block) { b.ContentType = ct })
}

// SetMetadata returns a copy of d with metadata key set on id. value must be a scalar.
func (d Document) SetMetadata(id BlockID, key string, value any) (Document, error) {
	if !IsScalar(value) {
		return Document{}, invalidRef(id, "metadata", "", fmt.Sprintf("key %q has non-scalar value %T", key, value))
	}
	return d.update(id, func(b *Block) {
		if b.Metadata == nil {
			b.Metadata = map[string]any{}
		}
		b.Metadata[key] = value
	})
}

// DeleteMetadata returns a copy of d with metadata key removed from id. Removing an absent key is not an error.
func (d Document) DeleteMetadata(id BlockID, key string) (Document, error) {
	return d.update(id, func(b *Block) {
		delete(b.Metadata, key)
		if len(b.Metadata) == 0 {
			b.Metadata = nil
		}
	})
}

// InsertBlock returns a copy of d with b inserted as a child of parent (or as a root, if parent is empty) at index. An index < 0 or past the end appends.
//
// b.ID must not already exist in d, and b must not have children; build subtrees with repeated inserts. b.ParentID is overwritten with parent.
func (d Document) InsertBlock(parent BlockID, index int, b Block) (Document, error) {
	if b.ID == "" {
		return Document{}, invalidRef("", "id", "", "block id is empty")
	}
	if d.Has(b.ID) {
		return Document{}, invalidRef(b.ID, "id", b.ID, "block id already exists")
	}
	if len(b.Children) > 0 {
		return Document{}, invalidRef(b.ID, "children", b.Children[0], "inserted block must not have children")
	}
	for _, e := range b.Edges {
		if e.Target != b.ID && !d.Has(e.Target) {
			return Document{}, invalidRef(b.ID, "edges", e.Target, "edge target does not exist")
		}
	}
	if parent != "" && !d.Has(parent) {
		return Document{}, invalidRef(b.ID, "parent_id", parent, "parent does not exist")
	}

	out := d.clone()
	nb := b.Clone()
	nb.ParentID = parent
	if nb.ContentType == "" {
		nb.ContentType = ContentText
	}
	out.Blocks[nb.ID] = nb

	if parent == "" {
		out.Roots = insertAt(out.Roots, index, nb.ID)
		return out, nil
	}
	p := out.Blocks[parent].Clone()
	p.Children = insertAt(p.Children, index, nb.ID)
	out.Blocks[parent] = p
	return out, nil
}

// RemoveBlock returns a copy of d without id and all of its descendants, along with the removed ids in pre-order. Edges in surviving blocks that pointed into the removed
// subtree are dropped.
func (d Document) RemoveBlock(id BlockID) (Document, []BlockID, error) {
	removed, err := d.Subtree(id)
	if err != nil {
		return Document{}, nil, err
	}
	gone := make(map[BlockID]bool, len(removed))
	for _, r := range removed {
		gone[r] = true
	}

	out := d.clone()
	parent := d.Blocks[id].ParentID
	if parent == "" {
		out.Roots = removeID(out.Roots, id)
	} else {
		p := out.Blocks[parent].Clone()
		p.Children = removeID(p.Children, id)
		out.Blocks[parent] = p
	}
	for _, r := range removed {
		delete(out.Blocks, r)
	}

	for _, bid := range out.IDs() {
		b := out.Blocks[bid]
		keep := b.Edges[:0:0]
		dropped := false
		for _, e := range b.Edges {
			if gone[e.Target] {
				dropped = true
				continue
			}
			keep = append(keep, e)
		}
		if dropped {
			nb := b.Clone()
			nb.Edges = keep
			if len(nb.Edges) == 0 {
				nb.Edges = nil
			}
			out.Blocks[bid] = nb
		}
	}
	return out, removed, nil
}

// MoveBlock returns a copy of d with id (and its subtree) relocated under newParent (or to the roots, if newParent is empty) at index, where index is interpreted after
// id has been detached from its old position. An index < 0 or past the end appends. Moving a block under itself or one of its descendants is an InvalidReferenceError.
func (d Document) MoveBlock(id BlockID, newParent BlockID, index int) (Document, error) {
	b, ok := d.Blocks[id]
	if !ok {
		return Document{}, invalidRef(id, "id", id, "block does not exist")
	}
	if newParent != "" {
		if !d.Has(newParent) {
			return Document{}, invalidRef(id, "parent_id", newParent, "parent does not exist")
		}
		if newParent == id {
			return Document{}, invalidRef(id, "parent_id", newParent, "block cannot be its own parent")
		}
		anc, err := d.Ancestors(newParent)
		if err != nil {
			return Document{}, err
		}
		if indexOf(anc, id) >= 0 {
			return Document{}, invalidRef(id, "parent_id", newParent, "new parent is a descendant of the block")
		}
	}

	out := d.clone()
	if b.ParentID == "" {
		out.Roots = removeID(out.Roots, id)
	} else {
		p := out.Blocks[b.ParentID].Clone()
		p.Children = removeID(p.Children, id)
		out.Blocks[b.ParentID] = p
	}

	nb := b.Clone()
	nb.ParentID = newParent
	out.Blocks[id] = nb

	if newParent == "" {
		out.Roots = insertAt(out.Roots, index, id)
		return out, nil
	}
	p := out.Blocks[newParent].Clone()
	p.Children = insertAt(p.Children, index, id)
	out.Blocks[newParent] = p
	return out, nil
}

// AddEdge returns a copy of d with an edge of type t from -> to. Adding an edge that already exists is a no-op copy.
func (d Document) AddEdge(from BlockID, t EdgeType, to BlockID) (Document, error) {
	if !d.Has(to) {
		return Document{}, invalidRef(from, "edges", to, "edge target does not exist")
	}
	return d.update(from, func(b *Block) {
		for _, e := range b.Edges {
			if e.Type == t && e.Target == to {
				return
			}
		}
		b.Edges = append(b.Edges, Edge{Type: t, Target: to})
	})
}

// RemoveEdge returns a copy of d without the edge of type t from -> to.
func (d Document) RemoveEdge(from BlockID, t EdgeType, to BlockID) (Document, error) {
	return d.update(from, func(b *Block) {
		var keep []Edge
		for _, e := range b.Edges {
			if e.Type == t && e.Target == to {
				continue
			}
			keep = append(keep, e)
		}
		b.Edges = keep
	})
}

func insertAt(ids []BlockID, index int, id BlockID) []BlockID {
	out := make([]BlockID, 0, len(ids)+1)
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	out = append(out, ids[:index]...)
	out = append(out, id)
	out = append(out, ids[index:]...)
	return out
}

func removeID(ids []BlockID, id BlockID) []BlockID {
	out := make([]BlockID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
