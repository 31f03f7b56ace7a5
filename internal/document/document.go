package document

import (
	"sort"
)

// BlockID identifies a block for the lifetime of a document. Ids are opaque; callers must not parse them.
type BlockID string

// ContentType is the kind of content a block holds.
type ContentType string

// Content types.
const (
	ContentText      ContentType = "text"
	ContentHeading   ContentType = "heading"
	ContentCode      ContentType = "code"
	ContentList      ContentType = "list"
	ContentQuote     ContentType = "quote"
	ContentTable     ContentType = "table"
	ContentMath      ContentType = "math"
	ContentMedia     ContentType = "media"
	ContentJSON      ContentType = "json"
	ContentHTML      ContentType = "html"
	ContentBreak     ContentType = "break"
	ContentComposite ContentType = "composite"
)

// EdgeType is the semantic relation carried by an Edge.
type EdgeType string

// Edge types.
const (
	EdgeReferences  EdgeType = "references"
	EdgeSupports    EdgeType = "supports"
	EdgeContradicts EdgeType = "contradicts"
	EdgeElaborates  EdgeType = "elaborates"
	EdgeSummarizes  EdgeType = "summarizes"
	EdgeDerivedFrom EdgeType = "derived_from"
	EdgeLinksTo     EdgeType = "links_to"
	EdgeCitedBy     EdgeType = "cited_by"
	EdgeSupersedes  EdgeType = "supersedes"
	EdgeVersionOf   EdgeType = "version_of"
	EdgeCustom      EdgeType = "custom"
)

// Edge is a typed, non-hierarchical relation from the owning block to Target.
type Edge struct {
	Type   EdgeType `json:"type"`
	Target BlockID  `json:"target"`
}

// Block is one node of the content tree.
type Block struct {
	ID          BlockID        `json:"id"`
	ContentType ContentType    `json:"content_type"`
	Content     string         `json:"content"`
	ParentID    BlockID        `json:"parent_id,omitempty"` // empty for roots
	Children    []BlockID      `json:"children,omitempty"`  // defines sibling order
	Edges       []Edge         `json:"edges,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"` // scalar values only
}

// Clone returns a deep copy of b. Metadata values are scalars, so copying the map is enough.
func (b Block) Clone() Block {
	out := b
	if b.Children != nil {
		out.Children = append([]BlockID(nil), b.Children...)
	}
	if b.Edges != nil {
		out.Edges = append([]Edge(nil), b.Edges...)
	}
	if b.Metadata != nil {
		out.Metadata = make(map[string]any, len(b.Metadata))
		for k, v := range b.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// MetadataKeys returns b's metadata keys, sorted.
func (b Block) MetadataKeys() []string {
	keys := make([]string, 0, len(b.Metadata))
	for k := range b.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Document is one version of the block tree.
type Document struct {
	Blocks     map[BlockID]Block `json:"blocks"`
	Roots      []BlockID         `json:"roots"`
	SnapshotID string            `json:"snapshot_id,omitempty"`
}

// New returns an empty Document tagged with snapshotID.
func New(snapshotID string) Document {
	return Document{Blocks: map[BlockID]Block{}, SnapshotID: snapshotID}
}

// Block returns the block with id, if present.
func (d Document) Block(id BlockID) (Block, bool) {
	b, ok := d.Blocks[id]
	return b, ok
}

// Has reports whether d contains id.
func (d Document) Has(id BlockID) bool {
	_, ok := d.Blocks[id]
	return ok
}

// Len returns the number of blocks in d.
func (d Document) Len() int {
	return len(d.Blocks)
}

// IDs returns every block id in d, sorted.
func (d Document) IDs() []BlockID {
	ids := make([]BlockID, 0, len(d.Blocks))
	for id := range d.Blocks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// WithSnapshotID returns a shallow copy of d with a different version tag. Blocks are shared, which is safe because blocks are never mutated in place.
func (d Document) WithSnapshotID(snapshotID string) Document {
	d.SnapshotID = snapshotID
	return d
}

// Siblings returns the ordered id list that contains id's position: the parent's Children, or Roots for a root. ok is false if id is not in d.
func (d Document) Siblings(id BlockID) (siblings []BlockID, ok bool) {
	b, ok := d.Blocks[id]
	if !ok {
		return nil, false
	}
	if b.ParentID == "" {
		return d.Roots, true
	}
	parent, ok := d.Blocks[b.ParentID]
	if !ok {
		return nil, false
	}
	return parent.Children, true
}

// Position returns id's parent (empty for roots) and its index among its siblings. index is -1 if id is not listed by its parent.
func (d Document) Position(id BlockID) (parent BlockID, index int, ok bool) {
	b, ok := d.Blocks[id]
	if !ok {
		return "", -1, false
	}
	siblings, _ := d.Siblings(id)
	return b.ParentID, indexOf(siblings, id), true
}

// clone returns a copy of d whose Blocks map and Roots slice can be modified without affecting d. Individual blocks are shared until replaced.
func (d Document) clone() Document {
	out := Document{
		Blocks:     make(map[BlockID]Block, len(d.Blocks)),
		Roots:      append([]BlockID(nil), d.Roots...),
		SnapshotID: d.SnapshotID,
	}
	for id, b := range d.Blocks {
		out.Blocks[id] = b
	}
	return out
}

func indexOf(ids []BlockID, id BlockID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
