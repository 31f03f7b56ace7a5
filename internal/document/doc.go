// Package document models a tree-shaped content document made of blocks with stable identity.
//
// A Document is a value: a map from BlockID to Block, an ordered list of root ids, and a SnapshotID version tag. Hierarchy is expressed twice, as Block.ParentID and
// as the parent's ordered Block.Children; the two must agree. These are plain id fields resolved through Document.Blocks, never pointers, so a Document has no cyclic
// object graph.
//
// Invariants (checked by Validate):
//   - Every ParentID, child id, root id, and edge target resolves to a block in the same Document.
//   - Every id in X.Children has ParentID == X.ID, and roots have an empty ParentID.
//   - No block is listed as a child (or root) more than once; that is, no block has two parents.
//   - The parent relation is acyclic, and every parentless block is listed in Roots.
//   - Metadata values are scalars (string, bool, numeric, or nil).
//
// Violations are reported as an *InvalidReferenceError, which matches ErrInvalidReference with errors.Is.
//
// Editing is copy-on-write: every edit method (SetContent, InsertBlock, MoveBlock, RemoveBlock, ...) returns a new Document and leaves the receiver untouched. Unchanged
// blocks may be shared between versions; blocks are only ever replaced, never mutated in place, so sharing is safe.
//
// Block ids are never reused. IDAllocator hands out ids in the form "blk_<12 hex digits>" from a monotonic counter and skips any id it has been told about.
package document
