package document

import (
	"errors"
	"fmt"
)

// ErrInvalidReference is matched (via errors.Is) by every *InvalidReferenceError.
var ErrInvalidReference = errors.New("invalid reference")

// InvalidReferenceError reports a reference that does not resolve, or a hierarchy that is not a tree.
type InvalidReferenceError struct {
	BlockID BlockID // block holding the bad reference (empty for Document.Roots)
	Field   string  // ex: "parent_id", "children", "edges", "roots", "metadata"
	Target  BlockID // id that failed to resolve; may be empty
	Reason  string
}

func (e *InvalidReferenceError) Error() string {
	where := string(e.BlockID)
	if where == "" {
		where = "document"
	}
	if e.Target != "" {
		return fmt.Sprintf("invalid reference: %s.%s -> %s: %s", where, e.Field, e.Target, e.Reason)
	}
	return fmt.Sprintf("invalid reference: %s.%s: %s", where, e.Field, e.Reason)
}

func (e *InvalidReferenceError) Is(target error) bool {
	return target == ErrInvalidReference
}

func invalidRef(block BlockID, field string, target BlockID, reason string) error {
	return &InvalidReferenceError{BlockID: block, Field: field, Target: target, Reason: reason}
}

// Validate checks d against the Document invariants and returns the first violation found. Blocks are visited in sorted id order, so the reported violation is deterministic.
func Validate(d Document) error {
	owner := make(map[BlockID]BlockID, len(d.Blocks)) // child -> listing parent ("" for roots)

	for _, id := range d.Roots {
		b, ok := d.Blocks[id]
		if !ok {
			return invalidRef("", "roots", id, "root does not exist")
		}
		if b.ParentID != "" {
			return invalidRef(id, "parent_id", b.ParentID, "root block has a parent")
		}
		if _, dup := owner[id]; dup {
			return invalidRef("", "roots", id, "listed more than once")
		}
		owner[id] = ""
	}

	for _, id := range d.IDs() {
		b := d.Blocks[id]
		if b.ID != id {
			return invalidRef(id, "id", b.ID, "block id does not match its key")
		}
		if b.ParentID != "" {
			if _, ok := d.Blocks[b.ParentID]; !ok {
				return invalidRef(id, "parent_id", b.ParentID, "parent does not exist")
			}
		}
		for _, c := range b.Children {
			child, ok := d.Blocks[c]
			if !ok {
				return invalidRef(id, "children", c, "child does not exist")
			}
			if child.ParentID != id {
				return invalidRef(id, "children", c, fmt.Sprintf("child has parent_id %q", child.ParentID))
			}
			if prev, dup := owner[c]; dup {
				return invalidRef(id, "children", c, fmt.Sprintf("block already listed by %q", prev))
			}
			owner[c] = id
		}
		for _, e := range b.Edges {
			if _, ok := d.Blocks[e.Target]; !ok {
				return invalidRef(id, "edges", e.Target, "edge target does not exist")
			}
		}
		for _, k := range b.MetadataKeys() {
			if !IsScalar(b.Metadata[k]) {
				return invalidRef(id, "metadata", "", fmt.Sprintf("key %q has non-scalar value %T", k, b.Metadata[k]))
			}
		}
	}

	// A block whose parent does not list it is detached from the tree.
	for _, id := range d.IDs() {
		b := d.Blocks[id]
		if b.ParentID == "" {
			if _, ok := owner[id]; !ok {
				return invalidRef(id, "roots", id, "parentless block is not listed in roots")
			}
			continue
		}
		if listed, ok := owner[id]; !ok || listed != b.ParentID {
			return invalidRef(id, "parent_id", b.ParentID, "parent does not list block as a child")
		}
	}

	for _, id := range d.IDs() {
		if _, err := d.Ancestors(id); err != nil {
			return err
		}
	}
	return nil
}

// Ancestors returns id's ancestors, nearest first. The walk is bounded by the number of blocks in d, so a cycle is reported as an InvalidReferenceError rather than
// looping forever.
func (d Document) Ancestors(id BlockID) ([]BlockID, error) {
	b, ok := d.Blocks[id]
	if !ok {
		return nil, invalidRef(id, "id", id, "block does not exist")
	}
	var out []BlockID
	for cur := b.ParentID; cur != ""; {
		if cur == id || len(out) > len(d.Blocks) {
			return nil, invalidRef(id, "parent_id", cur, "cycle in parent chain")
		}
		out = append(out, cur)
		p, ok := d.Blocks[cur]
		if !ok {
			return nil, invalidRef(id, "parent_id", cur, "ancestor does not exist")
		}
		cur = p.ParentID
	}
	return out, nil
}

// IsScalar reports whether v may be stored as a metadata value.
func IsScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

// ScalarEqual compares two metadata values. Numbers compare by value regardless of Go type, so an int 3 written by an editor equals the float64 3 read back from JSON.
func ScalarEqual(a, b any) bool {
	fa, aNum := asFloat(a)
	fb, bNum := asFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	if !IsScalar(a) || !IsScalar(b) {
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
