package structdiff

import (
	"github.com/codalotl/blockdiff/internal/document"
)

// reorderedBlocks returns the blocks that kept their parent (or stayed a root) but changed order relative to the other siblings that did the same. Within each
// sibling list, the siblings outside the longest common subsequence of the old and new orderings are the reordered ones.
//
// Index shifts caused only by siblings being added, removed, or moved away are not reorders.
func reorderedBlocks(oldDoc, newDoc document.Document) map[document.BlockID]bool {
	out := map[document.BlockID]bool{}

	stayed := func(parent document.BlockID) func(document.BlockID) bool {
		return func(id document.BlockID) bool {
			ob, okOld := oldDoc.Blocks[id]
			nb, okNew := newDoc.Blocks[id]
			return okOld && okNew && ob.ParentID == parent && nb.ParentID == parent
		}
	}

	check := func(parent document.BlockID, oldSiblings, newSiblings []document.BlockID) {
		keep := stayed(parent)
		for _, id := range unmatched(filter(oldSiblings, keep), filter(newSiblings, keep)) {
			out[id] = true
		}
	}

	check("", oldDoc.Roots, newDoc.Roots)
	for _, id := range newDoc.IDs() {
		ob, ok := oldDoc.Blocks[id]
		if !ok {
			continue
		}
		check(id, ob.Children, newDoc.Blocks[id].Children)
	}
	return out
}

func filter(ids []document.BlockID, keep func(document.BlockID) bool) []document.BlockID {
	var out []document.BlockID
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

// unmatched returns the elements of b that are not part of a longest common subsequence of a and b, in b's order. On ties the walk drops from a first, so for
// [x, y] -> [y, x] it keeps y in place and reports x.
func unmatched(a, b []document.BlockID) []document.BlockID {
	if len(a) == 0 || len(b) == 0 {
		return b
	}

	// lcs[i][j] is the LCS length of a[i:] and b[j:].
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var out []document.BlockID
	i, j := 0, 0
	for j < len(b) {
		switch {
		case i < len(a) && a[i] == b[j]:
			i++
			j++
		case i < len(a) && lcs[i+1][j] >= lcs[i][j+1]:
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	return out
}
