package docdiff

import (
	"github.com/codalotl/blockdiff/internal/diff"
	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/structdiff"
)

// Filter returns the block diffs with change type ct, in d.Order.
func (d DocumentDiff) Filter(ct structdiff.ChangeType) []BlockDiff {
	var out []BlockDiff
	for _, id := range d.Order {
		if bd := d.Blocks[id]; bd.ChangeType == ct {
			out = append(out, bd)
		}
	}
	return out
}

// Changed returns every block diff that is not Unchanged, in d.Order.
func (d DocumentDiff) Changed() []BlockDiff {
	var out []BlockDiff
	for _, id := range d.Order {
		if bd := d.Blocks[id]; bd.ChangeType != structdiff.Unchanged {
			out = append(out, bd)
		}
	}
	return out
}

// Block returns the diff for id.
func (d DocumentDiff) Block(id document.BlockID) (BlockDiff, bool) {
	bd, ok := d.Blocks[id]
	return bd, ok
}

// HasChanges reports whether any block is anything but Unchanged.
func (d DocumentDiff) HasChanges() bool {
	return d.Summary.Changed() > 0
}

// FormatTextDiff renders td as bracket markup ("[-deleted-]", "{+inserted+}"). ParseTextDiff inverts it.
func FormatTextDiff(td diff.TextDiff) string {
	return diff.Format(td)
}

// ParseTextDiff parses the output of FormatTextDiff.
func ParseTextDiff(markup string) (diff.TextDiff, error) {
	return diff.Parse(markup)
}
