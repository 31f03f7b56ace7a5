package docdiff

import (
	"fmt"
	"sync"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/structdiff"
	"github.com/tiktoken-go/tokenizer"
)

// LargeDiff sets thresholds past which ComputeDocumentDiff returns a coarse result. Zero disables a threshold.
type LargeDiff struct {
	MaxBlocks int // total blocks across both documents
	MaxTokens int // total content tokens (o200k_base) across blocks present in both documents whose content differs
}

func (l LargeDiff) exceeded(oldDoc, newDoc document.Document) bool {
	if l.MaxBlocks > 0 && oldDoc.Len()+newDoc.Len() > l.MaxBlocks {
		return true
	}
	if l.MaxTokens <= 0 {
		return false
	}
	total := 0
	for id, nb := range newDoc.Blocks {
		ob, ok := oldDoc.Blocks[id]
		if !ok || ob.Content == nb.Content {
			continue
		}
		total += CountTokens(ob.Content) + CountTokens(nb.Content)
		if total > l.MaxTokens {
			return true
		}
	}
	return false
}

var encoder = sync.OnceValues(func() (tokenizer.Codec, error) {
	return tokenizer.Get(tokenizer.O200kBase)
})

// CountTokens returns the o200k_base token count of text, or an estimate of len/4 if the tokenizer fails.
func CountTokens(text string) int {
	enc, err := encoder()
	if err != nil {
		panic(fmt.Errorf("invalid encoder: %v", tokenizer.O200kBase))
	}
	count, err := enc.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// coarseDiff classifies blocks from id sets and field equality only. It does not walk the hierarchy, so cyclic input is not detected here.
func coarseDiff(oldDoc, newDoc document.Document, fromID, toID string) DocumentDiff {
	out := DocumentDiff{
		FromSnapshotID:    fromID,
		ToSnapshotID:      toID,
		Blocks:            make(map[document.BlockID]BlockDiff, newDoc.Len()),
		StructuralChanges: []structdiff.StructuralChange{},
		Large:             true,
	}
	add := func(id document.BlockID, ct structdiff.ChangeType) {
		out.Blocks[id] = BlockDiff{ID: id, ChangeType: ct}
		out.Order = append(out.Order, id)
		out.Summary.Add(ct)
	}

	for _, id := range newDoc.IDs() {
		ob, ok := oldDoc.Blocks[id]
		if !ok {
			add(id, structdiff.Added)
			continue
		}
		nb := newDoc.Blocks[id]
		if ob.Content != nb.Content || ob.ContentType != nb.ContentType || !sameMetadata(ob, nb) {
			add(id, structdiff.Modified)
		} else {
			add(id, structdiff.Unchanged)
		}
	}
	for _, id := range oldDoc.IDs() {
		if !newDoc.Has(id) {
			add(id, structdiff.Removed)
		}
	}
	return out
}

func sameMetadata(a, b document.Block) bool {
	if len(a.Metadata) != len(b.Metadata) {
		return false
	}
	for k, av := range a.Metadata {
		bv, ok := b.Metadata[k]
		if !ok || !document.ScalarEqual(av, bv) {
			return false
		}
	}
	return true
}
