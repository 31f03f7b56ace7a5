package session

import (
	"fmt"
	"strings"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/history"
)

// SetContent replaces the content of id.
func SetContent(id document.BlockID, content string) Edit {
	return func(doc document.Document, _ *document.IDAllocator) (document.Document, []history.Operation, error) {
		next, err := doc.SetContent(id, content)
		if err != nil {
			return document.Document{}, nil, err
		}
		return next, []history.Operation{{Kind: history.OpSetContent, BlockID: id, Detail: fmt.Sprintf("%d bytes", len(content))}}, nil
	}
}

// Insert adds a new block with a freshly allocated id under parent (or as a root, if parent is empty) at index (append if < 0). The new id is reported in the
// returned operation.
func Insert(parent document.BlockID, index int, ct document.ContentType, content string) Edit {
	return func(doc document.Document, alloc *document.IDAllocator) (document.Document, []history.Operation, error) {
		id := alloc.Next()
		next, err := doc.InsertBlock(parent, index, document.Block{ID: id, ContentType: ct, Content: content})
		if err != nil {
			return document.Document{}, nil, err
		}
		where := "root"
		if parent != "" {
			where = string(parent)
		}
		return next, []history.Operation{{Kind: history.OpInsert, BlockID: id, Detail: fmt.Sprintf("%s under %s", ct, where)}}, nil
	}
}

// Move relocates id (with its subtree) under parent at index.
func Move(id, parent document.BlockID, index int) Edit {
	return func(doc document.Document, _ *document.IDAllocator) (document.Document, []history.Operation, error) {
		next, err := doc.MoveBlock(id, parent, index)
		if err != nil {
			return document.Document{}, nil, err
		}
		where := "root"
		if parent != "" {
			where = string(parent)
		}
		return next, []history.Operation{{Kind: history.OpMove, BlockID: id, Detail: fmt.Sprintf("to %s[%d]", where, index)}}, nil
	}
}

// Remove deletes id and its subtree. One operation is logged per removed block.
func Remove(id document.BlockID) Edit {
	return func(doc document.Document, _ *document.IDAllocator) (document.Document, []history.Operation, error) {
		next, removed, err := doc.RemoveBlock(id)
		if err != nil {
			return document.Document{}, nil, err
		}
		ops := make([]history.Operation, 0, len(removed))
		for _, r := range removed {
			ops = append(ops, history.Operation{Kind: history.OpRemove, BlockID: r})
		}
		return next, ops, nil
	}
}

// SetMetadata sets metadata key on id. A nil value deletes the key.
func SetMetadata(id document.BlockID, key string, value any) Edit {
	return func(doc document.Document, _ *document.IDAllocator) (document.Document, []history.Operation, error) {
		var next document.Document
		var err error
		if value == nil {
			next, err = doc.DeleteMetadata(id, key)
		} else {
			next, err = doc.SetMetadata(id, key, value)
		}
		if err != nil {
			return document.Document{}, nil, err
		}
		return next, []history.Operation{{Kind: history.OpSetMetadata, BlockID: id, Detail: fmt.Sprintf("%s=%v", key, value)}}, nil
	}
}

// Link adds an edge of type t from -> to.
func Link(from document.BlockID, t document.EdgeType, to document.BlockID) Edit {
	return func(doc document.Document, _ *document.IDAllocator) (document.Document, []history.Operation, error) {
		next, err := doc.AddEdge(from, t, to)
		if err != nil {
			return document.Document{}, nil, err
		}
		return next, []history.Operation{{Kind: history.OpAddEdge, BlockID: from, Detail: fmt.Sprintf("%s -> %s", t, to)}}, nil
	}
}

// Replace swaps in doc wholesale (for example, a restored snapshot or a re-import), logging a single operation of kind with detail.
func Replace(doc document.Document, kind history.OperationKind, detail string) Edit {
	return func(_ document.Document, _ *document.IDAllocator) (document.Document, []history.Operation, error) {
		if doc.Blocks == nil {
			doc.Blocks = map[document.BlockID]document.Block{}
		}
		return doc, []history.Operation{{Kind: kind, Detail: detail}}, nil
	}
}

// describe summarizes ops for an entry with no explicit description, ex: "set_content blk_000000000001" or "remove blk_000000000003 (+2 more)".
func describe(ops []history.Operation) string {
	if len(ops) == 0 {
		return "edit"
	}
	var b strings.Builder
	b.WriteString(string(ops[0].Kind))
	if ops[0].BlockID != "" {
		b.WriteString(" ")
		b.WriteString(string(ops[0].BlockID))
	}
	if len(ops) > 1 {
		fmt.Fprintf(&b, " (+%d more)", len(ops)-1)
	}
	return b.String()
}
